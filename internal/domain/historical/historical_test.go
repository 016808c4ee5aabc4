package historical_test

import (
	"testing"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/historical"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func row(athleteID, name string, timeMs int, held, title string, grade int, gender model.Gender) model.ResultRow {
	return model.ResultRow{
		ID:         athleteID + "@" + held,
		AthleteID:  athleteID,
		FullName:   name,
		TimeMs:     timeMs,
		HeldOn:     day(held),
		EventTitle: title,
		DistanceM:  30,
		Style:      "クロール",
		Grade:      grade,
		Gender:     gender,
	}
}

func names(entries []historical.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.FullName
	}
	return out
}

func flags(entries []historical.Entry) []bool {
	out := make([]bool, len(entries))
	for i, e := range entries {
		out[i] = e.IsNewRecordInTargetMonth
	}
	return out
}

func TestFirsts(t *testing.T) {
	september := historical.MonthWindow(day("2025-09-15"))

	Convey("Given rows in two classes", t, func() {
		groups := historical.Firsts([]model.ResultRow{
			row("", "山田 太郎", 40000, "2025-01-10", "30mクロール", 3, model.GenderMale),
			row("", "佐藤 花子", 39000, "2025-03-10", "30mクロール", 3, model.GenderMale),
			row("", "青木 一郎", 39000, "2025-04-10", "30mクロール", 3, model.GenderMale),
			row("", "鈴木 次郎", 38000, "2025-04-10", "30mクロール", 4, model.GenderMale),
		}, nil)

		Convey("Then every row tied at the minimum is kept per class", func() {
			So(groups, ShouldHaveLength, 2)
			So(names(groups[0].Entries), ShouldResemble, []string{"佐藤 花子", "青木 一郎"})
			So(names(groups[1].Entries), ShouldResemble, []string{"鈴木 次郎"})
		})

		Convey("Then nothing is flagged without a window", func() {
			So(flags(groups[0].Entries), ShouldResemble, []bool{false, false})
			So(groups[1].Entries[0].RecordMonthLabel, ShouldEqual, "2025年4月")
		})
	})

	Convey("Given title variants of one class", t, func() {
		groups := historical.Firsts([]model.ResultRow{
			row("fast", "最速選手", 18000, "2025-08-10", "30m クロール", 5, model.GenderMale),
			row("slow", "遅い選手", 20000, "2025-08-20", "３０ｍクロール", 5, model.GenderMale),
		}, &september)

		Convey("Then they produce one first row", func() {
			So(groups, ShouldHaveLength, 1)
			So(names(groups[0].Entries), ShouldResemble, []string{"最速選手"})
			So(groups[0].Title, ShouldEqual, "30m クロール")
		})
	})

	Convey("Given a new record and a tie inside the target month", t, func() {
		groups := historical.Firsts([]model.ResultRow{
			row("old", "旧記録者", 39000, "2025-08-10", "30mクロール", 5, model.GenderMale),
			row("new", "新記録者", 38000, "2025-09-10", "30mクロール", 5, model.GenderMale),
			row("tie", "同タイ記録者", 38000, "2025-09-20", "30mクロール", 5, model.GenderMale),
		}, &september)

		Convey("Then both swimmers are flagged", func() {
			So(names(groups[0].Entries), ShouldResemble, []string{"新記録者", "同タイ記録者"})
			So(flags(groups[0].Entries), ShouldResemble, []bool{true, true})
			So(groups[0].Entries[0].RecordMonthLabel, ShouldEqual, "2025年9月")
		})
	})

	Convey("Given an athlete who already held the record before the month", t, func() {
		groups := historical.Firsts([]model.ResultRow{
			row("a", "既存トップ保持者", 18000, "2025-08-10", "30mクロール", 4, model.GenderMale),
			row("a", "既存トップ保持者", 18000, "2025-09-05", "30mクロール", 4, model.GenderMale),
			row("b", "新規同タイ到達者", 18000, "2025-09-20", "30mクロール", 4, model.GenderMale),
		}, &september)

		Convey("Then only the newcomer is flagged", func() {
			So(names(groups[0].Entries), ShouldResemble, []string{"既存トップ保持者", "既存トップ保持者", "新規同タイ到達者"})
			So(flags(groups[0].Entries), ShouldResemble, []bool{false, false, true})
		})
	})
}

func TestFirsts_SlowerRowInTargetMonth(t *testing.T) {
	september := historical.MonthWindow(day("2025-09-15"))

	Convey("Given two co-first rows, a slower row and a slower swim in the target month", t, func() {
		groups := historical.Firsts([]model.ResultRow{
			row("a", "青木 一郎", 18000, "2025-06-10", "30mクロール", 5, model.GenderMale),
			row("b", "井上 次郎", 18000, "2025-07-10", "30mクロール", 5, model.GenderMale),
			row("c", "上田 三郎", 19000, "2025-08-10", "30mクロール", 5, model.GenderMale),
			row("d", "江藤 四郎", 20000, "2025-09-10", "30mクロール", 5, model.GenderMale),
		}, &september)

		Convey("Then exactly the two co-first rows come back unflagged", func() {
			So(groups, ShouldHaveLength, 1)
			So(names(groups[0].Entries), ShouldResemble, []string{"青木 一郎", "井上 次郎"})
			So(flags(groups[0].Entries), ShouldResemble, []bool{false, false})
		})
	})
}

func TestMonthWindow(t *testing.T) {
	w := historical.MonthWindow(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	if !w.Start.Equal(day("2025-12-01")) || !w.End.Equal(day("2026-01-01")) {
		t.Fatalf("MonthWindow() = %v..%v", w.Start, w.End)
	}
	if !w.Contains(day("2025-12-01")) || w.Contains(day("2026-01-01")) {
		t.Errorf("Contains() must be half-open")
	}
}
