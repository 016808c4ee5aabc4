package report_test

import (
	"fmt"
	"testing"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func group(eventID string, n int) report.RankingGroup {
	g := report.RankingGroup{EventID: eventID, EventTitle: eventID + "種目", Grade: 3, Gender: model.GenderMale}
	for i := 1; i <= n; i++ {
		g.Entries = append(g.Entries, report.RankingEntry{Rank: i, FullName: fmt.Sprintf("name-%d", i)})
	}
	return g
}

func TestPaginate(t *testing.T) {
	Convey("Given a group exactly at the block size", t, func() {
		pages := report.Paginate([]report.RankingGroup{group("e1", 3)}, report.PageOptions{MaxEntriesPerBlock: 3, MaxRowsPerPage: 20})

		So(pages, ShouldHaveLength, 1)
		So(pages[0].Blocks, ShouldHaveLength, 1)
		So(pages[0].Blocks[0].ChunkCount, ShouldEqual, 1)
		So(pages[0].Blocks[0].Entries, ShouldHaveLength, 3)
	})

	Convey("Given a group one over the block size", t, func() {
		pages := report.Paginate([]report.RankingGroup{group("e1", 4)}, report.PageOptions{MaxEntriesPerBlock: 3, MaxRowsPerPage: 20})

		So(pages, ShouldHaveLength, 1)
		blocks := pages[0].Blocks
		So(blocks, ShouldHaveLength, 2)
		So([]int{blocks[0].ChunkIndex, blocks[0].ChunkCount, len(blocks[0].Entries)}, ShouldResemble, []int{1, 2, 3})
		So([]int{blocks[1].ChunkIndex, blocks[1].ChunkCount, len(blocks[1].Entries)}, ShouldResemble, []int{2, 2, 1})
	})

	Convey("Given groups over the row budget", t, func() {
		pages := report.Paginate([]report.RankingGroup{group("e1", 3), group("e2", 3)},
			report.PageOptions{MaxEntriesPerBlock: 3, MaxRowsPerPage: 7, HeaderRowsPerBlock: 2})

		So(pages, ShouldHaveLength, 2)
		So(pages[0].Blocks[0].EventID, ShouldEqual, "e1")
		So(pages[1].Blocks[0].EventID, ShouldEqual, "e2")
	})

	Convey("Given an empty group", t, func() {
		pages := report.Paginate([]report.RankingGroup{group("e1", 0)}, report.PageOptions{})

		So(pages, ShouldHaveLength, 1)
		So(pages[0].Blocks[0].ChunkCount, ShouldEqual, 1)
		So(pages[0].Blocks[0].Entries, ShouldBeEmpty)
	})

	Convey("Given a block taller than a page", t, func() {
		pages := report.Paginate([]report.RankingGroup{group("e1", 5), group("e2", 1)},
			report.PageOptions{MaxEntriesPerBlock: 10, MaxRowsPerPage: 1, HeaderRowsPerBlock: -4})

		So(pages, ShouldHaveLength, 2)
		So(pages[0].Blocks[0].Entries, ShouldHaveLength, 5)
	})

	Convey("Given no groups", t, func() {
		So(report.Paginate(nil, report.PageOptions{}), ShouldBeEmpty)
	})
}

func TestScopeLabels(t *testing.T) {
	tests := []struct {
		grade   int
		gender  model.Gender
		profile string
		overall string
	}{
		{8, model.GenderFemale, "小5女子", "女子・全学年"},
		{10, model.GenderMale, "中1男子", "男子・全学年"},
		{8, model.GenderOther, "小5その他", "その他・全学年"},
		{0, model.GenderFemale, "年少々女子", "女子・全学年"},
		{4, model.GenderFemale, "小1女子", "女子・全学年"},
		{13, model.GenderMale, "高1男子", "男子・全学年"},
	}
	for _, tt := range tests {
		got := report.AthleteScopeLabels(tt.grade, tt.gender)
		want := report.ScopeLabels{
			ProfileScopeLabel:    tt.profile,
			MonthlyClassHeader:   tt.profile,
			MonthlyOverallHeader: tt.overall,
			AllTimeClassHeader:   tt.profile,
		}
		if got != want {
			t.Errorf("AthleteScopeLabels(%d, %s) = %+v, want %+v", tt.grade, tt.gender, got, want)
		}
	}

	child := report.ChildHistoryScopeLabels(model.GenderFemale)
	if child.MonthlyClassHeader != "同学年・同性別" || child.AllTimeClassHeader != "同学年・同性別" || child.MonthlyOverallHeader != "女子・全学年" {
		t.Errorf("ChildHistoryScopeLabels() = %+v", child)
	}
}
