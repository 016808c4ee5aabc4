package certificate_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/certificate"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func baseRow() model.ResultRow {
	return model.ResultRow{
		ID:           "r1",
		AthleteID:    "athlete-1",
		FullName:     "宮之下 虎太朗",
		FullNameKana: "みやのした こたろう",
		Grade:        12,
		Gender:       model.GenderMale,
		EventID:      "event-1",
		EventTitle:   "15mクロール",
		TimeText:     "11秒68",
		TimeMs:       11680,
		HeldOn:       time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildRecordCertificates(t *testing.T) {
	Convey("Given several swims of one athlete", t, func() {
		slow := baseRow()
		slow.TimeText, slow.TimeMs = "11秒80", 11800
		fast := baseRow()
		other := baseRow()
		other.EventID, other.EventTitle, other.TimeText, other.TimeMs = "event-2", "30mクロール", "25秒40", 25400

		certs, err := certificate.BuildRecordCertificates([]model.ResultRow{slow, fast, other}, nil)
		So(err, ShouldBeNil)

		Convey("Then one certificate holds the best per event", func() {
			So(certs, ShouldHaveLength, 1)
			So(certs[0].Entries, ShouldHaveLength, 2)
			So(certs[0].Entries[0].EventTitle, ShouldEqual, "15mクロール")
			So(certs[0].Entries[0].TimeText, ShouldEqual, "11秒68")
			So(certs[0].Entries[1].EventTitle, ShouldEqual, "30mクロール")
			So(certs[0].IssueLabel, ShouldEqual, "2025年9月")
			So(certs[0].FileName, ShouldEqual, "宮之下 虎太朗_2025年9月_record.pdf")
		})
	})

	Convey("Given a missing kana", t, func() {
		r := baseRow()
		r.FullNameKana = "  "
		certs, err := certificate.BuildRecordCertificates([]model.ResultRow{r}, nil)
		So(err, ShouldBeNil)
		So(certs[0].Athlete.FullNameKana, ShouldEqual, "宮之下 虎太朗")
	})

	Convey("Given a fixed issue month", t, func() {
		certs, err := certificate.BuildRecordCertificates([]model.ResultRow{baseRow()}, &certificate.Issue{Year: 2026, Month: 2})
		So(err, ShouldBeNil)
		So(certs[0].IssueLabel, ShouldEqual, "2026年2月")
		So(certs[0].FileName, ShouldContainSubstring, "2026年2月")
	})

	Convey("Given two athletes with the same name", t, func() {
		second := baseRow()
		second.AthleteID = "athlete-2"
		certs, err := certificate.BuildRecordCertificates([]model.ResultRow{baseRow(), second}, nil)
		So(err, ShouldBeNil)

		Convey("Then their file names differ", func() {
			So(certs, ShouldHaveLength, 2)
			So(certs[0].FileName, ShouldNotEqual, certs[1].FileName)
		})
	})
}

func TestDisplayEntries(t *testing.T) {
	entries := make([]certificate.Entry, 7)
	for i := range entries {
		entries[i] = certificate.Entry{EventTitle: fmt.Sprintf("%d種目", i+1), TimeText: fmt.Sprintf("%d秒", i+1), TimeMs: (i + 1) * 1000}
	}

	got := certificate.DisplayEntries(entries)
	if len(got) != 7 || got[6].EventTitle != "..." || got[6].TimeText != "..." || got[5].EventTitle != "6種目" {
		t.Fatalf("DisplayEntries() = %+v", got)
	}
	if short := certificate.DisplayEntries(entries[:6]); len(short) != 6 {
		t.Errorf("DisplayEntries(6) kept %d entries", len(short))
	}
}

func TestBuildFirstPrizeAwards(t *testing.T) {
	prizeRow := func(name string) model.ResultRow {
		return model.ResultRow{
			FullName:     name,
			FullNameKana: "とくしげ みなと",
			Grade:        1,
			Gender:       model.GenderMale,
			EventTitle:   "15m板キック",
			TimeText:     "2分1秒77",
			TimeMs:       121770,
			HeldOn:       time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC),
		}
	}

	Convey("Given tied winners", t, func() {
		awards, err := certificate.BuildFirstPrizeAwards([]model.ResultRow{prizeRow("徳重 湊仁"), prizeRow("宮之下 虎太朗")}, nil)
		So(err, ShouldBeNil)

		Convey("Then each gets an award in input order", func() {
			So(awards, ShouldHaveLength, 2)
			So(awards[0].Athlete.FullName, ShouldEqual, "徳重 湊仁")
			So(awards[1].Athlete.FullName, ShouldEqual, "宮之下 虎太朗")
			So(awards[0].FileName, ShouldEqual, "徳重 湊仁_15m板キック_年少_男子_2025年9月_first_prize.pdf")
		})
	})

	Convey("Given the same row twice", t, func() {
		awards, err := certificate.BuildFirstPrizeAwards([]model.ResultRow{prizeRow("徳重 湊仁"), prizeRow("徳重 湊仁")}, &certificate.Issue{Year: 2026, Month: 2})
		So(err, ShouldBeNil)
		So(awards[0].IssueLabel, ShouldEqual, "2026年2月")
		So(awards[1].FileName, ShouldEqual, strings.TrimSuffix(awards[0].FileName, ".pdf")+"_2.pdf")
	})
}

func TestSanitizePart(t *testing.T) {
	tests := map[string]string{
		"山田/太郎":                  "山田_太郎",
		"a:*?b":                  "a_b",
		"  山田 \t 太郎 ":            "山田 _ 太郎",
		"   ":                    "unknown",
		strings.Repeat("あ", 100): strings.Repeat("あ", 80),
	}
	for in, want := range tests {
		if got := certificate.SanitizePart(in); got != want {
			t.Errorf("SanitizePart(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNamer(t *testing.T) {
	Convey("Given a namer", t, func() {
		n := certificate.NewNamer()

		Convey("Then collisions are numbered from 2", func() {
			first, err := n.Unique("a.pdf")
			So(err, ShouldBeNil)
			second, err := n.Unique("a.pdf")
			So(err, ShouldBeNil)
			third, err := n.Unique("a.pdf")
			So(err, ShouldBeNil)
			So([]string{first, second, third}, ShouldResemble, []string{"a.pdf", "a_2.pdf", "a_3.pdf"})
		})

		Convey("Then the sequence is bounded", func() {
			var err error
			for i := 0; i < 10000 && err == nil; i++ {
				_, err = n.Unique("b.pdf")
			}
			So(errors.Is(err, certificate.ErrDuplicateFilenameExhausted), ShouldBeTrue)
		})
	})
}
