package grade_test

import (
	"strconv"
	"testing"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLabels(t *testing.T) {
	Convey("Given numeric grades", t, func() {
		Convey("Then long labels cover every school stage", func() {
			So(grade.Label(0), ShouldEqual, "年少々")
			So(grade.Label(2), ShouldEqual, "年中")
			So(grade.Label(3), ShouldEqual, "年長")
			So(grade.Label(4), ShouldEqual, "小学1年生")
			So(grade.Label(9), ShouldEqual, "小学6年生")
			So(grade.Label(10), ShouldEqual, "中学1年生")
			So(grade.Label(15), ShouldEqual, "高校3年生")
			So(grade.Label(16), ShouldEqual, "16年")
			So(grade.Label(-1), ShouldEqual, "-1年")
		})

		Convey("Then short labels are compact", func() {
			So(grade.ShortLabel(1), ShouldEqual, "年少")
			So(grade.ShortLabel(5), ShouldEqual, "小2")
			So(grade.ShortLabel(12), ShouldEqual, "中3")
			So(grade.ShortLabel(13), ShouldEqual, "高1")
		})

		Convey("Then elementary-first labels treat 1..6 as elementary", func() {
			So(grade.ElementaryFirstLabel(1), ShouldEqual, "小学1年生")
			So(grade.ElementaryFirstLabel(6), ShouldEqual, "小学6年生")
			So(grade.ElementaryFirstLabel(0), ShouldEqual, "年少々")
			So(grade.ElementaryFirstLabel(10), ShouldEqual, "中学1年生")
		})
	})
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"年少々":   "0",
		"年少":    "1",
		"年中":    "2",
		" 年長 ":  "3",
		"小2":    "5",
		"小学6年生": "9",
		"中学3年生": "12",
		"中1":    "10",
		"高校2年":  "14",
		"5":     "5",
		"１２":    "12",
		"小7":    "小7",
		"大人":    "大人",
		"":      "",
	}
	for in, want := range cases {
		if got := grade.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

type row struct {
	Name  string
	Grade string
}

func TestFilterChallenge(t *testing.T) {
	Convey("Given rows with mixed grade strings", t, func() {
		rows := []row{
			{"a", "1"}, {"b", "15"}, {"c", " 7 "},
			{"d", "0"}, {"e", "16"}, {"f", "年中"}, {"g", ""}, {"h", "x"}, {"i", "2.5"},
		}

		result := grade.FilterChallenge(rows, func(r row) string { return r.Grade })

		Convey("Then only integer grades within 1..15 are accepted", func() {
			names := make([]string, 0, len(result.Accepted))
			for _, r := range result.Accepted {
				names = append(names, r.Name)
			}
			So(names, ShouldResemble, []string{"a", "b", "c"})
			So(result.Skipped, ShouldEqual, 6)
		})
	})

	Convey("Given the long label of every stored grade", t, func() {
		Convey("Then normalizing the label returns the grade", func() {
			for g := 0; g <= grade.ChallengeMax; g++ {
				So(grade.Normalize(grade.Label(g)), ShouldEqual, strconv.Itoa(g))
			}
		})
	})
}
