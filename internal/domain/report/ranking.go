// Package report shapes ranked rows into the groups, tables and pages
// consumed by document renderers.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/historical"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// NameMode selects how preschool names are printed.
type NameMode string

const (
	NameModeFull     NameMode = "full"
	NameModeKanaOnly NameMode = "kanaOnly"
)

// NameOptions is the display-name policy.
type NameOptions struct {
	Mode              NameMode
	PreschoolMaxGrade int
}

// DefaultNameOptions prints full names for everyone.
func DefaultNameOptions() NameOptions {
	return NameOptions{Mode: NameModeFull, PreschoolMaxGrade: grade.PreschoolMax}
}

// DisplayName returns the kana reading for preschool grades in kana-only
// mode when one is recorded, and the full name otherwise.
func (o NameOptions) DisplayName(fullName, kana string, g int) string {
	if o.Mode == NameModeKanaOnly && g <= o.PreschoolMaxGrade {
		if k := strings.TrimSpace(kana); k != "" {
			return k
		}
	}
	return fullName
}

// RankingEntry is one printed line of a ranking.
type RankingEntry struct {
	Rank                     int    `json:"rank"`
	FullName                 string `json:"fullName"`
	DisplayName              string `json:"displayName"`
	TimeText                 string `json:"timeText"`
	IsNewRecordInTargetMonth bool   `json:"isNewRecordInTargetMonth,omitempty"`
	RecordMonthLabel         string `json:"recordMonthLabel,omitempty"`
}

// RankingGroup is the ranking of one event class.
type RankingGroup struct {
	EventID    string         `json:"eventId"`
	EventTitle string         `json:"eventTitle"`
	Grade      int            `json:"grade"`
	Gender     model.Gender   `json:"gender"`
	Entries    []RankingEntry `json:"entries"`
}

func entryOf(r model.ResultRow, names NameOptions) RankingEntry {
	return RankingEntry{
		Rank:        r.Rank,
		FullName:    r.FullName,
		DisplayName: names.DisplayName(r.FullName, r.FullNameKana, r.Grade),
		TimeText:    r.TimeText,
	}
}

func byRankThenName(a, b RankingEntry) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	return textnorm.Compare(a.FullName, b.FullName)
}

func sortGroups(groups []RankingGroup) {
	slices.SortStableFunc(groups, func(a, b RankingGroup) int {
		if c := textnorm.Compare(a.EventTitle, b.EventTitle); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Grade, b.Grade); c != 0 {
			return c
		}
		return cmp.Compare(a.Gender.Order(), b.Gender.Order())
	})
}

// MeetRankingGroups groups ranked rows of one meet by event. Entries are
// ordered by rank then name; groups by title, grade and gender.
func MeetRankingGroups(rows []model.ResultRow, names NameOptions) []RankingGroup {
	index := make(map[string]int)
	groups := make([]RankingGroup, 0)
	for _, r := range rows {
		i, ok := index[r.EventID]
		if !ok {
			i = len(groups)
			index[r.EventID] = i
			groups = append(groups, RankingGroup{
				EventID:    r.EventID,
				EventTitle: r.EventTitle,
				Grade:      r.Grade,
				Gender:     r.Gender,
			})
		}
		groups[i].Entries = append(groups[i].Entries, entryOf(r, names))
	}

	for i := range groups {
		slices.SortStableFunc(groups[i].Entries, byRankThenName)
	}
	sortGroups(groups)
	return groups
}

// HistoricalFirstRankingGroups lists the all-time first place rows per
// event class in the same shape as a meet ranking.
func HistoricalFirstRankingGroups(rows []model.ResultRow, window *historical.Window, names NameOptions) []RankingGroup {
	firsts := historical.Firsts(rows, window)
	groups := make([]RankingGroup, 0, len(firsts))
	for _, f := range firsts {
		g := RankingGroup{
			EventID:    classID(f),
			EventTitle: f.Title,
			Grade:      f.Class.Grade,
			Gender:     f.Class.Gender,
			Entries:    make([]RankingEntry, len(f.Entries)),
		}
		for i, e := range f.Entries {
			g.Entries[i] = historicalEntry(e, names)
		}
		groups = append(groups, g)
	}
	sortGroups(groups)
	return groups
}

func historicalEntry(e historical.Entry, names NameOptions) RankingEntry {
	entry := entryOf(e.ResultRow, names)
	entry.Rank = 1
	entry.IsNewRecordInTargetMonth = e.IsNewRecordInTargetMonth
	entry.RecordMonthLabel = e.RecordMonthLabel
	return entry
}

func classID(g historical.Group) string {
	k := g.Class
	return fmt.Sprintf("%s:%d:%s:%d:%s", k.Title, k.DistanceM, k.Style, k.Grade, k.Gender)
}
