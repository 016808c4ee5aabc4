// Package historical finds the all-time fastest swims per event class
// and flags those first reached inside a target month.
package historical

import (
	"cmp"
	"slices"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// Window is the half-open target month [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthWindow returns the UTC window of the month containing t.
func MonthWindow(t time.Time) Window {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Entry is one row tied at the class's all-time best.
type Entry struct {
	model.ResultRow
	IsNewRecordInTargetMonth bool   `json:"isNewRecordInTargetMonth"`
	RecordMonthLabel         string `json:"recordMonthLabel"`
}

// Group holds the first-place entries of one event class. Title is the
// first title seen for the class.
type Group struct {
	Class   rank.EventClassKey `json:"-"`
	Title   string             `json:"eventTitle"`
	Entries []Entry            `json:"entries"`
}

// Firsts groups rows by event class and returns every row tied at the
// class minimum, ordered by time, date then name. When window is set an
// entry is marked new if it was swum inside the window and the same
// athlete held no tied row before the window started.
func Firsts(rows []model.ResultRow, window *Window) []Group {
	byClass := make(map[rank.EventClassKey][]model.ResultRow)
	order := make([]rank.EventClassKey, 0)
	for _, r := range rows {
		k := rank.ClassKeyOf(r)
		if _, ok := byClass[k]; !ok {
			order = append(order, k)
		}
		byClass[k] = append(byClass[k], r)
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		members := byClass[k]
		best := members[0].TimeMs
		for _, r := range members[1:] {
			best = min(best, r.TimeMs)
		}

		tied := make([]model.ResultRow, 0, 1)
		for _, r := range members {
			if r.TimeMs == best {
				tied = append(tied, r)
			}
		}
		slices.SortStableFunc(tied, func(a, b model.ResultRow) int {
			if c := cmp.Compare(a.TimeMs, b.TimeMs); c != 0 {
				return c
			}
			if c := a.HeldOn.Compare(b.HeldOn); c != 0 {
				return c
			}
			return textnorm.Compare(a.FullName, b.FullName)
		})

		heldBefore := make(map[string]bool)
		if window != nil {
			for _, r := range tied {
				if r.HeldOn.Before(window.Start) {
					heldBefore[identity(r)] = true
				}
			}
		}

		entries := make([]Entry, len(tied))
		for i, r := range tied {
			entries[i] = Entry{
				ResultRow:        r,
				RecordMonthLabel: meetctx.MonthLabel(r.HeldOn),
			}
			if window != nil && window.Contains(r.HeldOn) && !heldBefore[identity(r)] {
				entries[i].IsNewRecordInTargetMonth = true
			}
		}
		groups = append(groups, Group{Class: k, Title: members[0].EventTitle, Entries: entries})
	}
	return groups
}

func identity(r model.ResultRow) string {
	if r.AthleteID != "" {
		return "id:" + r.AthleteID
	}
	return "name:" + textnorm.NameSearchKey(r.FullName)
}
