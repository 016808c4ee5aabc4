package report

import (
	"cmp"
	"slices"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/historical"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// GradeRangeMode controls which grade rows a challenge event shows.
type GradeRangeMode string

const (
	// GradeRangeExisting shows grades that have entries.
	GradeRangeExisting GradeRangeMode = "existing"
	// GradeRangeMinToMax fills every grade between the lowest and highest.
	GradeRangeMinToMax GradeRangeMode = "minToMax"
)

// ChallengeOptions configures challenge grouping. Zero MinRank or MaxRank
// means unbounded.
type ChallengeOptions struct {
	Names              NameOptions
	MinRank            int
	MaxRank            int
	ExcludeOtherGender bool
	GradeRangeMode     GradeRangeMode
}

// ChallengeGradeGroup is one grade row with male entries on the left and
// everyone else on the right.
type ChallengeGradeGroup struct {
	Grade         int            `json:"grade"`
	MaleEntries   []RankingEntry `json:"maleEntries"`
	FemaleEntries []RankingEntry `json:"femaleEntries"`
}

// ChallengeEventGroup is one event sheet of the challenge course.
type ChallengeEventGroup struct {
	EventTitle  string                `json:"eventTitle"`
	GradeGroups []ChallengeGradeGroup `json:"gradeGroups"`
}

var fixedEventOrder = []string{
	"15m板キック",
	"15m板クロール",
	"15mクロール",
	"30mクロール",
	"15m平泳ぎ",
	"30m平泳ぎ",
}

func eventOrder(titleKey string) int {
	for i, t := range fixedEventOrder {
		if textnorm.TitleKey(t) == titleKey {
			return i
		}
	}
	return len(fixedEventOrder)
}

type challengeItem struct {
	title  string
	grade  int
	gender model.Gender
	entry  RankingEntry
}

// ChallengeEventGroups groups ranked challenge rows by event title and
// grade. Title variants that differ in width or spacing share a group.
func ChallengeEventGroups(rows []model.ResultRow, opts ChallengeOptions) []ChallengeEventGroup {
	items := make([]challengeItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, challengeItem{
			title:  r.EventTitle,
			grade:  r.Grade,
			gender: r.Gender,
			entry:  entryOf(r, opts.Names),
		})
	}
	slices.SortStableFunc(items, func(a, b challengeItem) int {
		return byRankThenName(a.entry, b.entry)
	})
	return buildChallenge(items, opts)
}

// HistoricalFirstChallengeGroups lays out all-time first rows in the
// challenge sheet shape.
func HistoricalFirstChallengeGroups(rows []model.ResultRow, window *historical.Window, opts ChallengeOptions) []ChallengeEventGroup {
	items := make([]challengeItem, 0)
	for _, f := range historical.Firsts(rows, window) {
		for _, e := range f.Entries {
			items = append(items, challengeItem{
				title:  f.Title,
				grade:  f.Class.Grade,
				gender: f.Class.Gender,
				entry:  historicalEntry(e, opts.Names),
			})
		}
	}
	return buildChallenge(items, opts)
}

func buildChallenge(items []challengeItem, opts ChallengeOptions) []ChallengeEventGroup {
	type eventAcc struct {
		key    string
		title  string
		grades map[int]*ChallengeGradeGroup
	}

	index := make(map[string]int)
	events := make([]*eventAcc, 0)
	for _, it := range items {
		if opts.MinRank > 0 && it.entry.Rank < opts.MinRank {
			continue
		}
		if opts.MaxRank > 0 && it.entry.Rank > opts.MaxRank {
			continue
		}
		if opts.ExcludeOtherGender && it.gender == model.GenderOther {
			continue
		}

		key := textnorm.TitleKey(it.title)
		i, ok := index[key]
		if !ok {
			i = len(events)
			index[key] = i
			events = append(events, &eventAcc{
				key:    key,
				title:  textnorm.CollapseSpace(it.title),
				grades: make(map[int]*ChallengeGradeGroup),
			})
		}
		ev := events[i]
		gg, ok := ev.grades[it.grade]
		if !ok {
			gg = newGradeGroup(it.grade)
			ev.grades[it.grade] = gg
		}
		if it.gender == model.GenderMale {
			gg.MaleEntries = append(gg.MaleEntries, it.entry)
		} else {
			gg.FemaleEntries = append(gg.FemaleEntries, it.entry)
		}
	}

	slices.SortStableFunc(events, func(a, b *eventAcc) int {
		if c := cmp.Compare(eventOrder(a.key), eventOrder(b.key)); c != 0 {
			return c
		}
		return textnorm.Compare(a.title, b.title)
	})

	out := make([]ChallengeEventGroup, 0, len(events))
	for _, ev := range events {
		grades := make([]int, 0, len(ev.grades))
		for g := range ev.grades {
			grades = append(grades, g)
		}
		slices.Sort(grades)
		if opts.GradeRangeMode == GradeRangeMinToMax && len(grades) > 0 {
			filled := make([]int, 0, grades[len(grades)-1]-grades[0]+1)
			for g := grades[0]; g <= grades[len(grades)-1]; g++ {
				filled = append(filled, g)
			}
			grades = filled
		}

		group := ChallengeEventGroup{EventTitle: ev.title, GradeGroups: make([]ChallengeGradeGroup, 0, len(grades))}
		for _, g := range grades {
			gg, ok := ev.grades[g]
			if !ok {
				gg = newGradeGroup(g)
			}
			group.GradeGroups = append(group.GradeGroups, *gg)
		}
		out = append(out, group)
	}
	return out
}

func newGradeGroup(g int) *ChallengeGradeGroup {
	return &ChallengeGradeGroup{
		Grade:         g,
		MaleEntries:   []RankingEntry{},
		FemaleEntries: []RankingEntry{},
	}
}
