// Package history arranges one child's results for the history view.
package history

import (
	"cmp"
	"slices"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// SchoolYear returns the Japanese school year of t. Years start in April,
// so 2025-03-31 belongs to 2024.
func SchoolYear(t time.Time) int {
	t = t.UTC()
	if t.Month() >= time.April {
		return t.Year()
	}
	return t.Year() - 1
}

// SchoolYearGroup is the rows of one school year, newest first.
type SchoolYearGroup struct {
	SchoolYear int               `json:"schoolYear"`
	Results    []model.ResultRow `json:"results"`
}

// GroupBySchoolYear buckets rows by school year, newest year first.
func GroupBySchoolYear(rows []model.ResultRow) []SchoolYearGroup {
	byYear := make(map[int][]model.ResultRow)
	for _, r := range rows {
		y := SchoolYear(r.HeldOn)
		byYear[y] = append(byYear[y], r)
	}

	groups := make([]SchoolYearGroup, 0, len(byYear))
	for y, results := range byYear {
		slices.SortStableFunc(results, func(a, b model.ResultRow) int {
			return b.HeldOn.Compare(a.HeldOn)
		})
		groups = append(groups, SchoolYearGroup{SchoolYear: y, Results: results})
	}
	slices.SortFunc(groups, func(a, b SchoolYearGroup) int {
		return cmp.Compare(b.SchoolYear, a.SchoolYear)
	})
	return groups
}

// Child is one person found across per-grade athlete records.
type Child struct {
	FullName string       `json:"fullName"`
	Gender   model.Gender `json:"gender"`
	Grades   []int        `json:"grades"`
}

type childKey struct {
	name   string
	gender model.Gender
}

// GroupAthletesByChild merges athletes sharing a whitespace-insensitive
// name and gender. Grades are unique and ascending; the first spelling
// of the name is kept.
func GroupAthletesByChild(athletes []model.Athlete) []Child {
	index := make(map[childKey]int)
	out := make([]Child, 0)
	for _, a := range athletes {
		k := childKey{name: textnorm.NameSearchKey(a.FullName), gender: a.Gender}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Child{FullName: a.FullName, Gender: a.Gender})
		}
		if !slices.Contains(out[i].Grades, a.Grade) {
			out[i].Grades = append(out[i].Grades, a.Grade)
		}
	}

	for i := range out {
		slices.Sort(out[i].Grades)
	}
	slices.SortStableFunc(out, func(a, b Child) int {
		if c := textnorm.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return cmp.Compare(a.Gender.Order(), b.Gender.Order())
	})
	return out
}
