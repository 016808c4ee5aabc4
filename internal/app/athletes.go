package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/repository"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/besttime"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/historical"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/history"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/report"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/swimtime"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

const maxSearchNameRunes = 80

// RankCell is one rank stat with its printed forms. Labels are empty when
// the row is unranked in the scope.
type RankCell struct {
	rank.Stat
	RankLabel     string `json:"rankLabel,omitempty"`
	TopLabel      string `json:"topLabel,omitempty"`
	FractionLabel string `json:"fractionLabel,omitempty"`
}

func cellOf(st rank.Stat) RankCell {
	c := RankCell{Stat: st}
	if st.Rank > 0 {
		c.RankLabel = strconv.Itoa(st.Rank) + "位"
		c.TopLabel = "上位" + strconv.Itoa(st.TopPercent) + "%"
		c.FractionLabel = fmt.Sprintf("%d人中%d位", st.Total, st.Rank)
	}
	return c
}

// HistoryResult is one swim with its standing in every scope.
type HistoryResult struct {
	model.ResultRow
	DisplayTime    string   `json:"displayTime"`
	MonthlyClass   RankCell `json:"monthlyClass"`
	MonthlyOverall RankCell `json:"monthlyOverall"`
	AllTimeClass   RankCell `json:"allTimeClass"`
}

// MeetHistory is the swims of one meet, newest meet first.
type MeetHistory struct {
	MeetID  string             `json:"meetId"`
	Title   string             `json:"title"`
	Label   string             `json:"label"`
	HeldOn  time.Time          `json:"heldOn"`
	Labels  report.ScopeLabels `json:"labels"`
	Results []HistoryResult    `json:"results"`
}

// AthleteHistory is everything one child swam in the swimming program.
type AthleteHistory struct {
	FullName    string                    `json:"fullName"`
	Gender      model.Gender              `json:"gender"`
	Grades      []int                     `json:"grades"`
	BestTimes   []model.ResultRow         `json:"bestTimes"`
	SchoolYears []history.SchoolYearGroup `json:"schoolYears"`
	Meets       []MeetHistory             `json:"meets"`
}

func searchName(fullName string) (string, error) {
	name := textnorm.NormalizeFullName(fullName)
	if name == "" {
		return "", fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	if len([]rune(name)) > maxSearchNameRunes {
		return "", fmt.Errorf("%w: full name longer than %d characters", ErrInvalidInput, maxSearchNameRunes)
	}
	return name, nil
}

// childRows loads swimming rows of name, preferring exact spellings over
// whitespace-insensitive matches.
func childRows(ctx context.Context, store repository.Store, name string, gender model.Gender) ([]model.ResultRow, error) {
	rows, err := store.FindRows(ctx, model.RowQuery{
		Program:        model.ProgramSwimming,
		AthleteNameKey: textnorm.NameSearchKey(name),
		Gender:         gender,
	})
	if err != nil {
		return nil, err
	}
	exact := make([]model.ResultRow, 0, len(rows))
	for _, r := range rows {
		if textnorm.NormalizeFullName(r.FullName) == name {
			exact = append(exact, r)
		}
	}
	if len(exact) > 0 {
		return exact, nil
	}
	return rows, nil
}

// SearchAthletes finds swimming athletes by name and merges their
// per-grade records into children.
func (s *Service) SearchAthletes(ctx context.Context, fullName string) ([]history.Child, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	name, err := searchName(fullName)
	if err != nil {
		return nil, err
	}
	rows, err := childRows(ctx, store, name, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	athletes := make([]model.Athlete, 0)
	for _, r := range rows {
		if _, ok := seen[r.AthleteID]; ok {
			continue
		}
		seen[r.AthleteID] = struct{}{}
		athletes = append(athletes, model.Athlete{
			ID:           r.AthleteID,
			FullName:     r.FullName,
			FullNameKana: r.FullNameKana,
			Grade:        r.Grade,
			Gender:       r.Gender,
		})
	}
	return history.GroupAthletesByChild(athletes), nil
}

// BestTimes returns one child's personal best per race in program.
func (s *Service) BestTimes(ctx context.Context, program model.Program, fullName string, gender model.Gender) ([]model.ResultRow, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	name, err := searchName(fullName)
	if err != nil {
		return nil, err
	}
	rows, err := store.FindRows(ctx, model.RowQuery{
		Program:        program,
		AthleteNameKey: textnorm.NameSearchKey(name),
		Gender:         gender,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no results for %s", ErrNoData, name)
	}
	return besttime.Select(rows), nil
}

// AthleteHistory returns a child's swimming history with rank stats in
// every scope. Gender is required when the name matches children of
// both genders.
func (s *Service) AthleteHistory(ctx context.Context, fullName string, gender model.Gender) (AthleteHistory, error) {
	store, err := s.running()
	if err != nil {
		return AthleteHistory{}, err
	}
	name, err := searchName(fullName)
	if err != nil {
		return AthleteHistory{}, err
	}
	rows, err := childRows(ctx, store, name, gender)
	if err != nil {
		return AthleteHistory{}, err
	}
	if len(rows) == 0 {
		return AthleteHistory{}, fmt.Errorf("%w: no results for %s", ErrNoData, name)
	}
	if gender == "" {
		gender = rows[0].Gender
		for _, r := range rows[1:] {
			if r.Gender != gender {
				return AthleteHistory{}, fmt.Errorf("%w: gender is required for %s", ErrInvalidInput, name)
			}
		}
	}

	stats, err := s.historyStats(ctx, store, rows)
	if err != nil {
		return AthleteHistory{}, err
	}

	byDate := slices.Clone(rows)
	slices.SortStableFunc(byDate, func(a, b model.ResultRow) int { return b.HeldOn.Compare(a.HeldOn) })

	h := AthleteHistory{
		FullName:    rows[0].FullName,
		Gender:      gender,
		Grades:      orderedGrades(rows),
		BestTimes:   besttime.Select(rows),
		SchoolYears: history.GroupBySchoolYear(slices.Clone(rows)),
	}
	index := make(map[string]int)
	for _, r := range byDate {
		i, ok := index[r.MeetID]
		if !ok {
			i = len(h.Meets)
			index[r.MeetID] = i
			h.Meets = append(h.Meets, MeetHistory{
				MeetID: r.MeetID,
				Title:  r.MeetTitle,
				Label:  meetctx.FormatLabel(r.MeetTitle, r.HeldOn),
				HeldOn: r.HeldOn,
			})
		}
		h.Meets[i].Results = append(h.Meets[i].Results, HistoryResult{
			ResultRow:      r,
			DisplayTime:    swimtime.FormatForDocument(r.TimeText, r.TimeMs),
			MonthlyClass:   cellOf(stats.monthlyClass[r.ID]),
			MonthlyOverall: cellOf(stats.monthlyOverall[r.ID]),
			AllTimeClass:   cellOf(stats.allTimeClass[r.ID]),
		})
	}
	for i := range h.Meets {
		m := &h.Meets[i]
		grades := make([]int, 0, 1)
		for _, r := range m.Results {
			if !slices.Contains(grades, r.Grade) {
				grades = append(grades, r.Grade)
			}
		}
		if len(grades) == 1 {
			m.Labels = report.AthleteScopeLabels(grades[0], gender)
		} else {
			m.Labels = report.ChildHistoryScopeLabels(gender)
		}
	}
	return h, nil
}

type scopeStats struct {
	monthlyClass   map[string]rank.Stat
	monthlyOverall map[string]rank.Stat
	allTimeClass   map[string]rank.Stat
}

// historyStats ranks rows against every swimming row of their month and
// against the all-time pool up to each swim's date.
func (s *Service) historyStats(ctx context.Context, store repository.Store, rows []model.ResultRow) (scopeStats, error) {
	out := scopeStats{
		monthlyClass:   make(map[string]rank.Stat),
		monthlyOverall: make(map[string]rank.Stat),
	}

	months := make([]historical.Window, 0)
	var last time.Time
	for _, r := range rows {
		w := historical.MonthWindow(r.HeldOn)
		if !slices.Contains(months, w) {
			months = append(months, w)
		}
		if w.End.After(last) {
			last = w.End
		}
	}

	for _, w := range months {
		pool, err := store.FindRows(ctx, model.RowQuery{Program: model.ProgramSwimming, From: w.Start, To: w.End})
		if err != nil {
			return scopeStats{}, err
		}
		sources := rank.SourcesFromRows(pool)
		class, err := rank.Stats(rank.ScopeMonthlyClass, sources)
		if err != nil {
			return scopeStats{}, err
		}
		overall, err := rank.Stats(rank.ScopeMonthlyOverall, sources)
		if err != nil {
			return scopeStats{}, err
		}
		for _, r := range rows {
			if !w.Contains(r.HeldOn) {
				continue
			}
			if st, ok := class[r.ID]; ok {
				out.monthlyClass[r.ID] = st
			}
			if st, ok := overall[r.ID]; ok {
				out.monthlyOverall[r.ID] = st
			}
		}
	}

	pool, err := store.FindRows(ctx, model.RowQuery{Program: model.ProgramSwimming, To: last})
	if err != nil {
		return scopeStats{}, err
	}
	allTime, err := rank.AllTimeClassStatsUpTo(rank.SourcesFromRows(rows), rank.SourcesFromRows(pool))
	if err != nil {
		return scopeStats{}, err
	}
	out.allTimeClass = allTime
	return out, nil
}
