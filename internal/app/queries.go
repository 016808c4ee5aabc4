package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/repository"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/certificate"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/docsfilter"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/historical"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/report"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

const (
	podiumRank = 3

	msgMonthRequiredRanking    = "ランキング出力には年・月の指定が必要です"
	msgMonthRequiredHistorical = "歴代1位出力には年・月の指定が必要です"
	msgNoMatchingRows          = "条件に一致するランキングデータがありません"
	msgNoRankingRows           = "ランキング対象データがありません"
)

// MeetRanking is the podium ranking of one meet.
type MeetRanking struct {
	MeetID string                `json:"meetId"`
	Title  string                `json:"title"`
	Label  string                `json:"label"`
	HeldOn time.Time             `json:"heldOn"`
	Groups []report.RankingGroup `json:"groups"`
	Pages  []report.Page         `json:"pages"`
}

// ChallengeRanking is the monthly ranking of the challenge course.
type ChallengeRanking struct {
	PeriodLabel string                       `json:"periodLabel"`
	Events      []report.ChallengeEventGroup `json:"events"`
	Sheets      []ChallengeSheet             `json:"sheets"`
}

// ChallengeSheet is one event printed as fixed rank rows per grade.
type ChallengeSheet struct {
	EventTitle string                `json:"eventTitle"`
	Grades     []ChallengeSheetGrade `json:"grades"`
}

type ChallengeSheetGrade struct {
	Grade      int               `json:"grade"`
	GradeLabel string            `json:"gradeLabel"`
	Male       []report.TableRow `json:"male"`
	Female     []report.TableRow `json:"female"`
}

// HistoricalFirsts lists the all-time first places as of a month.
type HistoricalFirsts struct {
	PeriodLabel string                       `json:"periodLabel"`
	Groups      []historical.Group           `json:"groups"`
	Rankings    []report.RankingGroup        `json:"rankings"`
	Challenge   []report.ChallengeEventGroup `json:"challenge"`
}

// documentRows loads the rows a document covers. Without a month only
// the latest meet is used.
func documentRows(ctx context.Context, store repository.Store, program model.Program, f docsfilter.Filter) ([]model.ResultRow, error) {
	rows, err := store.FindRows(ctx, f.RowQuery(program))
	if err != nil {
		return nil, err
	}
	rows = slices.DeleteFunc(rows, func(r model.ResultRow) bool { return !f.MatchesMeet(r.MeetTitle) })
	if !f.HasMonth {
		rows = latestMeetRows(rows)
	}
	return rows, nil
}

func latestMeetRows(rows []model.ResultRow) []model.ResultRow {
	if len(rows) == 0 {
		return rows
	}
	latest := rows[0]
	for _, r := range rows[1:] {
		if c := r.HeldOn.Compare(latest.HeldOn); c > 0 || (c == 0 && textnorm.Compare(r.MeetTitle, latest.MeetTitle) > 0) {
			latest = r
		}
	}
	return slices.DeleteFunc(rows, func(r model.ResultRow) bool { return r.MeetID != latest.MeetID })
}

// splitByMeet groups rows per meet ordered by date then title.
func splitByMeet(rows []model.ResultRow) [][]model.ResultRow {
	index := make(map[string]int)
	out := make([][]model.ResultRow, 0)
	for _, r := range rows {
		i, ok := index[r.MeetID]
		if !ok {
			i = len(out)
			index[r.MeetID] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], r)
	}
	slices.SortStableFunc(out, func(a, b []model.ResultRow) int {
		if c := a[0].HeldOn.Compare(b[0].HeldOn); c != 0 {
			return c
		}
		return textnorm.Compare(a[0].MeetTitle, b[0].MeetTitle)
	})
	return out
}

// MeetRankings returns the top three of every event per meet. Without a
// month filter only the latest meet is ranked.
func (s *Service) MeetRankings(ctx context.Context, program model.Program, f docsfilter.Filter) ([]MeetRanking, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	rows, err := documentRows(ctx, store, program, f)
	if err != nil {
		return nil, err
	}
	rows = slices.DeleteFunc(rows, func(r model.ResultRow) bool { return r.Rank < 1 || r.Rank > podiumRank })

	out := make([]MeetRanking, 0)
	for _, meetRows := range splitByMeet(rows) {
		groups := report.MeetRankingGroups(meetRows, s.names)
		if len(groups) == 0 {
			continue
		}
		first := meetRows[0]
		out = append(out, MeetRanking{
			MeetID: first.MeetID,
			Title:  first.MeetTitle,
			Label:  meetctx.FormatLabel(first.MeetTitle, first.HeldOn),
			HeldOn: first.HeldOn,
			Groups: groups,
			Pages:  report.Paginate(groups, s.pages),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, msgNoMatchingRows)
	}
	return out, nil
}

// ChallengeRankings ranks the challenge course within the filter's month.
// Repeat swims of one child count once.
func (s *Service) ChallengeRankings(ctx context.Context, f docsfilter.Filter) (ChallengeRanking, error) {
	store, err := s.running()
	if err != nil {
		return ChallengeRanking{}, err
	}
	if !f.HasMonth {
		return ChallengeRanking{}, fmt.Errorf("%w: %s", ErrInvalidInput, msgMonthRequiredRanking)
	}
	rows, err := documentRows(ctx, store, model.ProgramChallenge, f)
	if err != nil {
		return ChallengeRanking{}, err
	}
	ranks, err := rank.MonthlyClass(rank.SourcesFromRows(rows))
	if err != nil {
		return ChallengeRanking{}, err
	}
	ranked := make([]model.ResultRow, 0, len(rows))
	for _, r := range rows {
		if n := ranks[r.ID]; n > 0 {
			r.Rank = n
			ranked = append(ranked, r)
		}
	}
	if len(ranked) == 0 {
		return ChallengeRanking{}, fmt.Errorf("%w: %s", ErrNoData, msgNoRankingRows)
	}

	events := report.ChallengeEventGroups(ranked, report.ChallengeOptions{
		Names:          s.names,
		MinRank:        1,
		MaxRank:        podiumRank,
		GradeRangeMode: report.GradeRangeExisting,
	})
	return ChallengeRanking{
		PeriodLabel: meetctx.MonthLabel(f.MonthStart),
		Events:      events,
		Sheets:      challengeSheets(events),
	}, nil
}

func challengeSheets(events []report.ChallengeEventGroup) []ChallengeSheet {
	opts := report.TableOptions{MinRank: 1, MaxRank: podiumRank}
	sheets := make([]ChallengeSheet, 0, len(events))
	for _, ev := range events {
		sheet := ChallengeSheet{EventTitle: ev.EventTitle, Grades: make([]ChallengeSheetGrade, 0, len(ev.GradeGroups))}
		for _, g := range ev.GradeGroups {
			sheet.Grades = append(sheet.Grades, ChallengeSheetGrade{
				Grade:      g.Grade,
				GradeLabel: grade.Label(g.Grade),
				Male:       report.ChallengeTableRows(g.MaleEntries, opts),
				Female:     report.ChallengeTableRows(g.FemaleEntries, opts),
			})
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// HistoricalFirsts lists every class's all-time best as of the end of the
// filter's month, marking records set inside that month.
func (s *Service) HistoricalFirsts(ctx context.Context, program model.Program, f docsfilter.Filter) (HistoricalFirsts, error) {
	store, err := s.running()
	if err != nil {
		return HistoricalFirsts{}, err
	}
	if !f.HasMonth {
		return HistoricalFirsts{}, fmt.Errorf("%w: %s", ErrInvalidInput, msgMonthRequiredHistorical)
	}
	rows, err := store.FindRows(ctx, model.RowQuery{Program: program, To: f.MonthEnd})
	if err != nil {
		return HistoricalFirsts{}, err
	}

	window := historical.Window{Start: f.MonthStart, End: f.MonthEnd}
	groups := historical.Firsts(rows, &window)
	if len(groups) == 0 {
		return HistoricalFirsts{}, fmt.Errorf("%w: %s", ErrNoData, msgNoRankingRows)
	}
	return HistoricalFirsts{
		PeriodLabel: meetctx.MonthLabel(f.MonthStart),
		Groups:      groups,
		Rankings:    report.HistoricalFirstRankingGroups(rows, &window, s.names),
		Challenge: report.HistoricalFirstChallengeGroups(rows, &window, report.ChallengeOptions{
			Names:              s.names,
			MinRank:            1,
			MaxRank:            1,
			ExcludeOtherGender: true,
			GradeRangeMode:     report.GradeRangeExisting,
		}),
	}, nil
}

// Certificates builds record certificates for the rows a document covers.
func (s *Service) Certificates(ctx context.Context, program model.Program, f docsfilter.Filter) ([]certificate.RecordCertificate, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	rows, err := documentRows(ctx, store, program, f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, msgNoMatchingRows)
	}
	return certificate.BuildRecordCertificates(rows, issueOf(f))
}

// FirstPrizes builds one award per first place the document covers.
func (s *Service) FirstPrizes(ctx context.Context, program model.Program, f docsfilter.Filter) ([]certificate.FirstPrizeAward, error) {
	store, err := s.running()
	if err != nil {
		return nil, err
	}
	rows, err := documentRows(ctx, store, program, f)
	if err != nil {
		return nil, err
	}
	rows = slices.DeleteFunc(rows, func(r model.ResultRow) bool { return r.Rank != 1 })
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, msgNoMatchingRows)
	}
	return certificate.BuildFirstPrizeAwards(rows, issueOf(f))
}

func issueOf(f docsfilter.Filter) *certificate.Issue {
	if y, m, ok := f.IssueMonth(); ok {
		return &certificate.Issue{Year: y, Month: m}
	}
	return nil
}

// orderedGrades returns the distinct grades of rows, ascending.
func orderedGrades(rows []model.ResultRow) []int {
	grades := make([]int, 0)
	for _, r := range rows {
		if !slices.Contains(grades, r.Grade) {
			grades = append(grades, r.Grade)
		}
	}
	slices.SortFunc(grades, cmp.Compare[int])
	return grades
}
