package service

import (
	"context"
	"fmt"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/metrics"
)

// ImportPreview is the normalized content of an upload before it is saved.
type ImportPreview struct {
	Rows    []model.ImportRow `json:"rows"`
	Skipped int               `json:"skipped"`
	Message string            `json:"message,omitempty"`
}

// ImportSummary reports a confirmed import.
type ImportSummary struct {
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Targets  int    `json:"targets"`
	Message  string `json:"message"`
}

func skippedMessage(n int) string {
	return fmt.Sprintf("学年範囲外の%d行を除外しました（対象: 年少〜高校3年生 / %d〜%d）", n, grade.ChallengeMin, grade.ChallengeMax)
}

// filterProgram applies the challenge grade band. Other programs pass
// every row.
func filterProgram(program model.Program, rows []model.ImportRow) ([]model.ImportRow, int, error) {
	if program != model.ProgramChallenge {
		return rows, 0, nil
	}
	res := grade.FilterChallenge(rows, func(r model.ImportRow) string { return r.Grade })
	if res.Skipped > 0 {
		metrics.RecordCSVRowsSkipped("grade_band", res.Skipped)
	}
	if len(res.Accepted) == 0 {
		return nil, res.Skipped, fmt.Errorf("%w: %s", csvimport.ErrNoValidRows, skippedMessage(res.Skipped))
	}
	return res.Accepted, res.Skipped, nil
}

// PreviewImport normalizes uploads for program without saving anything.
// Every returned row already passes coercion.
func (s *Service) PreviewImport(ctx context.Context, program model.Program, uploads []csvimport.Upload) (ImportPreview, error) {
	if _, err := s.running(); err != nil {
		return ImportPreview{}, err
	}
	if _, err := model.ParseProgram(string(program)); err != nil {
		return ImportPreview{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	rows, err := s.normalizer.NormalizeAll(ctx, uploads)
	if err != nil {
		return ImportPreview{}, err
	}
	accepted, skipped, err := filterProgram(program, rows)
	if err != nil {
		return ImportPreview{}, err
	}
	for i, r := range accepted {
		if _, err := r.Canonical(); err != nil {
			return ImportPreview{}, fmt.Errorf("%w: row %d: %w", ErrInvalidInput, i+1, err)
		}
	}

	p := ImportPreview{Rows: accepted, Skipped: skipped}
	if skipped > 0 {
		p.Message = skippedMessage(skipped)
	}
	return p, nil
}

// ConfirmImport saves rows for program and schedules rank recomputes of
// every touched (meet, event) target. Rows are validated before any write.
func (s *Service) ConfirmImport(ctx context.Context, program model.Program, rows []model.ImportRow) (ImportSummary, error) {
	store, err := s.running()
	if err != nil {
		return ImportSummary{}, err
	}
	if _, err := model.ParseProgram(string(program)); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(rows) == 0 {
		return ImportSummary{}, fmt.Errorf("%w: no rows to import", ErrInvalidInput)
	}

	accepted, skipped, err := filterProgram(program, rows)
	if err != nil {
		return ImportSummary{}, err
	}
	canonical := make([]model.CanonicalRow, 0, len(accepted))
	for i, r := range accepted {
		c, err := r.Canonical()
		if err != nil {
			return ImportSummary{}, fmt.Errorf("%w: row %d: %w", ErrInvalidInput, i+1, err)
		}
		canonical = append(canonical, c)
	}

	targets := make([]model.RankTarget, 0)
	seen := make(map[string]struct{})
	for i, c := range canonical {
		target, err := importRow(ctx, store, program, c)
		if err != nil {
			metrics.RecordErrorByComponent("service", "import")
			// Rows before i are stored; their targets still need ranks.
			for _, t := range targets {
				s.scheduleRecompute(ctx, t)
			}
			s.logger.Warn(ctx, "import aborted",
				logger.String("program", string(program)),
				logger.Int("row", i+1),
				logger.Int("targets", len(targets)),
				logger.Error(err))
			return ImportSummary{}, fmt.Errorf("import row %d: %w", i+1, err)
		}
		if _, ok := seen[target.Key()]; !ok {
			seen[target.Key()] = struct{}{}
			targets = append(targets, target)
		}
	}
	metrics.RecordRowsImported(string(program), len(canonical))

	for _, t := range targets {
		s.scheduleRecompute(ctx, t)
	}

	s.logger.Info(ctx, "import confirmed",
		logger.String("program", string(program)),
		logger.Int("rows", len(canonical)),
		logger.Int("skipped", skipped),
		logger.Int("targets", len(targets)))

	return ImportSummary{
		Imported: len(canonical),
		Skipped:  skipped,
		Targets:  len(targets),
		Message:  fmt.Sprintf("取り込みが完了しました（取り込み: %d件 / 除外: %d件）", len(canonical), skipped),
	}, nil
}

type importStore interface {
	UpsertAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	UpsertMeet(ctx context.Context, m model.Meet) (model.Meet, error)
	UpsertEvent(ctx context.Context, e model.Event) (model.Event, error)
	UpsertResult(ctx context.Context, r model.Result) (model.Result, error)
}

func importRow(ctx context.Context, store importStore, program model.Program, c model.CanonicalRow) (model.RankTarget, error) {
	athlete, err := store.UpsertAthlete(ctx, model.Athlete{
		FullName:     c.FullName,
		FullNameKana: c.FullNameKana,
		Grade:        c.Grade,
		Gender:       c.Gender,
	})
	if err != nil {
		return model.RankTarget{}, err
	}
	meet, err := store.UpsertMeet(ctx, model.Meet{Program: program, Title: c.MeetTitle, HeldOn: c.HeldOn})
	if err != nil {
		return model.RankTarget{}, err
	}
	event, err := store.UpsertEvent(ctx, model.Event{
		Title:     c.EventTitle,
		DistanceM: c.DistanceM,
		Style:     c.Style,
		Grade:     c.Grade,
		Gender:    c.Gender,
	})
	if err != nil {
		return model.RankTarget{}, err
	}
	if _, err := store.UpsertResult(ctx, model.Result{
		AthleteID: athlete.ID,
		MeetID:    meet.ID,
		EventID:   event.ID,
		Lane:      c.Lane,
		TimeText:  c.TimeText,
		TimeMs:    c.TimeMs,
	}); err != nil {
		return model.RankTarget{}, err
	}
	return model.RankTarget{MeetID: meet.ID, EventID: event.ID}, nil
}
