// Package repository persists athletes, meets, events and results and
// serves the joined rows the ranking engine consumes.
package repository

import (
	"context"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
)

// Store is the persistence boundary of the service.
type Store interface {
	// UpsertAthlete finds or creates the athlete keyed by (full name,
	// grade, gender). A non-empty kana overwrites the stored one.
	UpsertAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error)
	// UpsertMeet finds or creates the meet keyed by (program, held-on
	// date, title).
	UpsertMeet(ctx context.Context, m model.Meet) (model.Meet, error)
	// UpsertEvent finds or creates the event keyed by its normalized class
	// (title, distance, style, grade, gender).
	UpsertEvent(ctx context.Context, e model.Event) (model.Event, error)
	// UpsertResult finds or creates the result keyed by (athlete, meet,
	// event) and overwrites lane and time. The stored rank is kept until
	// the next ReplaceRanks.
	UpsertResult(ctx context.Context, r model.Result) (model.Result, error)

	// TargetEntries lists the results of one (meet, event) target.
	TargetEntries(ctx context.Context, meetID, eventID string) ([]rank.Entry, error)
	// ReplaceRanks writes every rank or none. Unknown ids fail the batch
	// with ErrNotFound.
	ReplaceRanks(ctx context.Context, ranks map[string]int) error
	// Targets lists every (meet, event) pair holding results. An empty
	// program lists all programs.
	Targets(ctx context.Context, program model.Program) ([]model.RankTarget, error)

	// FindRows returns joined rows ordered by held-on date then id.
	FindRows(ctx context.Context, q model.RowQuery) ([]model.ResultRow, error)

	Count(ctx context.Context) (model.Counts, error)
	Close() error
}
