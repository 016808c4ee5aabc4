package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/metrics"
)

// RankStore is the part of the repository a recompute needs.
type RankStore interface {
	TargetEntries(ctx context.Context, meetID, eventID string) ([]rank.Entry, error)
	ReplaceRanks(ctx context.Context, ranks map[string]int) error
}

// RankRecomputer reads every result of a target, assigns dense ranks and
// writes them back in one batch.
type RankRecomputer struct {
	store RankStore
}

var _ Recomputer = (*RankRecomputer)(nil)

func NewRankRecomputer(store RankStore) *RankRecomputer {
	return &RankRecomputer{store: store}
}

func (r *RankRecomputer) Recompute(ctx context.Context, target model.RankTarget) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		metrics.RecordRecomputeJob(outcome)
		metrics.RecordRecomputeLatency(float64(time.Since(start).Milliseconds()))
	}()

	entries, err := r.store.TargetEntries(ctx, target.MeetID, target.EventID)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	ranks, err := rank.AssignDense(entries)
	if err != nil {
		return fmt.Errorf("assign ranks: %w", err)
	}
	if len(ranks) == 0 {
		return nil
	}
	if err := r.store.ReplaceRanks(ctx, ranks); err != nil {
		return fmt.Errorf("write ranks: %w", err)
	}
	return nil
}
