package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(context.Background(), msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(context.Background(), msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}

// newScheduler registers the periodic jobs. It is not started.
func (s *Service) newScheduler(ctx context.Context) (*cron.Cron, error) {
	cl := cronLogger{log: s.logger.Named("cron")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if s.recomputeSchedule != "" {
		if _, err := c.AddFunc(s.recomputeSchedule, func() {
			if _, err := s.RecomputeAll(ctx, ""); err != nil {
				s.logger.Error(ctx, "scheduled recompute failed", logger.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("%w: recompute schedule %q: %w", ErrInvalidInput, s.recomputeSchedule, err)
		}
	}

	if s.sweepSchedule != "" {
		if _, err := c.AddFunc(s.sweepSchedule, func() {
			before := s.rateStore.Len()
			s.rateStore.Sweep()
			s.logger.Debug(ctx, "rate limit windows swept",
				logger.Int("before", before),
				logger.Int("after", s.rateStore.Len()))
		}); err != nil {
			return nil, fmt.Errorf("%w: sweep schedule %q: %w", ErrInvalidInput, s.sweepSchedule, err)
		}
	}
	return c, nil
}
