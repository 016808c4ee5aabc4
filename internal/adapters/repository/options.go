package repository

import (
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMetricsUpdateInterval sets how often entity counts are published.
// Zero or negative disables the updater.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		s.metricsUpdateInterval = interval
	}
}

// GormOption applies a configuration option to the GormStore.
type GormOption func(*GormStore)

// WithGormLogger routes SQL logging through l.
func WithGormLogger(l logger.Logger) GormOption {
	return func(s *GormStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSlowQueryThreshold logs queries slower than d as warnings.
func WithSlowQueryThreshold(d time.Duration) GormOption {
	return func(s *GormStore) {
		if d > 0 {
			s.slowThreshold = d
		}
	}
}

// WithGormMetricsUpdateInterval sets how often entity counts are published.
func WithGormMetricsUpdateInterval(interval time.Duration) GormOption {
	return func(s *GormStore) {
		s.metricsUpdateInterval = interval
	}
}
