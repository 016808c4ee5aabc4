// Package service wires the store, recompute pipeline and report builders
// into the operations served by the HTTP API and the scheduler.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/mq/queue"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/mq/worker"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/ratelimit"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/repository"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/dedupe"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/report"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/metrics"
)

const (
	defaultQueueSize     = 1024
	defaultDedupeSize    = 50000
	defaultSearchLimit   = 10
	defaultSearchWindow  = time.Minute
	defaultStopTimeout   = 30 * time.Second
	defaultSweepSchedule = "@every 10m"
)

// Service implements the operations behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ownsStore  bool
	deduper    dedupe.Deduper
	jobs       *queue.InMemoryQueue
	recomputer *worker.RankRecomputer
	pool       *worker.Pool
	normalizer *csvimport.Normalizer
	rateStore  *ratelimit.CacheStore
	limiter    *ratelimit.Limiter
	scheduler  *cron.Cron
	pending    *pendingJobs
	locks      targetLocks

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	databasePath      string
	searchLimit       int
	searchWindow      time.Duration
	recomputeSchedule string
	sweepSchedule     string
	names             report.NameOptions
	pages             report.PageOptions
	now               func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many pending targets are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a store. The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDatabasePath makes Start open a sqlite store at path instead of the
// in-memory one. Ignored when WithStore is given.
func WithDatabasePath(path string) Option {
	return func(s *Service) {
		s.databasePath = path
	}
}

// WithSearchRateLimit allows limit searches per client within window.
// A limit of zero disables limiting.
func WithSearchRateLimit(limit int, window time.Duration) Option {
	return func(s *Service) {
		if limit >= 0 {
			s.searchLimit = limit
		}
		if window > 0 {
			s.searchWindow = window
		}
	}
}

// WithRecomputeSchedule sets the cron spec of the full recompute. Empty
// disables it.
func WithRecomputeSchedule(spec string) Option {
	return func(s *Service) {
		s.recomputeSchedule = spec
	}
}

// WithRateLimitSweepSchedule sets the cron spec that drops expired rate
// limit windows. Empty disables it.
func WithRateLimitSweepSchedule(spec string) Option {
	return func(s *Service) {
		s.sweepSchedule = spec
	}
}

// WithNameOptions sets the display name policy of rankings.
func WithNameOptions(o report.NameOptions) Option {
	return func(s *Service) {
		s.names = o
	}
}

// WithPageOptions sets the printed page geometry of meet rankings.
func WithPageOptions(o report.PageOptions) Option {
	return func(s *Service) {
		s.pages = o
	}
}

// WithClock replaces the wall clock used for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		searchLimit:   defaultSearchLimit,
		searchWindow:  defaultSearchWindow,
		sweepSchedule: defaultSweepSchedule,
		names:         report.DefaultNameOptions(),
		now:           time.Now,
		pending:       newPendingJobs(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the worker pool and scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting kirokukai service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.recomputer = worker.NewRankRecomputer(s.store)
	s.normalizer = csvimport.NewNormalizer(csvimport.WithLogger(s.logger.Named("csv")))
	s.rateStore = ratelimit.NewCacheStore()
	s.limiter = ratelimit.NewLimiter(s.rateStore,
		ratelimit.WithLimit(s.searchLimit),
		ratelimit.WithWindow(s.searchWindow))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.pool = worker.NewPool(s.workerCount, s.jobs, &serializedRecomputer{s: s},
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithOnDone(s.jobDone))
	s.pool.Start(runCtx)

	scheduler, err := s.newScheduler(runCtx)
	if err != nil {
		_ = s.pool.Shutdown(ctx)
		cancel()
		if s.ownsStore {
			_ = s.store.Close()
			s.store = nil
		}
		return err
	}
	s.scheduler = scheduler
	s.scheduler.Start()

	s.started = true
	s.logger.Info(ctx, "kirokukai service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("sqlite", s.databasePath != ""),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	if s.databasePath == "" {
		s.logger.Info(ctx, "using in-memory store")
		return repository.NewMemoryStore(ctx), nil
	}
	store, err := repository.NewGormStore(ctx, s.databasePath,
		repository.WithGormLogger(s.logger.Named("gorm")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.logger.Info(ctx, "using sqlite store", logger.String("path", s.databasePath))
	return store, nil
}

// Stop drains pending recomputes and releases every component.
func (s *Service) Stop() {
	// Scheduled jobs take the read lock, so the scheduler stops first.
	s.mu.RLock()
	started, scheduler := s.started, s.scheduler
	s.mu.RUnlock()
	if !started {
		return
	}
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping kirokukai service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, defaultStopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	s.cancel()

	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "kirokukai service stopped")
}

// running returns the store when the service is started.
func (s *Service) running() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// AllowSearch reports whether clientKey may search now.
func (s *Service) AllowSearch(clientKey string) bool {
	s.mu.RLock()
	limiter := s.limiter
	s.mu.RUnlock()
	if limiter == nil {
		return true
	}
	return limiter.Allow(clientKey)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.jobs.Len(ctx)
	stats["queueLength"] = queueLen
	stats["pendingRecomputes"] = s.pending.count()
	stats["dedupeEntries"] = s.deduper.Size()
	stats["rateLimitKeys"] = s.rateStore.Len()
	if counts, err := s.store.Count(ctx); err == nil {
		stats["athletes"] = counts.Athletes
		stats["meets"] = counts.Meets
		stats["events"] = counts.Events
		stats["results"] = counts.Results
	} else {
		s.logger.Warn(ctx, "counting store records", logger.Error(err))
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
