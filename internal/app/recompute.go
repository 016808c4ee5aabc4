package service

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/mq/queue"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/metrics"
)

// pendingJobs counts scheduled recomputes and lets callers wait until
// none are left.
type pendingJobs struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newPendingJobs() *pendingJobs {
	idle := make(chan struct{})
	close(idle)
	return &pendingJobs{idle: idle}
}

func (p *pendingJobs) add() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		p.idle = make(chan struct{})
	}
	p.n++
}

func (p *pendingJobs) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.n == 0 {
		return
	}
	p.n--
	if p.n == 0 {
		close(p.idle)
	}
}

func (p *pendingJobs) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (p *pendingJobs) wait(ctx context.Context) error {
	p.mu.Lock()
	idle := p.idle
	p.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

const lockStripes = 64

// targetLocks serializes recomputes of the same target so a stale read
// never overwrites a newer rank batch.
type targetLocks [lockStripes]sync.Mutex

func (l *targetLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

// serializedRecomputer releases the pending mark before reading so an
// import landing mid-job schedules a fresh recompute.
type serializedRecomputer struct {
	s *Service
}

func (r *serializedRecomputer) Recompute(ctx context.Context, target model.RankTarget) error {
	key := target.Key()
	r.s.deduper.Unrecord(ctx, key)
	unlock := r.s.locks.lock(key)
	defer unlock()
	return r.s.recomputer.Recompute(ctx, target)
}

func (s *Service) jobDone(ctx context.Context, job queue.Job, err error) {
	if err != nil {
		metrics.RecordErrorByComponent("service", "recompute")
		s.logger.Error(ctx, "rank recompute failed",
			logger.String("job_id", job.ID),
			logger.String("target", job.Target.Key()),
			logger.Error(err))
	}
	s.pending.done()
}

// scheduleRecompute queues target unless it is already pending. A full
// queue recomputes inline.
func (s *Service) scheduleRecompute(ctx context.Context, target model.RankTarget) bool {
	if s.deduper.SeenAndRecord(ctx, target.Key()) {
		return false
	}
	s.pending.add()

	job := queue.Job{ID: uuid.NewString(), Target: target, Queued: s.now()}
	if s.jobs.Enqueue(ctx, job) {
		return true
	}

	s.logger.Warn(ctx, "recompute queue unavailable, recomputing inline",
		logger.String("target", target.Key()))
	inline := &serializedRecomputer{s: s}
	s.jobDone(ctx, job, inline.Recompute(context.WithoutCancel(ctx), target))
	return true
}

// WaitForRanks blocks until every scheduled recompute has finished.
func (s *Service) WaitForRanks(ctx context.Context) error {
	if _, err := s.running(); err != nil {
		return err
	}
	return s.pending.wait(ctx)
}

// RecomputeAll schedules every target of program, or of all programs when
// program is empty, and returns how many were newly queued.
func (s *Service) RecomputeAll(ctx context.Context, program model.Program) (int, error) {
	store, err := s.running()
	if err != nil {
		return 0, err
	}
	targets, err := store.Targets(ctx, program)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, t := range targets {
		if s.scheduleRecompute(ctx, t) {
			queued++
		}
	}
	s.logger.Info(ctx, "full recompute scheduled",
		logger.String("program", string(program)),
		logger.Int("targets", len(targets)),
		logger.Int("queued", queued))
	return queued, nil
}
