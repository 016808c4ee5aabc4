package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/mq/queue"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/mq/worker"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/repository"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	logging "github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

func init() {
	if err := logging.Init(logging.WithLevel("error")); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockRecomputer struct {
	mu     sync.Mutex
	seen   []string
	errors map[string]error
}

func (m *mockRecomputer) Recompute(_ context.Context, t model.RankTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, t.Key())
	return m.errors[t.Key()]
}

func (m *mockRecomputer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

type mockRankStore struct {
	entries  []rank.Entry
	loadErr  error
	written  map[string]int
	writeErr error
}

func (m *mockRankStore) TargetEntries(context.Context, string, string) ([]rank.Entry, error) {
	return m.entries, m.loadErr
}

func (m *mockRankStore) ReplaceRanks(_ context.Context, ranks map[string]int) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = ranks
	return nil
}

func target(meet, event string) queue.Job {
	return queue.Job{ID: meet + "-" + event, Target: model.RankTarget{MeetID: meet, EventID: event}, Queued: time.Now()}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker on a small queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		rec := &mockRecomputer{errors: map[string]error{"bad:e": errors.New("boom")}}

		var mu sync.Mutex
		results := map[string]error{}
		done := make(chan struct{}, 10)
		w := worker.NewInMemoryWorker(q, rec,
			worker.WithName("test-worker"),
			worker.WithOnDone(func(_ context.Context, j queue.Job, err error) {
				mu.Lock()
				results[j.Target.Key()] = err
				mu.Unlock()
				done <- struct{}{}
			}))
		go w.Run(ctx)

		convey.Reset(func() {
			cancel()
			_ = q.Close()
		})

		convey.Convey("When jobs succeed and fail", func() {
			q.Enqueue(ctx, target("good", "e"))
			q.Enqueue(ctx, target("bad", "e"))
			<-done
			<-done

			convey.Convey("Then the callback sees every outcome", func() {
				mu.Lock()
				defer mu.Unlock()
				convey.So(results["good:e"], convey.ShouldBeNil)
				convey.So(results["bad:e"], convey.ShouldNotBeNil)
				convey.So(rec.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When shutting down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops and a second call is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		rec := &mockRecomputer{}
		pool := worker.NewPool(4, q, rec)
		pool.Start(ctx)

		convey.Convey("When jobs are queued before shutdown", func() {
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, target("m", fmt.Sprintf("e%d", i)))
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then shutdown drains every job", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.count(), convey.ShouldEqual, 50)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with the default worker count", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, &mockRecomputer{})
		pool.Start(ctx)

		convey.Convey("When the context is cancelled first", func() {
			cancel()
			err := pool.Shutdown(context.Background())

			convey.Convey("Then shutdown still returns", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestRankRecomputer(t *testing.T) {
	ctx := context.Background()
	tgt := model.RankTarget{MeetID: "m", EventID: "e"}

	convey.Convey("Given a rank recomputer", t, func() {
		convey.Convey("When entries tie", func() {
			store := &mockRankStore{entries: []rank.Entry{
				{ID: "a", TimeMs: 30000}, {ID: "b", TimeMs: 28000}, {ID: "c", TimeMs: 30000},
			}}
			err := worker.NewRankRecomputer(store).Recompute(ctx, tgt)

			convey.Convey("Then dense ranks are written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.written, convey.ShouldResemble, map[string]int{"a": 2, "b": 1, "c": 2})
			})
		})

		convey.Convey("When the target is empty", func() {
			store := &mockRankStore{}
			err := worker.NewRankRecomputer(store).Recompute(ctx, tgt)

			convey.Convey("Then nothing is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store.written, convey.ShouldBeNil)
			})
		})

		convey.Convey("When entries hold a duplicate id", func() {
			store := &mockRankStore{entries: []rank.Entry{{ID: "a", TimeMs: 1}, {ID: "a", TimeMs: 2}}}
			err := worker.NewRankRecomputer(store).Recompute(ctx, tgt)

			convey.Convey("Then the assigner error is returned", func() {
				convey.So(errors.Is(err, rank.ErrDuplicateID), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the store write fails", func() {
			store := &mockRankStore{entries: []rank.Entry{{ID: "a", TimeMs: 1}}, writeErr: repository.ErrNotFound}
			err := worker.NewRankRecomputer(store).Recompute(ctx, tgt)

			convey.Convey("Then the error is wrapped", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRankRecomputerWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(0))
	defer store.Close()

	meet, _ := store.UpsertMeet(ctx, model.Meet{Program: model.ProgramSwimming, Title: "記録会", HeldOn: time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)})
	event, _ := store.UpsertEvent(ctx, model.Event{Title: "25m自由形", DistanceM: 25, Style: "free", Grade: 3, Gender: model.GenderMale})
	for name, ms := range map[string]int{"A": 20000, "B": 19000} {
		a, _ := store.UpsertAthlete(ctx, model.Athlete{FullName: name, Grade: 3, Gender: model.GenderMale})
		if _, err := store.UpsertResult(ctx, model.Result{AthleteID: a.ID, MeetID: meet.ID, EventID: event.ID, TimeMs: ms}); err != nil {
			t.Fatalf("upsert result: %v", err)
		}
	}

	if err := worker.NewRankRecomputer(store).Recompute(ctx, model.RankTarget{MeetID: meet.ID, EventID: event.ID}); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	rows, err := store.FindRows(ctx, model.RowQuery{})
	if err != nil {
		t.Fatalf("find rows: %v", err)
	}
	for _, r := range rows {
		want := map[string]int{"A": 2, "B": 1}[r.FullName]
		if r.Rank != want {
			t.Errorf("%s: expected rank %d, got %d", r.FullName, want, r.Rank)
		}
	}
}
