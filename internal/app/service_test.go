package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/repository"
	service "github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/app"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func swimRow(meet, held, name, grade, gender, event, timeText string) model.ImportRow {
	return model.ImportRow{
		MeetTitle:  meet,
		HeldOn:     held,
		FullName:   name,
		Grade:      grade,
		Gender:     gender,
		EventTitle: event,
		Style:      "free",
		DistanceM:  "25",
		TimeText:   timeText,
	}
}

func started(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{
		service.WithWorkerCount(2),
		service.WithQueueSize(64),
	}, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(100),
			service.WithDedupeSize(10),
		)
		ctx := context.Background()

		Convey("When it is used before Start", func() {
			_, err := svc.ConfirmImport(ctx, model.ProgramSwimming, []model.ImportRow{swimRow("m", "2025-01-01", "a", "4", "male", "25m自由形", "20.00")})

			Convey("Then operations report it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(errors.Is(svc.WaitForRanks(ctx), service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
				So(svc.AllowSearch("client"), ShouldBeTrue)
			})
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats := svc.GetStats(ctx)
			svc.Stop()

			Convey("Then stats reflect the running components", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, 4)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["results"], ShouldEqual, 0)
			})

			Convey("And a second Stop is harmless", func() {
				svc.Stop()
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})

		Convey("When a schedule is malformed", func() {
			bad := service.New(service.WithRecomputeSchedule("whenever"))
			err := bad.Start(ctx)

			Convey("Then Start fails and leaves nothing running", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(bad.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Imports(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := started()
		Reset(svc.Stop)

		Convey("When a roster CSV is previewed", func() {
			csv := "種目,組,コース,名前,性別,ふりがな,学年,タイム,備考\n" +
				"15m板キック,1,,満留 一智,男,みつどめ いち,年中,25.29,\n" +
				"15m板キック,1,,大人 太郎,男,,16,20.00,\n"
			upload := csvimport.Upload{
				Name:    "roster.csv",
				Data:    []byte(csv),
				Context: &meetctx.Context{Year: 2026, Month: 2, Weekday: meetctx.Thursday},
			}

			Convey("Then the swimming program keeps every row", func() {
				p, err := svc.PreviewImport(ctx, model.ProgramSwimming, []csvimport.Upload{upload})
				So(err, ShouldBeNil)
				So(p.Rows, ShouldHaveLength, 2)
				So(p.Skipped, ShouldEqual, 0)
				So(p.Message, ShouldBeEmpty)
			})

			Convey("Then the challenge program drops grades outside its band", func() {
				p, err := svc.PreviewImport(ctx, model.ProgramChallenge, []csvimport.Upload{upload})
				So(err, ShouldBeNil)
				So(p.Rows, ShouldHaveLength, 1)
				So(p.Rows[0].MeetTitle, ShouldEqual, "2026年2月木曜")
				So(p.Skipped, ShouldEqual, 1)
				So(p.Message, ShouldEqual, "学年範囲外の1行を除外しました（対象: 年少〜高校3年生 / 1〜15）")
			})

			Convey("Then nothing is stored", func() {
				So(svc.GetStats(ctx)["results"], ShouldEqual, 0)
			})
		})

		Convey("When no challenge row is inside the band", func() {
			_, err := svc.ConfirmImport(ctx, model.ProgramChallenge, []model.ImportRow{
				swimRow("m", "2026-02-01", "a", "0", "male", "15m板キック", "20.00"),
			})

			Convey("Then the import is rejected", func() {
				So(errors.Is(err, csvimport.ErrNoValidRows), ShouldBeTrue)
			})
		})

		Convey("When a row cannot be coerced", func() {
			_, err := svc.ConfirmImport(ctx, model.ProgramSwimming, []model.ImportRow{
				swimRow("m", "2025-01-01", "a", "4", "male", "25m自由形", "20.00"),
				swimRow("m", "2025-01-01", "b", "4", "male", "25m自由形", "fast"),
			})

			Convey("Then nothing is written", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidRow), ShouldBeTrue)
				So(svc.GetStats(ctx)["results"], ShouldEqual, 0)
			})
		})

		Convey("When the program is unknown", func() {
			_, err := svc.ConfirmImport(ctx, model.Program("diving"), []model.ImportRow{
				swimRow("m", "2025-01-01", "a", "4", "male", "25m自由形", "20.00"),
			})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When rows are confirmed", func() {
			summary, err := svc.ConfirmImport(ctx, model.ProgramSwimming, []model.ImportRow{
				swimRow("2025年9月木曜", "2025-09-04", "山田 太郎", "4", "male", "25m自由形", "20.00"),
				swimRow("2025年9月木曜", "2025-09-04", "佐藤 次郎", "4", "male", "25m自由形", "19.50"),
				swimRow("2025年9月木曜", "2025-09-04", "鈴木 三郎", "4", "male", "25m自由形", "20.00"),
				swimRow("2025年9月木曜", "2025-09-04", "田中 花子", "4", "female", "25m自由形", "21.00"),
			})
			So(err, ShouldBeNil)
			So(svc.WaitForRanks(ctx), ShouldBeNil)

			Convey("Then the summary counts rows and targets", func() {
				So(summary.Imported, ShouldEqual, 4)
				So(summary.Skipped, ShouldEqual, 0)
				So(summary.Targets, ShouldEqual, 2)
				So(summary.Message, ShouldEqual, "取り込みが完了しました（取り込み: 4件 / 除外: 0件）")
			})

			Convey("Then dense ranks are stored per target", func() {
				best, err := svc.BestTimes(ctx, model.ProgramSwimming, "山田太郎", model.GenderMale)
				So(err, ShouldBeNil)
				So(best, ShouldHaveLength, 1)
				So(best[0].Rank, ShouldEqual, 2)

				winner, err := svc.BestTimes(ctx, model.ProgramSwimming, "佐藤 次郎", "")
				So(err, ShouldBeNil)
				So(winner[0].Rank, ShouldEqual, 1)
			})

			Convey("Then a re-import with a faster time re-ranks the target", func() {
				_, err := svc.ConfirmImport(ctx, model.ProgramSwimming, []model.ImportRow{
					swimRow("2025年9月木曜", "2025-09-04", "山田 太郎", "4", "male", "25m自由形", "19.00"),
				})
				So(err, ShouldBeNil)
				So(svc.WaitForRanks(ctx), ShouldBeNil)

				best, err := svc.BestTimes(ctx, model.ProgramSwimming, "山田 太郎", model.GenderMale)
				So(err, ShouldBeNil)
				So(best[0].Rank, ShouldEqual, 1)
				So(best[0].TimeMs, ShouldEqual, 19000)
				So(svc.GetStats(ctx)["results"], ShouldEqual, 4)
			})

			Convey("Then a full recompute settles on the same ranks", func() {
				queued, err := svc.RecomputeAll(ctx, model.ProgramSwimming)
				So(err, ShouldBeNil)
				So(queued, ShouldBeBetweenOrEqual, 0, 2)
				So(svc.WaitForRanks(ctx), ShouldBeNil)

				best, err := svc.BestTimes(ctx, model.ProgramSwimming, "鈴木三郎", "")
				So(err, ShouldBeNil)
				So(best[0].Rank, ShouldEqual, 2)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service with a one-slot queue", t, func() {
		ctx := context.Background()
		svc := started(service.WithQueueSize(1), service.WithWorkerCount(1))
		Reset(svc.Stop)

		Convey("When one import touches many targets", func() {
			rows := make([]model.ImportRow, 0, 40)
			for i := 0; i < 20; i++ {
				event := fmt.Sprintf("%dm自由形", 25*(i+1))
				rows = append(rows,
					model.ImportRow{MeetTitle: "m", HeldOn: "2025-01-01", FullName: "a", Grade: "4", Gender: "male",
						EventTitle: event, Style: "free", DistanceM: fmt.Sprint(25 * (i + 1)), TimeText: "30.00"},
					model.ImportRow{MeetTitle: "m", HeldOn: "2025-01-01", FullName: "b", Grade: "4", Gender: "male",
						EventTitle: event, Style: "free", DistanceM: fmt.Sprint(25 * (i + 1)), TimeText: "31.00"},
				)
			}
			summary, err := svc.ConfirmImport(ctx, model.ProgramSwimming, rows)
			So(err, ShouldBeNil)

			waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			So(svc.WaitForRanks(waitCtx), ShouldBeNil)

			Convey("Then every target is ranked even when the queue overflows", func() {
				So(summary.Targets, ShouldEqual, 20)
				best, err := svc.BestTimes(ctx, model.ProgramSwimming, "b", model.GenderMale)
				So(err, ShouldBeNil)
				So(best, ShouldHaveLength, 20)
				for _, r := range best {
					So(r.Rank, ShouldEqual, 2)
				}
				So(svc.GetStats(ctx)["pendingRecomputes"], ShouldEqual, 0)
			})
		})
	})
}

func TestService_InjectedStore(t *testing.T) {
	Convey("Given a caller-owned store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(0))
		Reset(func() { _ = store.Close() })

		svc := started(service.WithStore(store))

		Convey("When the service stops", func() {
			_, err := svc.ConfirmImport(ctx, model.ProgramSchool, []model.ImportRow{
				swimRow("学校委託記録会", "2024-05-15", "高橋 次郎", "5", "male", "25m自由形", "18.00"),
			})
			So(err, ShouldBeNil)
			So(svc.WaitForRanks(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then the store stays open with ranked data", func() {
				counts, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(counts.Results, ShouldEqual, 1)
				rows, err := store.FindRows(ctx, model.RowQuery{Program: model.ProgramSchool})
				So(err, ShouldBeNil)
				So(rows[0].Rank, ShouldEqual, 1)
			})
		})
	})
}

var errDiskFull = errors.New("disk full")

// failingStore fails UpsertResult from the failAt-th call on.
type failingStore struct {
	repository.Store
	mu     sync.Mutex
	calls  int
	failAt int
}

func (f *failingStore) UpsertResult(ctx context.Context, r model.Result) (model.Result, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls >= f.failAt
	f.mu.Unlock()
	if fail {
		return model.Result{}, errDiskFull
	}
	return f.Store.UpsertResult(ctx, r)
}

func TestService_PartialImport(t *testing.T) {
	Convey("Given a store that fails on the third result", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(0))
		Reset(func() { _ = mem.Close() })

		svc := started(service.WithStore(&failingStore{Store: mem, failAt: 3}))
		Reset(svc.Stop)

		Convey("When a batch aborts on that row", func() {
			_, err := svc.ConfirmImport(ctx, model.ProgramSwimming, []model.ImportRow{
				swimRow("2025年9月木曜", "2025-09-04", "A 太郎", "4", "male", "25m自由形", "20.00"),
				swimRow("2025年9月木曜", "2025-09-04", "B 太郎", "4", "male", "25m自由形", "19.00"),
				swimRow("2025年9月木曜", "2025-09-04", "C 太郎", "4", "male", "25m自由形", "21.00"),
			})
			So(errors.Is(err, errDiskFull), ShouldBeTrue)
			So(svc.WaitForRanks(ctx), ShouldBeNil)

			Convey("Then the rows already stored are ranked", func() {
				rows, err := mem.FindRows(ctx, model.RowQuery{Program: model.ProgramSwimming})
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				ranks := map[string]int{}
				for _, r := range rows {
					ranks[r.FullName] = r.Rank
				}
				So(ranks, ShouldResemble, map[string]int{"A 太郎": 2, "B 太郎": 1})
			})
		})
	})
}
