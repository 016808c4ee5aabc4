package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/repository"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
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

type storeFactory struct {
	name string
	open func(t *testing.T) repository.Store
}

func factories() []storeFactory {
	return []storeFactory{
		{"memory", func(t *testing.T) repository.Store {
			return repository.NewMemoryStore(context.Background(), repository.WithMetricsUpdateInterval(0))
		}},
		{"gorm", func(t *testing.T) repository.Store {
			s, err := repository.NewGormStore(context.Background(), ":memory:",
				repository.WithGormMetricsUpdateInterval(0))
			if err != nil {
				t.Fatalf("open gorm store: %v", err)
			}
			return s
		}},
	}
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// seed stores one meet and event and a result per athlete/time pair.
func seed(ctx context.Context, s repository.Store, program model.Program, held time.Time, times map[string]int) (model.Meet, model.Event, map[string]model.Result) {
	meet, err := s.UpsertMeet(ctx, model.Meet{Program: program, Title: "記録会", HeldOn: held})
	So(err, ShouldBeNil)
	event, err := s.UpsertEvent(ctx, model.Event{Title: "25m自由形", DistanceM: 25, Style: "free", Grade: 3, Gender: model.GenderMale})
	So(err, ShouldBeNil)

	out := make(map[string]model.Result, len(times))
	for name, ms := range times {
		a, err := s.UpsertAthlete(ctx, model.Athlete{FullName: name, Grade: 3, Gender: model.GenderMale})
		So(err, ShouldBeNil)
		r, err := s.UpsertResult(ctx, model.Result{
			AthleteID: a.ID, MeetID: meet.ID, EventID: event.ID,
			TimeText: fmt.Sprintf("%d", ms), TimeMs: ms,
		})
		So(err, ShouldBeNil)
		out[name] = r
	}
	return meet, event, out
}

func TestStoreUpserts(t *testing.T) {
	for _, f := range factories() {
		Convey("Given an empty "+f.name+" store", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			Convey("When the same athlete is upserted twice", func() {
				first, err := s.UpsertAthlete(ctx, model.Athlete{FullName: "山田  太郎", Grade: 4, Gender: model.GenderMale})
				So(err, ShouldBeNil)
				second, err := s.UpsertAthlete(ctx, model.Athlete{FullName: "山田 太郎", Grade: 4, Gender: model.GenderMale, FullNameKana: "やまだ たろう"})
				So(err, ShouldBeNil)

				Convey("Then one record exists and the kana is filled in", func() {
					So(second.ID, ShouldEqual, first.ID)
					So(second.FullName, ShouldEqual, "山田 太郎")
					So(second.FullNameKana, ShouldEqual, "やまだ たろう")
				})

				Convey("Then an empty kana keeps the stored one", func() {
					third, err := s.UpsertAthlete(ctx, model.Athlete{FullName: "山田 太郎", Grade: 4, Gender: model.GenderMale})
					So(err, ShouldBeNil)
					So(third.FullNameKana, ShouldEqual, "やまだ たろう")
				})

				Convey("Then a different grade is a different athlete", func() {
					other, err := s.UpsertAthlete(ctx, model.Athlete{FullName: "山田 太郎", Grade: 5, Gender: model.GenderMale})
					So(err, ShouldBeNil)
					So(other.ID, ShouldNotEqual, first.ID)
				})
			})

			Convey("When events differ only in width and spacing", func() {
				a, err := s.UpsertEvent(ctx, model.Event{Title: "15ｍ 板キック", DistanceM: 15, Style: "kick", Grade: 1, Gender: model.GenderFemale})
				So(err, ShouldBeNil)
				b, err := s.UpsertEvent(ctx, model.Event{Title: "15M板キック", DistanceM: 15, Style: "KICK", Grade: 1, Gender: model.GenderFemale})
				So(err, ShouldBeNil)

				Convey("Then they share one record", func() {
					So(b.ID, ShouldEqual, a.ID)
				})
			})

			Convey("When a meet is upserted twice", func() {
				a, err := s.UpsertMeet(ctx, model.Meet{Program: model.ProgramSwimming, Title: "2025年9月木曜", HeldOn: date(2025, 9, 4)})
				So(err, ShouldBeNil)
				b, err := s.UpsertMeet(ctx, model.Meet{Program: model.ProgramSwimming, Title: "2025年9月木曜", HeldOn: date(2025, 9, 4)})
				So(err, ShouldBeNil)
				c, err := s.UpsertMeet(ctx, model.Meet{Program: model.ProgramSchool, Title: "2025年9月木曜", HeldOn: date(2025, 9, 4)})
				So(err, ShouldBeNil)

				Convey("Then the program separates meets", func() {
					So(b.ID, ShouldEqual, a.ID)
					So(c.ID, ShouldNotEqual, a.ID)
					So(b.HeldOn.Equal(date(2025, 9, 4)), ShouldBeTrue)
				})
			})

			Convey("When a result is re-imported with a new time", func() {
				_, _, results := seed(ctx, s, model.ProgramSwimming, date(2025, 9, 4), map[string]int{"佐藤": 30000})
				r := results["佐藤"]
				So(s.ReplaceRanks(ctx, map[string]int{r.ID: 1}), ShouldBeNil)

				lane := 4
				again, err := s.UpsertResult(ctx, model.Result{
					AthleteID: r.AthleteID, MeetID: r.MeetID, EventID: r.EventID,
					Lane: &lane, TimeText: "29.50", TimeMs: 29500,
				})

				Convey("Then time and lane are overwritten and the rank kept", func() {
					So(err, ShouldBeNil)
					So(again.ID, ShouldEqual, r.ID)
					So(again.TimeMs, ShouldEqual, 29500)
					So(*again.Lane, ShouldEqual, 4)
					So(again.Rank, ShouldEqual, 1)
				})
			})

			Convey("When a result references a missing athlete", func() {
				meet, event, _ := seed(ctx, s, model.ProgramSwimming, date(2025, 9, 4), nil)
				_, err := s.UpsertResult(ctx, model.Result{AthleteID: "missing", MeetID: meet.ID, EventID: event.ID})

				Convey("Then ErrNotFound is returned", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})

			Convey("When entities are invalid", func() {
				_, errA := s.UpsertAthlete(ctx, model.Athlete{FullName: " ", Grade: 1, Gender: model.GenderMale})
				_, errM := s.UpsertMeet(ctx, model.Meet{Program: "club", Title: "x", HeldOn: date(2025, 1, 1)})
				_, errE := s.UpsertEvent(ctx, model.Event{Title: "25m", DistanceM: 0, Gender: model.GenderMale})

				Convey("Then ErrInvalidEntity is returned", func() {
					So(errors.Is(errA, repository.ErrInvalidEntity), ShouldBeTrue)
					So(errors.Is(errM, repository.ErrInvalidEntity), ShouldBeTrue)
					So(errors.Is(errE, repository.ErrInvalidEntity), ShouldBeTrue)
				})
			})
		})
	}
}

func TestStoreRanks(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store with one target", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			meet, event, results := seed(ctx, s, model.ProgramSwimming, date(2025, 9, 4),
				map[string]int{"A": 30000, "B": 28000, "C": 30000, "D": 31000})

			Convey("When ranks are computed from the target entries", func() {
				entries, err := s.TargetEntries(ctx, meet.ID, event.ID)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 4)
				ranks, err := rank.AssignDense(entries)
				So(err, ShouldBeNil)
				So(s.ReplaceRanks(ctx, ranks), ShouldBeNil)

				Convey("Then rows carry dense ranks", func() {
					rows, err := s.FindRows(ctx, model.RowQuery{EventID: event.ID})
					So(err, ShouldBeNil)
					got := make(map[string]int)
					for _, r := range rows {
						got[r.FullName] = r.Rank
					}
					So(got, ShouldResemble, map[string]int{"A": 2, "B": 1, "C": 2, "D": 3})
				})
			})

			Convey("When a batch holds an unknown id", func() {
				err := s.ReplaceRanks(ctx, map[string]int{results["A"].ID: 7, "unknown": 1})

				Convey("Then the batch is rejected", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					rows, err := s.FindRows(ctx, model.RowQuery{AthleteID: results["A"].AthleteID})
					So(err, ShouldBeNil)
					So(rows[0].Rank, ShouldEqual, 0)
				})
			})

			Convey("When targets are listed per program", func() {
				all, err := s.Targets(ctx, "")
				So(err, ShouldBeNil)
				school, err := s.Targets(ctx, model.ProgramSchool)
				So(err, ShouldBeNil)

				Convey("Then only programs holding results appear", func() {
					So(all, ShouldResemble, []model.RankTarget{{MeetID: meet.ID, EventID: event.ID}})
					So(school, ShouldBeEmpty)
				})
			})
		})
	}
}

func TestStoreFindRows(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store with two months of results", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			seed(ctx, s, model.ProgramSwimming, date(2025, 8, 28), map[string]int{"山田 太郎": 31000})
			seed(ctx, s, model.ProgramSwimming, date(2025, 9, 4), map[string]int{"山田 太郎": 30000, "鈴木 花子": 29000})
			seed(ctx, s, model.ProgramSchool, date(2025, 9, 5), map[string]int{"山田 太郎": 32000})

			Convey("When filtering by a month window", func() {
				rows, err := s.FindRows(ctx, model.RowQuery{
					Program: model.ProgramSwimming, From: date(2025, 9, 1), To: date(2025, 10, 1),
				})

				Convey("Then only that month of the program is returned", func() {
					So(err, ShouldBeNil)
					So(rows, ShouldHaveLength, 2)
					for _, r := range rows {
						So(r.HeldOn.Equal(date(2025, 9, 4)), ShouldBeTrue)
						So(r.MeetTitle, ShouldEqual, "記録会")
						So(r.EventTitle, ShouldEqual, "25m自由形")
					}
				})
			})

			Convey("When searching by a whitespace-free name key", func() {
				rows, err := s.FindRows(ctx, model.RowQuery{AthleteNameKey: "山田太郎"})

				Convey("Then every program's rows are returned in date order", func() {
					So(err, ShouldBeNil)
					So(rows, ShouldHaveLength, 3)
					So(rows[0].HeldOn.Equal(date(2025, 8, 28)), ShouldBeTrue)
					So(rows[2].Program, ShouldEqual, model.ProgramSchool)
				})
			})

			Convey("When filtering by grade and gender", func() {
				g := 3
				rows, err := s.FindRows(ctx, model.RowQuery{Grade: &g, Gender: model.GenderFemale})
				So(err, ShouldBeNil)

				Convey("Then nothing matches", func() {
					So(rows, ShouldBeEmpty)
				})
			})

			Convey("When counting", func() {
				c, err := s.Count(ctx)

				Convey("Then entities are shared across meets", func() {
					So(err, ShouldBeNil)
					So(c, ShouldResemble, model.Counts{Athletes: 2, Meets: 3, Events: 1, Results: 4})
				})
			})
		})
	}
}

func TestStoreConcurrentUpserts(t *testing.T) {
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			var wg sync.WaitGroup
			ids := make([]string, 20)
			for i := range ids {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					a, err := s.UpsertAthlete(ctx, model.Athlete{FullName: "同じ 名前", Grade: 2, Gender: model.GenderFemale})
					if err != nil {
						t.Errorf("upsert: %v", err)
						return
					}
					ids[i] = a.ID
				}(i)
			}
			wg.Wait()

			for _, id := range ids[1:] {
				if id != ids[0] {
					t.Fatalf("expected one athlete id, got %q and %q", ids[0], id)
				}
			}
		})
	}
}

func TestMemoryStoreClose(t *testing.T) {
	ctx := context.Background()
	s := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(time.Millisecond))

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := s.FindRows(ctx, model.RowQuery{}); !errors.Is(err, repository.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
