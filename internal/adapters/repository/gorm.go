package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

type athleteRecord struct {
	ID           string       `gorm:"primaryKey"`
	FullName     string       `gorm:"not null;uniqueIndex:idx_athlete_identity"`
	Grade        int          `gorm:"not null;uniqueIndex:idx_athlete_identity"`
	Gender       model.Gender `gorm:"not null;uniqueIndex:idx_athlete_identity"`
	FullNameKana string
}

func (athleteRecord) TableName() string { return "athletes" }

type meetRecord struct {
	ID      string        `gorm:"primaryKey"`
	Program model.Program `gorm:"not null;uniqueIndex:idx_meet_identity"`
	HeldOn  string        `gorm:"not null;uniqueIndex:idx_meet_identity;index"`
	Title   string        `gorm:"not null;uniqueIndex:idx_meet_identity"`
}

func (meetRecord) TableName() string { return "meets" }

type eventRecord struct {
	ID        string       `gorm:"primaryKey"`
	TitleKey  string       `gorm:"not null;uniqueIndex:idx_event_identity"`
	DistanceM int          `gorm:"not null;uniqueIndex:idx_event_identity"`
	StyleKey  string       `gorm:"not null;uniqueIndex:idx_event_identity"`
	Grade     int          `gorm:"not null;uniqueIndex:idx_event_identity"`
	Gender    model.Gender `gorm:"not null;uniqueIndex:idx_event_identity"`
	Title     string       `gorm:"not null"`
	Style     string
}

func (eventRecord) TableName() string { return "events" }

type resultRecord struct {
	ID        string `gorm:"primaryKey"`
	AthleteID string `gorm:"not null;uniqueIndex:idx_result_identity"`
	MeetID    string `gorm:"not null;uniqueIndex:idx_result_identity;index:idx_result_target"`
	EventID   string `gorm:"not null;uniqueIndex:idx_result_identity;index:idx_result_target"`
	Lane      *int
	TimeText  string
	TimeMs    int
	Rank      int
}

func (resultRecord) TableName() string { return "results" }

// joinedRecord is one row of the results/athletes/meets/events join.
type joinedRecord struct {
	ID           string
	AthleteID    string
	FullName     string
	FullNameKana string
	Grade        int
	Gender       model.Gender
	EventID      string
	EventTitle   string
	DistanceM    int
	Style        string
	MeetID       string
	MeetTitle    string
	HeldOn       string
	Program      model.Program
	Lane         *int
	TimeText     string
	TimeMs       int
	Rank         int
}

// GormStore is a Store on SQLite through gorm.
type GormStore struct {
	db *gorm.DB

	logger                logger.Logger
	slowThreshold         time.Duration
	metricsUpdateInterval time.Duration
	updater               *countsUpdater
	closeOnce             sync.Once
}

var _ Store = (*GormStore)(nil)

// NewGormStore opens (or creates) the SQLite database at path and migrates
// the schema. ":memory:" gives a private in-memory database.
func NewGormStore(ctx context.Context, path string, opts ...GormOption) (*GormStore, error) {
	s := &GormStore{
		slowThreshold:         defaultSlowQueryThreshold,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(s.logger, s.slowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access SQL handle: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.WithContext(ctx).AutoMigrate(&athleteRecord{}, &meetRecord{}, &eventRecord{}, &resultRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	s.db = db
	s.updater = startCountsUpdater(ctx, s.metricsUpdateInterval, s.Count)
	return s, nil
}

func (s *GormStore) UpsertAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error) {
	a, err := cleanAthlete(a)
	if err != nil {
		return model.Athlete{}, err
	}
	rec := athleteRecord{ID: uuid.NewString(), FullName: a.FullName, Grade: a.Grade, Gender: a.Gender, FullNameKana: a.FullNameKana}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "full_name"}, {Name: "grade"}, {Name: "gender"}},
		DoNothing: true,
	}
	if a.FullNameKana != "" {
		conflict = clause.OnConflict{
			Columns:   conflict.Columns,
			DoUpdates: clause.AssignmentColumns([]string{"full_name_kana"}),
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(conflict).Create(&rec).Error; err != nil {
			return err
		}
		rec = athleteRecord{}
		return tx.Where("full_name = ? AND grade = ? AND gender = ?", a.FullName, a.Grade, a.Gender).First(&rec).Error
	})
	if err != nil {
		return model.Athlete{}, fmt.Errorf("upsert athlete: %w", err)
	}
	return model.Athlete{ID: rec.ID, FullName: rec.FullName, FullNameKana: rec.FullNameKana, Grade: rec.Grade, Gender: rec.Gender}, nil
}

func (s *GormStore) UpsertMeet(ctx context.Context, m model.Meet) (model.Meet, error) {
	m, err := cleanMeet(m)
	if err != nil {
		return model.Meet{}, err
	}
	rec := meetRecord{ID: uuid.NewString(), Program: m.Program, HeldOn: dateOf(m.HeldOn), Title: m.Title}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "program"}, {Name: "held_on"}, {Name: "title"}},
			DoNothing: true,
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		heldOn := rec.HeldOn
		rec = meetRecord{}
		return tx.Where("program = ? AND held_on = ? AND title = ?", m.Program, heldOn, m.Title).First(&rec).Error
	})
	if err != nil {
		return model.Meet{}, fmt.Errorf("upsert meet: %w", err)
	}
	m.ID = rec.ID
	return m, nil
}

func (s *GormStore) UpsertEvent(ctx context.Context, e model.Event) (model.Event, error) {
	e, key, err := cleanEvent(e)
	if err != nil {
		return model.Event{}, err
	}
	rec := eventRecord{
		ID: uuid.NewString(), TitleKey: key.Title, DistanceM: key.DistanceM, StyleKey: key.Style,
		Grade: key.Grade, Gender: key.Gender, Title: e.Title, Style: e.Style,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "title_key"}, {Name: "distance_m"}, {Name: "style_key"}, {Name: "grade"}, {Name: "gender"},
			},
			DoNothing: true,
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		rec = eventRecord{}
		return tx.Where("title_key = ? AND distance_m = ? AND style_key = ? AND grade = ? AND gender = ?",
			key.Title, key.DistanceM, key.Style, key.Grade, key.Gender).First(&rec).Error
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("upsert event: %w", err)
	}
	return model.Event{ID: rec.ID, Title: rec.Title, DistanceM: rec.DistanceM, Style: rec.Style, Grade: rec.Grade, Gender: rec.Gender}, nil
}

func (s *GormStore) UpsertResult(ctx context.Context, r model.Result) (model.Result, error) {
	r, err := cleanResult(r)
	if err != nil {
		return model.Result{}, err
	}
	rec := resultRecord{
		ID: uuid.NewString(), AthleteID: r.AthleteID, MeetID: r.MeetID, EventID: r.EventID,
		Lane: r.Lane, TimeText: r.TimeText, TimeMs: r.TimeMs,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireParents(tx, r); err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "athlete_id"}, {Name: "meet_id"}, {Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lane", "time_text", "time_ms"}),
		}).Create(&rec).Error
		if err != nil {
			return err
		}
		rec = resultRecord{}
		return tx.Where("athlete_id = ? AND meet_id = ? AND event_id = ?", r.AthleteID, r.MeetID, r.EventID).First(&rec).Error
	})
	if err != nil {
		return model.Result{}, fmt.Errorf("upsert result: %w", err)
	}
	return model.Result{
		ID: rec.ID, AthleteID: rec.AthleteID, MeetID: rec.MeetID, EventID: rec.EventID,
		Lane: rec.Lane, TimeText: rec.TimeText, TimeMs: rec.TimeMs, Rank: rec.Rank,
	}, nil
}

func (s *GormStore) requireParents(tx *gorm.DB, r model.Result) error {
	checks := []struct {
		model any
		id    string
		name  string
	}{
		{&athleteRecord{}, r.AthleteID, "athlete"},
		{&meetRecord{}, r.MeetID, "meet"},
		{&eventRecord{}, r.EventID, "event"},
	}
	for _, c := range checks {
		var n int64
		if err := tx.Model(c.model).Where("id = ?", c.id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s %s", ErrNotFound, c.name, c.id)
		}
	}
	return nil
}

func (s *GormStore) TargetEntries(ctx context.Context, meetID, eventID string) ([]rank.Entry, error) {
	var recs []resultRecord
	err := s.db.WithContext(ctx).
		Select("id", "time_ms").
		Where("meet_id = ? AND event_id = ?", meetID, eventID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("target entries: %w", err)
	}
	out := make([]rank.Entry, len(recs))
	for i, r := range recs {
		out[i] = rank.Entry{ID: r.ID, TimeMs: r.TimeMs}
	}
	return out, nil
}

func (s *GormStore) ReplaceRanks(ctx context.Context, ranks map[string]int) error {
	ids := make([]string, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Model(&resultRecord{}).Where("id = ?", id).Update("rank", ranks[id])
			if res.Error != nil {
				return fmt.Errorf("replace ranks: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: result %s", ErrNotFound, id)
			}
		}
		return nil
	})
}

func (s *GormStore) Targets(ctx context.Context, program model.Program) ([]model.RankTarget, error) {
	q := s.db.WithContext(ctx).
		Table("results").
		Distinct("results.meet_id", "results.event_id").
		Joins("JOIN meets ON meets.id = results.meet_id")
	if program != "" {
		q = q.Where("meets.program = ?", program)
	}
	var out []model.RankTarget
	if err := q.Order("results.meet_id, results.event_id").Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	slices.SortFunc(out, func(a, b model.RankTarget) int { return cmp.Compare(a.Key(), b.Key()) })
	return out, nil
}

const joinedColumns = `results.id, results.athlete_id, athletes.full_name, athletes.full_name_kana,
	athletes.grade, athletes.gender, results.event_id, events.title AS event_title, events.distance_m,
	events.style, results.meet_id, meets.title AS meet_title, meets.held_on, meets.program,
	results.lane, results.time_text, results.time_ms, results.rank`

func (s *GormStore) FindRows(ctx context.Context, q model.RowQuery) ([]model.ResultRow, error) {
	tx := s.db.WithContext(ctx).
		Table("results").
		Select(joinedColumns).
		Joins("JOIN athletes ON athletes.id = results.athlete_id").
		Joins("JOIN meets ON meets.id = results.meet_id").
		Joins("JOIN events ON events.id = results.event_id")

	if q.Program != "" {
		tx = tx.Where("meets.program = ?", q.Program)
	}
	if !q.From.IsZero() {
		tx = tx.Where("meets.held_on >= ?", dateOf(q.From))
	}
	if !q.To.IsZero() {
		tx = tx.Where("meets.held_on < ?", dateOf(q.To))
	}
	if q.AthleteID != "" {
		tx = tx.Where("results.athlete_id = ?", q.AthleteID)
	}
	if q.AthleteNameKey != "" {
		// Stored names hold single ASCII spaces only.
		tx = tx.Where("REPLACE(athletes.full_name, ' ', '') = ?", q.AthleteNameKey)
	}
	if q.Grade != nil {
		tx = tx.Where("athletes.grade = ?", *q.Grade)
	}
	if q.Gender != "" {
		tx = tx.Where("athletes.gender = ?", q.Gender)
	}
	if q.EventID != "" {
		tx = tx.Where("results.event_id = ?", q.EventID)
	}

	var recs []joinedRecord
	if err := tx.Order("meets.held_on, results.id").Scan(&recs).Error; err != nil {
		return nil, fmt.Errorf("find rows: %w", err)
	}

	out := make([]model.ResultRow, 0, len(recs))
	for _, r := range recs {
		held, err := parseDate(r.HeldOn)
		if err != nil {
			return nil, fmt.Errorf("find rows: held_on %q: %w", r.HeldOn, err)
		}
		out = append(out, model.ResultRow{
			ID: r.ID, AthleteID: r.AthleteID, FullName: r.FullName, FullNameKana: r.FullNameKana,
			Grade: r.Grade, Gender: r.Gender, EventID: r.EventID, EventTitle: r.EventTitle,
			DistanceM: r.DistanceM, Style: r.Style, MeetID: r.MeetID, MeetTitle: r.MeetTitle,
			HeldOn: held, Program: r.Program, Lane: r.Lane, TimeText: r.TimeText, TimeMs: r.TimeMs, Rank: r.Rank,
		})
	}
	return out, nil
}

func (s *GormStore) Count(ctx context.Context) (model.Counts, error) {
	var c model.Counts
	counts := []struct {
		model any
		dst   *int
	}{
		{&athleteRecord{}, &c.Athletes},
		{&meetRecord{}, &c.Meets},
		{&eventRecord{}, &c.Events},
		{&resultRecord{}, &c.Results},
	}
	for _, item := range counts {
		var n int64
		if err := s.db.WithContext(ctx).Model(item.model).Count(&n).Error; err != nil {
			return model.Counts{}, fmt.Errorf("count: %w", err)
		}
		*item.dst = int(n)
	}
	return c, nil
}

// Close stops the metrics updater and closes the database. It is safe to
// call more than once.
func (s *GormStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.updater.stop()
		sqlDB, dbErr := s.db.DB()
		if dbErr != nil {
			err = dbErr
			return
		}
		err = sqlDB.Close()
	})
	return err
}
