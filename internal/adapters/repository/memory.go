package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// MemoryStore is a mutex-guarded in-memory Store.
type MemoryStore struct {
	mu sync.RWMutex

	athletes     map[string]model.Athlete
	athleteByKey map[athleteKey]string
	meets        map[string]model.Meet
	meetByKey    map[meetKey]string
	events       map[string]model.Event
	eventByKey   map[rank.EventClassKey]string
	results      map[string]model.Result
	resultByKey  map[resultKey]string

	closed bool

	metricsUpdateInterval time.Duration
	updater               *countsUpdater
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. A background goroutine publishes
// entity counts to metrics until Close or ctx cancellation.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		athletes:              make(map[string]model.Athlete),
		athleteByKey:          make(map[athleteKey]string),
		meets:                 make(map[string]model.Meet),
		meetByKey:             make(map[meetKey]string),
		events:                make(map[string]model.Event),
		eventByKey:            make(map[rank.EventClassKey]string),
		results:               make(map[string]model.Result),
		resultByKey:           make(map[resultKey]string),
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updater = startCountsUpdater(ctx, s.metricsUpdateInterval, s.Count)
	return s
}

func (s *MemoryStore) UpsertAthlete(ctx context.Context, a model.Athlete) (model.Athlete, error) {
	a, err := cleanAthlete(a)
	if err != nil {
		return model.Athlete{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Athlete{}, ErrClosed
	}

	key := athleteKey{fullName: a.FullName, grade: a.Grade, gender: a.Gender}
	if id, ok := s.athleteByKey[key]; ok {
		stored := s.athletes[id]
		if a.FullNameKana != "" {
			stored.FullNameKana = a.FullNameKana
			s.athletes[id] = stored
		}
		return stored, nil
	}
	a.ID = uuid.NewString()
	s.athletes[a.ID] = a
	s.athleteByKey[key] = a.ID
	return a, nil
}

func (s *MemoryStore) UpsertMeet(ctx context.Context, m model.Meet) (model.Meet, error) {
	m, err := cleanMeet(m)
	if err != nil {
		return model.Meet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Meet{}, ErrClosed
	}

	key := meetKey{program: m.Program, heldOn: dateOf(m.HeldOn), title: m.Title}
	if id, ok := s.meetByKey[key]; ok {
		return s.meets[id], nil
	}
	m.ID = uuid.NewString()
	s.meets[m.ID] = m
	s.meetByKey[key] = m.ID
	return m, nil
}

func (s *MemoryStore) UpsertEvent(ctx context.Context, e model.Event) (model.Event, error) {
	e, key, err := cleanEvent(e)
	if err != nil {
		return model.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Event{}, ErrClosed
	}

	if id, ok := s.eventByKey[key]; ok {
		return s.events[id], nil
	}
	e.ID = uuid.NewString()
	s.events[e.ID] = e
	s.eventByKey[key] = e.ID
	return e, nil
}

func (s *MemoryStore) UpsertResult(ctx context.Context, r model.Result) (model.Result, error) {
	r, err := cleanResult(r)
	if err != nil {
		return model.Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Result{}, ErrClosed
	}
	if _, ok := s.athletes[r.AthleteID]; !ok {
		return model.Result{}, fmt.Errorf("%w: athlete %s", ErrNotFound, r.AthleteID)
	}
	if _, ok := s.meets[r.MeetID]; !ok {
		return model.Result{}, fmt.Errorf("%w: meet %s", ErrNotFound, r.MeetID)
	}
	if _, ok := s.events[r.EventID]; !ok {
		return model.Result{}, fmt.Errorf("%w: event %s", ErrNotFound, r.EventID)
	}

	key := resultKey{athleteID: r.AthleteID, meetID: r.MeetID, eventID: r.EventID}
	if id, ok := s.resultByKey[key]; ok {
		stored := s.results[id]
		stored.Lane = r.Lane
		stored.TimeText = r.TimeText
		stored.TimeMs = r.TimeMs
		s.results[id] = stored
		return stored, nil
	}
	r.ID = uuid.NewString()
	r.Rank = 0
	s.results[r.ID] = r
	s.resultByKey[key] = r.ID
	return r, nil
}

func (s *MemoryStore) TargetEntries(ctx context.Context, meetID, eventID string) ([]rank.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []rank.Entry
	for _, r := range s.results {
		if r.MeetID == meetID && r.EventID == eventID {
			out = append(out, rank.Entry{ID: r.ID, TimeMs: r.TimeMs})
		}
	}
	slices.SortFunc(out, func(a, b rank.Entry) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) ReplaceRanks(ctx context.Context, ranks map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for id := range ranks {
		if _, ok := s.results[id]; !ok {
			return fmt.Errorf("%w: result %s", ErrNotFound, id)
		}
	}
	for id, r := range ranks {
		stored := s.results[id]
		stored.Rank = r
		s.results[id] = stored
	}
	return nil
}

func (s *MemoryStore) Targets(ctx context.Context, program model.Program) ([]model.RankTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	seen := make(map[model.RankTarget]struct{})
	for _, r := range s.results {
		if program != "" && s.meets[r.MeetID].Program != program {
			continue
		}
		seen[model.RankTarget{MeetID: r.MeetID, EventID: r.EventID}] = struct{}{}
	}
	out := make([]model.RankTarget, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b model.RankTarget) int { return cmp.Compare(a.Key(), b.Key()) })
	return out, nil
}

func (s *MemoryStore) FindRows(ctx context.Context, q model.RowQuery) ([]model.ResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	out := make([]model.ResultRow, 0)
	for _, r := range s.results {
		a, m, e := s.athletes[r.AthleteID], s.meets[r.MeetID], s.events[r.EventID]
		row := joinRow(r, a, m, e)
		if matches(q, row) {
			out = append(out, row)
		}
	}
	sortRows(out)
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (model.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Counts{
		Athletes: len(s.athletes),
		Meets:    len(s.meets),
		Events:   len(s.events),
		Results:  len(s.results),
	}, nil
}

// Close stops the metrics updater. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.updater.stop()
	return nil
}

func joinRow(r model.Result, a model.Athlete, m model.Meet, e model.Event) model.ResultRow {
	return model.ResultRow{
		ID:           r.ID,
		AthleteID:    a.ID,
		FullName:     a.FullName,
		FullNameKana: a.FullNameKana,
		Grade:        a.Grade,
		Gender:       a.Gender,
		EventID:      e.ID,
		EventTitle:   e.Title,
		DistanceM:    e.DistanceM,
		Style:        e.Style,
		MeetID:       m.ID,
		MeetTitle:    m.Title,
		HeldOn:       m.HeldOn,
		Program:      m.Program,
		Lane:         r.Lane,
		TimeText:     r.TimeText,
		TimeMs:       r.TimeMs,
		Rank:         r.Rank,
	}
}

func matches(q model.RowQuery, row model.ResultRow) bool {
	switch {
	case q.Program != "" && row.Program != q.Program:
		return false
	case !q.From.IsZero() && row.HeldOn.Before(q.From):
		return false
	case !q.To.IsZero() && !row.HeldOn.Before(q.To):
		return false
	case q.AthleteID != "" && row.AthleteID != q.AthleteID:
		return false
	case q.AthleteNameKey != "" && textnorm.NameSearchKey(row.FullName) != q.AthleteNameKey:
		return false
	case q.Grade != nil && row.Grade != *q.Grade:
		return false
	case q.Gender != "" && row.Gender != q.Gender:
		return false
	case q.EventID != "" && row.EventID != q.EventID:
		return false
	}
	return true
}

func sortRows(rows []model.ResultRow) {
	slices.SortFunc(rows, func(a, b model.ResultRow) int {
		if c := a.HeldOn.Compare(b.HeldOn); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
