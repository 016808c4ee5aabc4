package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/rank"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

type athleteKey struct {
	fullName string
	grade    int
	gender   model.Gender
}

type meetKey struct {
	program model.Program
	heldOn  string
	title   string
}

type resultKey struct {
	athleteID string
	meetID    string
	eventID   string
}

func dateOf(t time.Time) string {
	return t.UTC().Format(model.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, s, time.UTC)
}

// cleanAthlete normalizes identity fields and validates them.
func cleanAthlete(a model.Athlete) (model.Athlete, error) {
	a.FullName = textnorm.NormalizeFullName(a.FullName)
	a.FullNameKana = textnorm.NormalizeFullName(a.FullNameKana)
	if a.FullName == "" {
		return a, fmt.Errorf("%w: athlete without name", ErrInvalidEntity)
	}
	if a.Grade < 0 {
		return a, fmt.Errorf("%w: grade %d", ErrInvalidEntity, a.Grade)
	}
	g, err := model.ParseGender(string(a.Gender))
	if err != nil {
		return a, fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	a.Gender = g
	return a, nil
}

func cleanMeet(m model.Meet) (model.Meet, error) {
	m.Title = textnorm.CollapseSpace(m.Title)
	if m.Title == "" {
		return m, fmt.Errorf("%w: meet without title", ErrInvalidEntity)
	}
	p, err := model.ParseProgram(string(m.Program))
	if err != nil {
		return m, fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	m.Program = p
	if m.HeldOn.IsZero() {
		return m, fmt.Errorf("%w: meet without date", ErrInvalidEntity)
	}
	held, _ := parseDate(dateOf(m.HeldOn))
	m.HeldOn = held
	return m, nil
}

func cleanEvent(e model.Event) (model.Event, rank.EventClassKey, error) {
	e.Title = textnorm.CollapseSpace(e.Title)
	e.Style = strings.TrimSpace(e.Style)
	if e.Title == "" || e.DistanceM <= 0 {
		return e, rank.EventClassKey{}, fmt.Errorf("%w: event %q %dm", ErrInvalidEntity, e.Title, e.DistanceM)
	}
	g, err := model.ParseGender(string(e.Gender))
	if err != nil {
		return e, rank.EventClassKey{}, fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	e.Gender = g
	return e, rank.NewEventClassKey(e.Title, e.DistanceM, e.Style, e.Grade, e.Gender), nil
}

func cleanResult(r model.Result) (model.Result, error) {
	r.TimeText = strings.TrimSpace(r.TimeText)
	if r.AthleteID == "" || r.MeetID == "" || r.EventID == "" {
		return r, fmt.Errorf("%w: result without athlete, meet or event", ErrInvalidEntity)
	}
	if r.TimeMs < 0 {
		return r, fmt.Errorf("%w: negative time", ErrInvalidEntity)
	}
	return r, nil
}
