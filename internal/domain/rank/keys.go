package rank

import (
	"strconv"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// EventClassKey identifies one competitive category. Two rows race in the
// same class iff their keys are equal.
type EventClassKey struct {
	Title     string
	DistanceM int
	Style     string
	Grade     int
	Gender    model.Gender
}

// NewEventClassKey normalizes title and style before building the key.
func NewEventClassKey(title string, distanceM int, style string, grade int, gender model.Gender) EventClassKey {
	return EventClassKey{
		Title:     textnorm.TitleKey(title),
		DistanceM: distanceM,
		Style:     textnorm.StyleKey(style),
		Grade:     grade,
		Gender:    gender,
	}
}

// ClassKeyOf builds the class key of a joined result row.
func ClassKeyOf(r model.ResultRow) EventClassKey {
	return NewEventClassKey(r.EventTitle, r.DistanceM, r.Style, r.Grade, r.Gender)
}

// EventBaseKey compares the same race across grade promotions.
type EventBaseKey struct {
	Title     string
	DistanceM int
}

// NewEventBaseKey normalizes title before building the key.
func NewEventBaseKey(title string, distanceM int) EventBaseKey {
	return EventBaseKey{Title: textnorm.TitleKey(title), DistanceM: distanceM}
}

// String renders the key as "title:distance".
func (k EventBaseKey) String() string {
	return k.Title + ":" + strconv.Itoa(k.DistanceM)
}

// Source is one rankable row. Athlete is the identity used to collapse
// repeat swims in monthly scopes; empty disables collapsing for the row.
type Source struct {
	ID      string
	HeldOn  time.Time
	TimeMs  int
	Athlete string
	Class   EventClassKey
}

// SourceFromRow projects a joined result row. The athlete identity is the
// whitespace-insensitive name, falling back to the athlete id.
func SourceFromRow(r model.ResultRow) Source {
	return Source{
		ID:      r.ID,
		HeldOn:  r.HeldOn,
		TimeMs:  r.TimeMs,
		Athlete: AthleteIdentity(r.FullName, r.AthleteID),
		Class:   ClassKeyOf(r),
	}
}

// SourcesFromRows projects every row.
func SourcesFromRows(rows []model.ResultRow) []Source {
	out := make([]Source, len(rows))
	for i, r := range rows {
		out[i] = SourceFromRow(r)
	}
	return out
}

// AthleteIdentity prefers the normalized name and falls back to id.
func AthleteIdentity(fullName, athleteID string) string {
	if key := textnorm.NameSearchKey(fullName); key != "" {
		return "name:" + key
	}
	if athleteID != "" {
		return "id:" + athleteID
	}
	return ""
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
