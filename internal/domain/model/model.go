// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Gender of an athlete or event class.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender accepts the canonical gender values only.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.TrimSpace(s)); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGender, s)
}

// Order sorts male before female before other.
func (g Gender) Order() int {
	switch g {
	case GenderMale:
		return 0
	case GenderFemale:
		return 1
	default:
		return 2
	}
}

// Label is the Japanese column label used on documents.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "男子"
	case GenderFemale:
		return "女子"
	default:
		return "その他"
	}
}

// Program identifies which course a meet belongs to.
type Program string

const (
	ProgramSwimming  Program = "swimming"
	ProgramSchool    Program = "school"
	ProgramChallenge Program = "challenge"
)

// ParseProgram validates a program name.
func ParseProgram(s string) (Program, error) {
	switch p := Program(strings.ToLower(strings.TrimSpace(s))); p {
	case ProgramSwimming, ProgramSchool, ProgramChallenge:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProgram, s)
}

// Athlete is a persisted swimmer. Identity is (FullName, Grade, Gender).
type Athlete struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	FullNameKana string `json:"fullNameKana,omitempty"`
	Grade        int    `json:"grade"`
	Gender       Gender `json:"gender"`
}

// Meet is a persisted record session. Identity is (Program, HeldOn, Title).
type Meet struct {
	ID      string    `json:"id"`
	Program Program   `json:"program"`
	Title   string    `json:"title"`
	HeldOn  time.Time `json:"heldOn"`
}

// Event is a persisted event class. Identity is (Title, DistanceM, Style,
// Grade, Gender).
type Event struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DistanceM int    `json:"distanceM"`
	Style     string `json:"style"`
	Grade     int    `json:"grade"`
	Gender    Gender `json:"gender"`
}

// Result is one swim. Identity is (AthleteID, MeetID, EventID). Rank is the
// dense rank inside its (meet, event) target and is zero until computed.
type Result struct {
	ID        string `json:"id"`
	AthleteID string `json:"athleteId"`
	MeetID    string `json:"meetId"`
	EventID   string `json:"eventId"`
	Lane      *int   `json:"lane,omitempty"`
	TimeText  string `json:"timeText"`
	TimeMs    int    `json:"timeMs"`
	Rank      int    `json:"rank"`
}

// ResultRow is a result joined with its athlete, event and meet.
type ResultRow struct {
	ID           string    `json:"id"`
	AthleteID    string    `json:"athleteId"`
	FullName     string    `json:"fullName"`
	FullNameKana string    `json:"fullNameKana,omitempty"`
	Grade        int       `json:"grade"`
	Gender       Gender    `json:"gender"`
	EventID      string    `json:"eventId"`
	EventTitle   string    `json:"eventTitle"`
	DistanceM    int       `json:"distanceM"`
	Style        string    `json:"style"`
	MeetID       string    `json:"meetId"`
	MeetTitle    string    `json:"meetTitle"`
	HeldOn       time.Time `json:"heldOn"`
	Program      Program   `json:"program"`
	Lane         *int      `json:"lane,omitempty"`
	TimeText     string    `json:"timeText"`
	TimeMs       int       `json:"timeMs"`
	Rank         int       `json:"rank"`
}

// RankTarget is a (meet, event) pair whose results share one dense ranking.
type RankTarget struct {
	MeetID  string `json:"meetId"`
	EventID string `json:"eventId"`
}

// Key is a stable identifier used for job deduplication.
func (t RankTarget) Key() string { return t.MeetID + ":" + t.EventID }

// RecomputeJob asks a worker to recompute ranks of one target.
type RecomputeJob struct {
	ID     string
	Target RankTarget
	Queued time.Time
}

// RowQuery narrows the rows returned by the store. Zero values mean
// "no filter". To is exclusive.
type RowQuery struct {
	Program        Program
	From           time.Time
	To             time.Time
	AthleteID      string
	AthleteNameKey string
	Grade          *int
	Gender         Gender
	EventID        string
}

// Counts summarizes store contents.
type Counts struct {
	Athletes int `json:"athletes"`
	Meets    int `json:"meets"`
	Events   int `json:"events"`
	Results  int `json:"results"`
}
