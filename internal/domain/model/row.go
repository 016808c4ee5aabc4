package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/swimtime"
)

// DateLayout is the wire layout of held_on values.
const DateLayout = "2006-01-02"

// ImportRow is the string-typed row produced by the CSV normalizer.
// Numeric coercion happens in Canonical.
type ImportRow struct {
	MeetTitle    string `json:"meet_title"`
	HeldOn       string `json:"held_on"`
	FullName     string `json:"full_name"`
	FullNameKana string `json:"full_name_kana,omitempty"`
	Grade        string `json:"grade"`
	Gender       string `json:"gender"`
	EventTitle   string `json:"event_title"`
	Style        string `json:"style"`
	DistanceM    string `json:"distance_m"`
	Lane         string `json:"lane,omitempty"`
	TimeText     string `json:"time_text"`
}

// CanonicalRow is a typed import row ready for persistence.
type CanonicalRow struct {
	MeetTitle    string
	HeldOn       time.Time
	FullName     string
	FullNameKana string
	Grade        int
	Gender       Gender
	EventTitle   string
	Style        string
	DistanceM    int
	Lane         *int
	TimeText     string
	TimeMs       int
}

// Canonical coerces the string fields. The returned error wraps
// ErrInvalidRow and names the offending field.
func (r ImportRow) Canonical() (CanonicalRow, error) {
	out := CanonicalRow{
		MeetTitle:    strings.TrimSpace(r.MeetTitle),
		FullName:     strings.TrimSpace(r.FullName),
		FullNameKana: strings.TrimSpace(r.FullNameKana),
		EventTitle:   strings.TrimSpace(r.EventTitle),
		Style:        strings.TrimSpace(r.Style),
		TimeText:     strings.TrimSpace(r.TimeText),
	}
	if out.MeetTitle == "" || out.FullName == "" || out.EventTitle == "" {
		return CanonicalRow{}, fmt.Errorf("%w: meet_title, full_name and event_title are required", ErrInvalidRow)
	}

	heldOn, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.HeldOn), time.UTC)
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("%w: held_on %q", ErrInvalidRow, r.HeldOn)
	}
	out.HeldOn = heldOn

	grade, err := strconv.Atoi(strings.TrimSpace(r.Grade))
	if err != nil || grade < 0 {
		return CanonicalRow{}, fmt.Errorf("%w: grade %q", ErrInvalidRow, r.Grade)
	}
	out.Grade = grade

	gender, err := ParseGender(r.Gender)
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}
	out.Gender = gender

	distance, err := strconv.Atoi(strings.TrimSpace(r.DistanceM))
	if err != nil || distance <= 0 {
		return CanonicalRow{}, fmt.Errorf("%w: distance_m %q", ErrInvalidRow, r.DistanceM)
	}
	out.DistanceM = distance

	if lane := strings.TrimSpace(r.Lane); lane != "" {
		n, err := strconv.Atoi(lane)
		if err != nil {
			return CanonicalRow{}, fmt.Errorf("%w: lane %q", ErrInvalidRow, r.Lane)
		}
		out.Lane = &n
	}

	ms, err := swimtime.ParseToMs(out.TimeText)
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("%w: time_text: %w", ErrInvalidRow, err)
	}
	out.TimeMs = ms

	return out, nil
}
