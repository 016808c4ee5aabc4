// Package docsfilter validates the month, weekday and name filters used
// when exporting documents.
package docsfilter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

const (
	yearMin    = 2000
	yearMax    = 2100
	maxNameLen = 80
)

// Input is the raw query. Empty strings mean "not given".
type Input struct {
	Year     string
	Month    string
	Weekday  string
	FullName string
}

// Filter is a validated Input. MonthStart and MonthEnd are set, in UTC,
// only when HasMonth is true.
type Filter struct {
	Year       int
	Month      int
	Weekday    meetctx.Weekday
	FullName   string
	HasMonth   bool
	MonthStart time.Time
	MonthEnd   time.Time
}

// Parse validates in. Year and month must come together; weekday and
// full name need both.
func Parse(in Input) (Filter, error) {
	var f Filter

	year, hasYear, err := intField("year", in.Year, yearMin, yearMax)
	if err != nil {
		return Filter{}, err
	}
	month, hasMonth, err := intField("month", in.Month, 1, 12)
	if err != nil {
		return Filter{}, err
	}
	if hasYear != hasMonth {
		return Filter{}, fmt.Errorf("%w: year and month must be given together", ErrInvalidFilter)
	}

	if w := strings.TrimSpace(in.Weekday); w != "" {
		wd, err := meetctx.ParseWeekday(w)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		if !hasYear {
			return Filter{}, fmt.Errorf("%w: weekday requires year and month", ErrInvalidFilter)
		}
		f.Weekday = wd
	}

	if name := strings.TrimSpace(in.FullName); name != "" {
		if utf8.RuneCountInString(name) > maxNameLen {
			return Filter{}, fmt.Errorf("%w: full name longer than %d characters", ErrInvalidFilter, maxNameLen)
		}
		if !hasYear {
			return Filter{}, fmt.Errorf("%w: full name requires year and month", ErrInvalidFilter)
		}
		f.FullName = textnorm.NormalizeFullName(name)
	}

	if hasYear {
		f.Year, f.Month, f.HasMonth = year, month, true
		f.MonthStart = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		f.MonthEnd = f.MonthStart.AddDate(0, 1, 0)
	}
	return f, nil
}

func intField(name, raw string, lo, hi int) (int, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", ErrInvalidFilter, name)
	}
	if v < lo || v > hi {
		return 0, false, fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidFilter, name, lo, hi)
	}
	return v, true, nil
}

// RowQuery narrows rows of program to the filter's month and athlete.
func (f Filter) RowQuery(program model.Program) model.RowQuery {
	q := model.RowQuery{Program: program}
	if f.HasMonth {
		q.From, q.To = f.MonthStart, f.MonthEnd
	}
	if f.FullName != "" {
		q.AthleteNameKey = textnorm.NameSearchKey(f.FullName)
	}
	return q
}

// MatchesMeet reports whether a meet title carries the filter's weekday.
func (f Filter) MatchesMeet(title string) bool {
	return f.Weekday == "" || strings.Contains(title, string(f.Weekday))
}

// IssueMonth returns the fixed certificate issue month, if any.
func (f Filter) IssueMonth() (year, month int, ok bool) {
	return f.Year, f.Month, f.HasMonth
}
