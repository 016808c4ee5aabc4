// Package meetctx formats and parses meet titles of the form
// "2026年2月木曜" and derives the held-on date they imply.
package meetctx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Weekday is the session weekday printed in meet titles.
type Weekday string

const (
	Monday    Weekday = "月曜"
	Tuesday   Weekday = "火曜"
	Wednesday Weekday = "水曜"
	Thursday  Weekday = "木曜"
	Friday    Weekday = "金曜"
	Saturday  Weekday = "土曜"
	Sunday    Weekday = "日曜"
)

// Weekdays lists every accepted weekday in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday accepts "木", "木曜" and "木曜日".
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidWeekday)
	}
	if s == "日" {
		return Sunday, nil
	}
	s = strings.TrimSuffix(s, "日")
	if !strings.HasSuffix(s, "曜") {
		s += "曜"
	}
	for _, w := range Weekdays {
		if Weekday(s) == w {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// Context is the year, month and optional weekday a roster belongs to.
type Context struct {
	Year    int     `json:"year"`
	Month   int     `json:"month"`
	Weekday Weekday `json:"weekday,omitempty"`
}

// Validate checks that the context names a real month.
func (c Context) Validate() error {
	if c.Year < 1 || c.Month < 1 || c.Month > 12 {
		return fmt.Errorf("%w: %d-%d", ErrInvalidContext, c.Year, c.Month)
	}
	if c.Weekday != "" {
		if _, err := ParseWeekday(string(c.Weekday)); err != nil {
			return err
		}
	}
	return nil
}

// Title formats "{year}年{month}月{weekday}".
func (c Context) Title() string {
	return fmt.Sprintf("%d年%d月%s", c.Year, c.Month, c.Weekday)
}

// HeldOn is the first day of the context month in UTC.
func (c Context) HeldOn() time.Time {
	return time.Date(c.Year, time.Month(c.Month), 1, 0, 0, 0, 0, time.UTC)
}

// HeldOnString formats HeldOn as YYYY-MM-DD.
func (c Context) HeldOnString() string {
	return c.HeldOn().Format("2006-01-02")
}

// TitleInfo is what ParseTitle recovers from a formatted title.
type TitleInfo struct {
	Context
	// Suffix is the session counter from "（2）", empty when absent.
	Suffix string
}

var titlePattern = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(?:([月火水木金土日])曜(?:日)?)?(?:\s*（(\d+)）)?$`)

// ParseTitle recognizes "2026年2月木曜", "2026年2月木曜日（2）" and
// "2026年2月". It reports false for any other title.
func ParseTitle(title string) (TitleInfo, bool) {
	m := titlePattern.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return TitleInfo{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	info := TitleInfo{Context: Context{Year: year, Month: month}, Suffix: m[4]}
	if m[3] != "" {
		info.Weekday = Weekday(m[3] + "曜")
	}
	if info.Validate() != nil {
		return TitleInfo{}, false
	}
	return info, true
}

// FormatLabel renders a meet for selection lists: "2026年2月 木曜 （2）"
// for context titles, "title (YYYY-MM-DD)" otherwise.
func FormatLabel(title string, heldOn time.Time) string {
	info, ok := ParseTitle(title)
	if !ok {
		return fmt.Sprintf("%s (%s)", title, heldOn.UTC().Format("2006-01-02"))
	}
	label := fmt.Sprintf("%d年%d月", info.Year, info.Month)
	if info.Weekday != "" {
		label += " " + string(info.Weekday)
	}
	if info.Suffix != "" {
		label += " （" + info.Suffix + "）"
	}
	return label
}

// FormatMonthLabel renders "2026年2月" from the title, falling back to the
// held-on month.
func FormatMonthLabel(title string, heldOn time.Time) string {
	if info, ok := ParseTitle(title); ok {
		return fmt.Sprintf("%d年%d月", info.Year, info.Month)
	}
	return MonthLabel(heldOn)
}

// MonthLabel formats t as "YYYY年M月" in UTC.
func MonthLabel(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d年%d月", t.Year(), int(t.Month()))
}
