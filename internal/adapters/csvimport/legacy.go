package csvimport

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// meetHeader is the title and date shared by every row of a roster.
type meetHeader struct {
	title  string
	heldOn string
}

var (
	fullDatePattern  = regexp.MustCompile(`(\d{4})[-_./](\d{1,2})[-_./](\d{1,2})`)
	shortDatePattern = regexp.MustCompile(`(\d{2})[-_./](\d{1,2})`)
)

// deriveMeet prefers the explicit context and falls back to the file
// name: "2025-09-14 月.csv" or "25.09名簿 - 月.csv".
func deriveMeet(ctx *meetctx.Context, fileName string) (meetHeader, error) {
	if ctx != nil {
		if err := ctx.Validate(); err != nil {
			return meetHeader{}, fmt.Errorf("%w: %w", ErrCannotDeriveMeetContext, err)
		}
		return meetHeader{title: ctx.Title(), heldOn: ctx.HeldOnString()}, nil
	}

	base := filepath.Base(strings.TrimSpace(fileName))
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." {
		return meetHeader{}, fmt.Errorf("%w: no context and no file name", ErrCannotDeriveMeetContext)
	}
	digits := foldDigits(stem)

	if m := fullDatePattern.FindStringSubmatch(digits); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if held, ok := validDate(y, mo, d); ok {
			return meetHeader{title: stem, heldOn: held}, nil
		}
	}
	if m := shortDatePattern.FindStringSubmatch(digits); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if held, ok := validDate(2000+y, mo, 1); ok {
			return meetHeader{title: stem, heldOn: held}, nil
		}
	}
	return meetHeader{}, fmt.Errorf("%w: %q", ErrCannotDeriveMeetContext, base)
}

func validDate(y, m, d int) (string, bool) {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(model.DateLayout), true
}

// foldDigits maps full-width digits to ASCII and leaves every other rune
// alone, so "15ｍ板キック" keeps its full-width ｍ.
func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return '0' + (r - '０')
		}
		return r
	}, s)
}

var distancePattern = regexp.MustCompile(`(\d+)\s*[mｍMＭ]`)

func extractDistance(title string) (string, bool) {
	m := distancePattern.FindStringSubmatch(foldDigits(title))
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// styleKeywords is checked in order; the first keyword found in the
// event title decides the style.
var styleKeywords = []struct {
	keyword string
	style   string
}{
	{"自由形", "free"},
	{"クロール", "free"},
	{"背泳ぎ", "back"},
	{"平泳ぎ", "breast"},
	{"バタフライ", "fly"},
	{"メドレー", "im"},
	{"キック", "kick"},
}

func styleOf(title string) string {
	for _, k := range styleKeywords {
		if strings.Contains(title, k.keyword) {
			return k.style
		}
	}
	return "other"
}

var genderWords = map[string]model.Gender{
	"m": model.GenderMale, "male": model.GenderMale, "男": model.GenderMale, "男子": model.GenderMale, "男性": model.GenderMale,
	"f": model.GenderFemale, "female": model.GenderFemale, "女": model.GenderFemale, "女子": model.GenderFemale, "女性": model.GenderFemale,
	"other": model.GenderOther, "その他": model.GenderOther,
}

// normalizeGender maps roster vocabulary to the canonical values and
// passes anything else through for later coercion to reject.
func normalizeGender(raw string) string {
	s := strings.TrimSpace(raw)
	if g, ok := genderWords[strings.ToLower(textnorm.DigitsToHalfWidth(s))]; ok {
		return string(g)
	}
	return s
}

func normalizeName(s string) string {
	return textnorm.NormalizeFullName(s)
}

// skipReason names why a roster row was dropped; empty keeps the row.
type skipReason string

const (
	skipNone    skipReason = ""
	skipBlank   skipReason = "blank"
	skipNoEvent skipReason = "absent_no_event"
	skipNoTime  skipReason = "absent_no_time"
	skipNoName  skipReason = "no_name"
)

// legacyRow normalizes one roster record. Row is the 1-based line used in
// errors.
func legacyRow(cols columns, record []string, meet meetHeader, row int) (model.ImportRow, skipReason, error) {
	cell := func(f field) string { return foldDigits(cols.value(record, f)) }

	name := normalizeName(cell(fieldFullName))
	timeText := textnorm.DigitsToHalfWidth(cell(fieldTimeText))
	eventTitle := cell(fieldEventTitle)

	switch {
	case name == "" && timeText == "":
		return model.ImportRow{}, skipBlank, nil
	case name != "" && eventTitle == "":
		return model.ImportRow{}, skipNoEvent, nil
	case name != "" && timeText == "":
		return model.ImportRow{}, skipNoTime, nil
	case name == "":
		return model.ImportRow{}, skipNoName, nil
	}

	gradeText := grade.Normalize(cell(fieldGrade))
	gender := normalizeGender(cell(fieldGender))
	if gradeText == "" || gender == "" {
		return model.ImportRow{}, skipNone, &RowError{Err: ErrIncompleteRow, Row: row}
	}

	distance := cell(fieldDistanceM)
	if distance == "" {
		d, ok := extractDistance(eventTitle)
		if !ok {
			return model.ImportRow{}, skipNone, &RowError{Err: ErrCannotExtractDistance, Row: row}
		}
		distance = d
	}
	style := cell(fieldStyle)
	if style == "" {
		style = styleOf(eventTitle)
	}

	return model.ImportRow{
		MeetTitle:    meet.title,
		HeldOn:       meet.heldOn,
		FullName:     name,
		FullNameKana: normalizeName(cell(fieldFullNameKana)),
		Grade:        gradeText,
		Gender:       gender,
		EventTitle:   eventTitle,
		Style:        style,
		DistanceM:    distance,
		Lane:         textnorm.DigitsToHalfWidth(cell(fieldLane)),
		TimeText:     timeText,
	}, skipNone, nil
}
