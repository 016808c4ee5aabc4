// Package grade maps numeric grades to Japanese labels and back.
//
// Grades are stored as integers: 0–3 are the preschool years
// (年少々, 年少, 年中, 年長), 4–9 elementary school, 10–12 junior high
// and 13–15 high school.
package grade

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

// Challenge course grade band.
const (
	ChallengeMin = 1
	ChallengeMax = 15

	// PreschoolMax is the highest preschool grade (年長).
	PreschoolMax = 3
)

const (
	elementaryOffset = 3
	juniorOffset     = 9
	highOffset       = 12
)

var preschoolLabels = [...]string{"年少々", "年少", "年中", "年長"}

// Label returns the long label, e.g. "小学2年生".
func Label(g int) string {
	switch {
	case g >= 0 && g <= PreschoolMax:
		return preschoolLabels[g]
	case g >= 4 && g <= 9:
		return fmt.Sprintf("小学%d年生", g-elementaryOffset)
	case g >= 10 && g <= 12:
		return fmt.Sprintf("中学%d年生", g-juniorOffset)
	case g >= 13 && g <= 15:
		return fmt.Sprintf("高校%d年生", g-highOffset)
	}
	return fmt.Sprintf("%d年", g)
}

// ShortLabel returns the compact label, e.g. "小2".
func ShortLabel(g int) string {
	switch {
	case g >= 0 && g <= PreschoolMax:
		return preschoolLabels[g]
	case g >= 4 && g <= 9:
		return fmt.Sprintf("小%d", g-elementaryOffset)
	case g >= 10 && g <= 12:
		return fmt.Sprintf("中%d", g-juniorOffset)
	case g >= 13 && g <= 15:
		return fmt.Sprintf("高%d", g-highOffset)
	}
	return fmt.Sprintf("%d年", g)
}

// ElementaryFirstLabel is used for data where elementary grades were
// stored as 1..6.
func ElementaryFirstLabel(g int) string {
	if g >= 1 && g <= 6 {
		return fmt.Sprintf("小学%d年生", g)
	}
	return Label(g)
}

var (
	elementaryPattern = regexp.MustCompile(`^小(?:学)?(\d)(?:年生?)?$`)
	juniorPattern     = regexp.MustCompile(`^中(?:学)?(\d)(?:年生?)?$`)
	highPattern       = regexp.MustCompile(`^高(?:校)?(\d)(?:年生?)?$`)
	digitsPattern     = regexp.MustCompile(`^\d+$`)
)

type schoolStage struct {
	pattern *regexp.Regexp
	offset  int
	years   int
}

var stages = []schoolStage{
	{elementaryPattern, elementaryOffset, 6},
	{juniorPattern, juniorOffset, 3},
	{highPattern, highOffset, 3},
}

// Normalize converts grade vocabulary into the numeric grade string.
// Preschool words map to 0–3, 小N/小学N年生 to N+3, 中N to N+9 and 高N
// to N+12. Plain digits pass through unchanged; anything else is returned
// trimmed so that later coercion reports it.
func Normalize(raw string) string {
	s := strings.ReplaceAll(textnorm.DigitsToHalfWidth(strings.TrimSpace(raw)), " ", "")
	if s == "" {
		return ""
	}
	if digitsPattern.MatchString(s) {
		return s
	}
	// 年少々 must be checked before 年少.
	for g := len(preschoolLabels) - 1; g >= 0; g-- {
		if s == preschoolLabels[g] {
			return strconv.Itoa(g)
		}
	}
	for _, st := range stages {
		if m := st.pattern.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n >= 1 && n <= st.years {
				return strconv.Itoa(n + st.offset)
			}
		}
	}
	return strings.TrimSpace(raw)
}

// IsChallenge reports whether raw is an integer grade inside the challenge
// band.
func IsChallenge(raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v != math.Trunc(v) {
		return false
	}
	return v >= ChallengeMin && v <= ChallengeMax
}

// ChallengeFilterResult is the outcome of FilterChallenge.
type ChallengeFilterResult[T any] struct {
	Accepted []T
	Skipped  int
}

// FilterChallenge keeps rows whose grade lies in the challenge band.
// Skipped equals the number of rejected rows.
func FilterChallenge[T any](rows []T, gradeOf func(T) string) ChallengeFilterResult[T] {
	accepted := make([]T, 0, len(rows))
	for _, r := range rows {
		if IsChallenge(gradeOf(r)) {
			accepted = append(accepted, r)
		}
	}
	return ChallengeFilterResult[T]{Accepted: accepted, Skipped: len(rows) - len(accepted)}
}
