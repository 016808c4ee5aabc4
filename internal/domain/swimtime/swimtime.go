// Package swimtime converts elapsed-time text such as "1:02.34" into
// integer milliseconds and back into document notation.
package swimtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

const (
	msPerSecond   = 1000
	msPerMinute   = 60 * msPerSecond
	fractionWidth = 3
)

// ParseToMs parses "[MM:]SS[.fff]" into milliseconds. The fraction is
// right-padded to three digits and only its first three digits count, so
// ".1" is 100ms and ".1234" is 123ms. Full-width digits are accepted.
func ParseToMs(text string) (int, error) {
	s := strings.TrimSpace(textnorm.DigitsToHalfWidth(text))
	if s == "" {
		return 0, fmt.Errorf("%w: empty time", ErrInvalidFormat)
	}

	minutes := 0
	secondsText := s
	if head, tail, found := strings.Cut(s, ":"); found {
		if strings.Contains(tail, ":") {
			return 0, fmt.Errorf("%w: %q has more than one colon", ErrInvalidFormat, text)
		}
		m, err := parseDigits(head)
		if err != nil {
			return 0, fmt.Errorf("%w: minutes in %q", ErrInvalidFormat, text)
		}
		minutes = m
		secondsText = tail
	}

	whole, fraction, hasFraction := strings.Cut(secondsText, ".")
	seconds, err := parseDigits(whole)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds in %q", ErrInvalidFormat, text)
	}

	ms := 0
	if hasFraction {
		if fraction != "" && !isDigits(fraction) {
			return 0, fmt.Errorf("%w: fraction in %q", ErrInvalidFormat, text)
		}
		padded := (fraction + strings.Repeat("0", fractionWidth))[:fractionWidth]
		ms, _ = strconv.Atoi(padded)
	}

	return minutes*msPerMinute + seconds*msPerSecond + ms, nil
}

// FormatForDocument renders times above one minute as "1分5秒32" (or
// "2分3秒" when the hundredths are zero) and returns shorter times as the
// trimmed source text. A non-positive timeMs is derived from text; text
// that does not parse is returned unchanged.
func FormatForDocument(text string, timeMs int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	ms := timeMs
	if ms <= 0 {
		parsed, err := ParseToMs(trimmed)
		if err != nil {
			return trimmed
		}
		ms = parsed
	}

	if ms <= msPerMinute {
		return trimmed
	}

	minutes := ms / msPerMinute
	rest := ms - minutes*msPerMinute
	seconds := rest / msPerSecond
	hundredths := (rest % msPerSecond) / 10
	if hundredths > 0 {
		return fmt.Sprintf("%d分%d秒%02d", minutes, seconds, hundredths)
	}
	return fmt.Sprintf("%d分%d秒", minutes, seconds)
}

func parseDigits(s string) (int, error) {
	if !isDigits(s) {
		return 0, ErrInvalidFormat
	}
	return strconv.Atoi(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
