// Package textnorm normalizes event titles and athlete names and orders
// strings the way Japanese readers expect.
package textnorm

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// CollapseSpace trims s and folds every run of whitespace, including the
// ideographic space U+3000, into a single ASCII space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTitle folds full-width ASCII to half width and collapses
// whitespace. Half-width katakana is widened by the same fold.
func NormalizeTitle(title string) string {
	return CollapseSpace(width.Fold.String(title))
}

// TitleKey is the comparison key for event titles: the normalized title,
// case-folded, with all whitespace removed. "15ｍ 板キック" and
// "15M板キック" share a key.
func TitleKey(title string) string {
	folded := cases.Fold().String(NormalizeTitle(title))
	return strings.Join(strings.Fields(folded), "")
}

// StyleKey is the comparison key for stroke style labels.
func StyleKey(style string) string {
	return cases.Fold().String(NormalizeTitle(style))
}

// NormalizeFullName collapses whitespace inside a person's name.
func NormalizeFullName(name string) string {
	return CollapseSpace(name)
}

// NameSearchKey removes all whitespace from a name so that "山田 太郎",
// "山田　太郎" and "山田太郎" match.
func NameSearchKey(name string) string {
	return strings.Join(strings.Fields(name), "")
}

// DigitsToHalfWidth converts the full-width ASCII block (U+FF01 to
// U+FF5E) and the ideographic space to their ASCII forms. Kana and kanji
// are left untouched.
func DigitsToHalfWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '！' && r <= '～':
			return r - fullWidthOffset
		case r == '\u3000':
			return ' '
		}
		return r
	}, s)
}

// fullWidthOffset is the distance from U+FF01 back to '!'.
const fullWidthOffset = '！' - '!'

var collators = sync.Pool{
	New: func() any { return collate.New(language.Japanese) },
}

// Compare orders a and b using Japanese collation. It returns a negative
// number, zero or a positive number like strings.Compare.
func Compare(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}
