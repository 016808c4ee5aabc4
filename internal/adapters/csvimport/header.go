package csvimport

import (
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

type field int

const (
	fieldMeetTitle field = iota
	fieldHeldOn
	fieldFullName
	fieldFullNameKana
	fieldGrade
	fieldGender
	fieldEventTitle
	fieldStyle
	fieldDistanceM
	fieldLane
	fieldTimeText
	fieldCount
)

var fieldNames = [fieldCount]string{
	"meet_title", "held_on", "full_name", "full_name_kana", "grade", "gender",
	"event_title", "style", "distance_m", "lane", "time_text",
}

func (f field) String() string { return fieldNames[f] }

var aliases = map[field][]string{
	fieldMeetTitle:    {"meet_title", "meet", "記録会名称", "記録会名", "記録会", "大会名"},
	fieldHeldOn:       {"held_on", "date", "開催日", "実施日", "日付"},
	fieldFullName:     {"full_name", "name", "氏名", "名前", "選手名"},
	fieldFullNameKana: {"full_name_kana", "kana", "ふりがな", "フリガナ", "よみがな", "かな"},
	fieldGrade:        {"grade", "学年"},
	fieldGender:       {"gender", "sex", "性別"},
	fieldEventTitle:   {"event_title", "event", "種目名", "種目"},
	fieldStyle:        {"style", "泳法"},
	fieldDistanceM:    {"distance_m", "distance", "距離"},
	fieldLane:         {"lane", "レーン", "コース"},
	fieldTimeText:     {"time_text", "time", "記録", "タイム"},
}

// aliasIndex maps a normalized header to its field.
var aliasIndex = func() map[string]field {
	idx := make(map[string]field)
	for f, names := range aliases {
		for _, n := range names {
			idx[normalizeHeader(n)] = f
		}
	}
	return idx
}()

// canonicalRequired are the columns of the wide canonical schema.
var canonicalRequired = []field{
	fieldMeetTitle, fieldHeldOn, fieldFullName, fieldGrade, fieldGender,
	fieldEventTitle, fieldStyle, fieldDistanceM, fieldTimeText,
}

// legacyRequired are the columns of a roster export.
var legacyRequired = []field{
	fieldFullName, fieldGrade, fieldGender, fieldEventTitle, fieldTimeText,
}

func normalizeHeader(h string) string {
	return textnorm.StyleKey(strings.TrimPrefix(h, bom))
}

// columns maps every field to the source column indexes that carry it,
// in header order.
type columns [fieldCount][]int

func mapHeader(header []string) columns {
	var cols columns
	for i, h := range header {
		f, ok := aliasIndex[normalizeHeader(h)]
		if !ok {
			continue
		}
		cols[f] = append(cols[f], i)
	}
	return cols
}

func (c columns) has(f field) bool { return len(c[f]) > 0 }

// value picks the first non-empty trimmed cell among the duplicate
// columns of f. Short records read as empty.
func (c columns) value(record []string, f field) string {
	for _, i := range c[f] {
		if i >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[i]); v != "" {
			return v
		}
	}
	return ""
}

type schema int

const (
	schemaCanonical schema = iota
	schemaLegacy
)

func (s schema) String() string {
	if s == schemaLegacy {
		return "legacy"
	}
	return "canonical"
}

// classify resolves the header into one of the two supported schemas.
func classify(cols columns) (schema, error) {
	missing := missingOf(cols, canonicalRequired)
	if len(missing) == 0 {
		return schemaCanonical, nil
	}
	if !cols.has(fieldMeetTitle) && !cols.has(fieldHeldOn) && len(missingOf(cols, legacyRequired)) == 0 {
		return schemaLegacy, nil
	}
	return 0, &MissingColumnsError{Missing: missing}
}

func missingOf(cols columns, required []field) []string {
	var missing []string
	for _, f := range required {
		if !cols.has(f) {
			missing = append(missing, f.String())
		}
	}
	return missing
}
