// Package csvimport turns uploaded spreadsheet exports into string-typed
// import rows.
//
// Two header schemas are accepted. The canonical schema carries every
// field as its own column. The legacy roster schema has no meet columns:
// the meet is taken from an explicit year/month/weekday context or from
// the file name, and absentee rows are dropped.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/metrics"
)

// Upload is one file to normalize. Context overrides the file name when
// deriving the meet of a legacy roster.
type Upload struct {
	Name    string
	Data    []byte
	Context *meetctx.Context
}

// Normalizer converts uploads into model.ImportRow values.
type Normalizer struct {
	logger logger.Logger
}

// NewNormalizer creates a normalizer with options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("csvimport")
	}
	return n
}

// NormalizeAll normalizes every upload and concatenates the rows in list
// order. The first failing upload aborts the batch.
func (n *Normalizer) NormalizeAll(ctx context.Context, uploads []Upload) ([]model.ImportRow, error) {
	var all []model.ImportRow
	for _, u := range uploads {
		rows, err := n.Normalize(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.Name, err)
		}
		all = append(all, rows...)
	}
	return all, nil
}

// Normalize decodes, classifies and normalizes one upload.
func (n *Normalizer) Normalize(ctx context.Context, u Upload) ([]model.ImportRow, error) {
	rows, kind, err := n.normalize(ctx, u)
	if err != nil {
		if ctx.Err() == nil {
			metrics.RecordCSVParseError(errorKind(err))
		}
		n.logger.Warn(ctx, "csv rejected", logger.String("file", u.Name), logger.Error(err))
		return nil, err
	}
	metrics.RecordCSVRowsNormalized(kind.String(), len(rows))
	n.logger.Debug(ctx, "csv normalized",
		logger.String("file", u.Name),
		logger.String("schema", kind.String()),
		logger.Int("rows", len(rows)),
	)
	return rows, nil
}

func (n *Normalizer) normalize(ctx context.Context, u Upload) ([]model.ImportRow, schema, error) {
	text, encoding, err := decode(ctx, u.Data)
	if err != nil {
		return nil, 0, err
	}
	n.logger.Debug(ctx, "csv decoded", logger.String("file", u.Name), logger.String("encoding", encoding))

	records, err := readRecords(text)
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, &MissingColumnsError{Missing: missingOf(columns{}, canonicalRequired)}
	}

	cols := mapHeader(records[0])
	kind, err := classify(cols)
	if err != nil {
		return nil, 0, err
	}

	data := records[1:]
	if kind == schemaCanonical {
		return canonicalRows(cols, data), kind, nil
	}

	meet, err := deriveMeet(u.Context, u.Name)
	if err != nil {
		return nil, kind, err
	}
	out := make([]model.ImportRow, 0, len(data))
	skipped := make(map[skipReason]int)
	for i, record := range data {
		row, reason, err := legacyRow(cols, record, meet, i+2)
		if err != nil {
			return nil, kind, err
		}
		if reason != skipNone {
			skipped[reason]++
			continue
		}
		out = append(out, row)
	}
	for reason, count := range skipped {
		metrics.RecordCSVRowsSkipped(string(reason), count)
	}
	if len(out) == 0 {
		return nil, kind, ErrNoValidRows
	}
	return out, kind, nil
}

func canonicalRows(cols columns, data [][]string) []model.ImportRow {
	out := make([]model.ImportRow, 0, len(data))
	for _, record := range data {
		if isBlank(record) {
			continue
		}
		out = append(out, model.ImportRow{
			MeetTitle:    cols.value(record, fieldMeetTitle),
			HeldOn:       cols.value(record, fieldHeldOn),
			FullName:     cols.value(record, fieldFullName),
			FullNameKana: cols.value(record, fieldFullNameKana),
			Grade:        cols.value(record, fieldGrade),
			Gender:       cols.value(record, fieldGender),
			EventTitle:   cols.value(record, fieldEventTitle),
			Style:        cols.value(record, fieldStyle),
			DistanceM:    cols.value(record, fieldDistanceM),
			Lane:         cols.value(record, fieldLane),
			TimeText:     cols.value(record, fieldTimeText),
		})
	}
	return out
}

// readRecords reads every record. Rows may have differing widths; empty
// lines are skipped by the reader.
func readRecords(text string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
