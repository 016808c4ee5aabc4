package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for CSV normalization errors.
var (
	ErrUndecodableEncoding     = errors.New("csv is neither valid UTF-8 nor Shift-JIS")
	ErrMissingColumns          = errors.New("required columns are missing")
	ErrCannotDeriveMeetContext = errors.New("cannot derive meet title and date")
	ErrCannotExtractDistance   = errors.New("cannot extract distance from event title")
	ErrIncompleteRow           = errors.New("row is missing grade, gender or event title")
	ErrNoValidRows             = errors.New("no valid rows")
)

// MissingColumnsError lists the canonical fields absent from the header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// RowError points at a data row. Row is 1-based with the header as row 1.
type RowError struct {
	Err error
	Row int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// errorKind is the metrics label of a normalization failure.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUndecodableEncoding):
		return "undecodable_encoding"
	case errors.Is(err, ErrMissingColumns):
		return "missing_columns"
	case errors.Is(err, ErrCannotDeriveMeetContext):
		return "meet_context"
	case errors.Is(err, ErrCannotExtractDistance):
		return "distance"
	case errors.Is(err, ErrIncompleteRow):
		return "incomplete_row"
	case errors.Is(err, ErrNoValidRows):
		return "no_valid_rows"
	}
	return "malformed"
}
