package certificate

import "errors"

var (
	// ErrDuplicateFilenameExhausted is returned when no "_N" suffix below
	// the limit is free for a file name.
	ErrDuplicateFilenameExhausted = errors.New("too many duplicate file names")
)
