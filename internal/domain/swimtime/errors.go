package swimtime

import "errors"

// Sentinel kinds for time parsing errors.
var (
	ErrInvalidFormat = errors.New("invalid time format")
)
