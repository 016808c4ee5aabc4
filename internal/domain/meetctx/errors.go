package meetctx

import "errors"

// Sentinel kinds for meet context errors.
var (
	ErrInvalidWeekday = errors.New("invalid weekday")
	ErrInvalidContext = errors.New("invalid meet context")
)
