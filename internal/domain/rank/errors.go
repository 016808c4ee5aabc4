package rank

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrDuplicateID = errors.New("duplicate result id")
)
