package docsfilter

import "errors"

var (
	ErrInvalidFilter = errors.New("invalid document filter")
)
