package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidEntity = errors.New("invalid entity")
	ErrClosed        = errors.New("store closed")
)
