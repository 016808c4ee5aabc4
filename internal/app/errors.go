package service

import "errors"

var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoData       = errors.New("no matching data")
	ErrRateLimited  = errors.New("too many requests")
)
