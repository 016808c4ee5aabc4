package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrInvalidGender  = errors.New("invalid gender")
	ErrInvalidProgram = errors.New("invalid program")
	ErrInvalidRow     = errors.New("invalid import row")
)
