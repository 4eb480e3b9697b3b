package domain

import "errors"

var (
	// ErrInvalidInput marks requests rejected before any work started.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks unknown users and missing or expired briefings.
	ErrNotFound = errors.New("not found")
)
