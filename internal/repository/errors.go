package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist, or a
	// conditional update found no row matching its precondition.
	ErrNotFound = errors.New("entity not found")
)
