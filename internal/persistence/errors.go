package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert collides with an existing
	// record under a uniqueness constraint, such as a second active booking
	// for the same user and event.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation is returned when a record fails a store-level
	// integrity check.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
