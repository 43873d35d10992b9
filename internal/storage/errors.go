package storage

import "errors"

var (
	// ErrModelNotFound is returned when a lookup by name or id finds nothing
	ErrModelNotFound = errors.New("model not found")

	// ErrUnknownBackend is returned for an unsupported metadata backend
	ErrUnknownBackend = errors.New("unknown metadata backend")
)
