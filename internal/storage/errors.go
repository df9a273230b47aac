package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when the durable store itself is
	// unreachable or corrupt. It is fatal for an ingestion cycle: no
	// further progress can be trusted once the store misbehaves.
	ErrUnavailable = errors.New("storage unavailable")
)
