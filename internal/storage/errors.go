package storage

import "errors"

// Storage errors shared by every store implementation.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when metrics for the same (client_id, signature)
	// are already stored. Redelivered messages hit it and the first record stays.
	ErrDuplicateKey = errors.New("duplicate key: metrics already stored for client and signature")

	// ErrInvalidInput is returned when a record is nil or misses its key fields.
	ErrInvalidInput = errors.New("invalid input")
)
