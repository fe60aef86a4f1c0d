package swap

import "errors"

var (
	// ErrNotParsed means swap metrics could not be derived from a settled record.
	ErrNotParsed = errors.New("swap not parsed")

	// ErrRecordUnavailable means the settled record never became readable.
	ErrRecordUnavailable = errors.New("settled record unavailable")

	// ErrNoSwapEvents means the record carries no aggregator swap events.
	ErrNoSwapEvents = errors.New("no swap events in transaction")

	// ErrFeeMintMismatch means a route hop charges its fee in neither of its legs.
	ErrFeeMintMismatch = errors.New("fee mint matches neither hop input nor output")
)
