package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as a
	// missing or unreadable audit root. Fatal: aborts the run before
	// any work is dispatched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAdapterFailed indicates an external call failed after
	// exhausting retries and fallback. Recoverable at the per-item
	// level: converted into a processing-error finding.
	ErrAdapterFailed = errors.New("adapter call failed")

	// ErrDataUnparseable indicates an extracted value could not be
	// interpreted (unknown unit, malformed quantity). Recorded as a
	// finding; processing of the item continues where possible.
	ErrDataUnparseable = errors.New("extracted data unparseable")

	// ErrUnsupportedKind indicates a document kind outside the
	// supported classification set.
	ErrUnsupportedKind = errors.New("unsupported document kind")

	// ErrCacheMiss indicates a cache lookup found no entry.
	ErrCacheMiss = errors.New("cache miss")
)
