package driven

import "context"

// CallCache persists resolved external call results keyed by a
// content-stable identity (file content hash + operation kind).
//
// Writes must be atomic per key: an interrupted write must never leave
// a corrupt entry observable after restart. Cross-key transactions are
// not required.
type CallCache interface {
	// Get returns the cached payload, or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the payload under key, replacing any previous value.
	Put(ctx context.Context, key string, payload []byte) error
}

// CheckpointStore records completed (item, stage) pairs so an
// interrupted run can resume without re-invoking resolved calls.
// Optional: a nil store disables resume.
type CheckpointStore interface {
	// Done reports whether the (key, stage) pair completed previously.
	Done(ctx context.Context, key, stage string) (bool, error)

	// Mark records completion of the (key, stage) pair.
	Mark(ctx context.Context, key, stage string) error
}
