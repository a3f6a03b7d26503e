package engine

import (
	"errors"
	"fmt"
)

// Engine errors. These are fatal: they indicate a misbuilt graph or an
// exhausted safety bound, never a per-item data problem.
var (
	// ErrIterationBound indicates the step budget was exceeded.
	ErrIterationBound = errors.New("iteration bound exceeded")

	// ErrGraphInvalid indicates the graph failed construction-time
	// validation (conflicting writes, dangling edges, missing entry).
	ErrGraphInvalid = errors.New("invalid graph")
)

// recoverableError marks a stage failure that the engine may retry and
// then absorb instead of aborting the enclosing branch.
type recoverableError struct {
	err error
}

func (e *recoverableError) Error() string { return e.err.Error() }
func (e *recoverableError) Unwrap() error { return e.err }

// Recoverable wraps an error to mark it absorbable: the engine retries
// the stage per policy and, on exhaustion, hands it to the configured
// OnRecoverable hook rather than failing the branch.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &recoverableError{err: err}
}

// IsRecoverable reports whether err (or any wrapped error) was marked
// with Recoverable.
func IsRecoverable(err error) bool {
	var re *recoverableError
	return errors.As(err, &re)
}

// NodeError carries the failing node's name alongside the cause.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
