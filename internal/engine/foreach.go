package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// IterationMode selects how a ForEach loop schedules and surfaces its
// item results.
type IterationMode int

const (
	// ModeStreaming runs each item's full sub-pipeline to completion
	// (up to the concurrency limit in parallel) and surfaces results
	// through OnItem as soon as each item finishes.
	ModeStreaming IterationMode = iota

	// ModeBatch dispatches the whole item set to the worker pool and
	// surfaces results only once all items have finished.
	ModeBatch
)

// ForEachOptions configures a bounded iteration node.
type ForEachOptions struct {
	// Items extracts the runtime item list from the incoming state.
	Items func(s State) ([]any, error)

	// Body runs the per-item sub-pipeline against the fork-time state.
	// Mark per-item failures with Recoverable to have them absorbed by
	// OnItemError instead of aborting the loop.
	Body func(ctx context.Context, item any, s State) (State, error)

	// Mode selects streaming or batch execution. Streaming is the default.
	Mode IterationMode

	// Concurrency limits in-flight items for this loop. Values below 1
	// run items sequentially.
	Concurrency int

	// Limiter, when set, is a global cap shared with nested loops:
	// every item body holds one permit while it runs, so total
	// concurrency respects the single cap rather than the product of
	// loop widths.
	Limiter *semaphore.Weighted

	// Writes declares the fields the body may write.
	Writes []string

	// OnItem observes each item's result state in completion order.
	OnItem func(item any, s State)

	// OnItemError absorbs a recoverable per-item failure, returning the
	// state to merge for that item (typically the fork-time state plus
	// a processing-error finding). When nil, recoverable failures
	// escalate and abort the loop.
	OnItemError func(ctx context.Context, item any, s State, err error) State
}

type forEachNode struct {
	name string
	opts ForEachOptions
}

// ForEach creates a bounded iteration node over a runtime item list.
func ForEach(name string, opts ForEachOptions) Node {
	return &forEachNode{name: name, opts: opts}
}

func (n *forEachNode) Name() string     { return n.name }
func (n *forEachNode) Writes() []string { return n.opts.Writes }

func (n *forEachNode) Run(ctx context.Context, s State) (State, error) {
	items, err := n.opts.Items(s)
	if err != nil {
		return s, fmt.Errorf("foreach %s: items: %w", n.name, err)
	}
	if len(items) == 0 {
		return s, nil
	}

	type itemResult struct {
		item  any
		state State
	}

	var (
		mu        sync.Mutex
		completed []itemResult
		fatal     atomic.Bool
		fatalErr  error
	)

	collect := func(item any, res State) {
		mu.Lock()
		completed = append(completed, itemResult{item: item, state: res})
		mu.Unlock()
		if n.opts.Mode == ModeStreaming && n.opts.OnItem != nil {
			n.opts.OnItem(item, res)
		}
	}

	// Plain errgroup (no WithContext): a fatal item must not cancel
	// siblings already in flight, it only stops new items from being
	// scheduled.
	var g errgroup.Group
	if n.opts.Concurrency > 1 {
		g.SetLimit(n.opts.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for _, item := range items {
		if fatal.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}
		item := item
		g.Go(func() error {
			if err := chargeStep(ctx); err != nil {
				fatal.Store(true)
				return err
			}
			if n.opts.Limiter != nil {
				if err := n.opts.Limiter.Acquire(ctx, 1); err != nil {
					return err
				}
				defer n.opts.Limiter.Release(1)
			}

			res, err := n.opts.Body(ctx, item, s)
			if err != nil {
				if IsRecoverable(err) && n.opts.OnItemError != nil {
					collect(item, n.opts.OnItemError(ctx, item, s, err))
					return nil
				}
				fatal.Store(true)
				return fmt.Errorf("foreach %s: %w", n.name, err)
			}
			collect(item, res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		fatalErr = err
	}
	if err := ctx.Err(); err != nil && fatalErr == nil {
		fatalErr = err
	}

	mu.Lock()
	states := make([]State, len(completed))
	for i, r := range completed {
		states[i] = r.state
	}
	mu.Unlock()
	final := merge(s, states)

	if n.opts.Mode == ModeBatch && n.opts.OnItem != nil {
		for _, r := range completed {
			n.opts.OnItem(r.item, r.state)
		}
	}

	if fatalErr != nil {
		return final, fatalErr
	}
	return final, nil
}
