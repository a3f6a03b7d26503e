package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Condition gates an edge. A nil condition is unconditional.
type Condition func(State) bool

// Not inverts a condition.
func Not(c Condition) Condition {
	return func(s State) bool { return !c(s) }
}

// RetryPolicy bounds stage retries for recoverable failures.
// Delays grow exponentially from BaseDelay and are capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay returns the wait before the given retry attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Options configures graph execution.
type Options struct {
	// MaxSteps caps total node executions, including ForEach item
	// iterations in nested graphs. Zero selects DefaultMaxSteps.
	MaxSteps int

	// Retry applies to nodes that fail with a Recoverable error.
	Retry RetryPolicy

	// OnRecoverable absorbs a recoverable failure after retries are
	// exhausted, typically by appending a processing-error finding.
	// When nil, recoverable failures escalate to fatal.
	OnRecoverable func(ctx context.Context, node string, s State, err error) State

	// CancelSiblings cancels in-flight sibling branches when one
	// parallel branch fails fatally. When false siblings run to
	// completion and the fatal error propagates afterwards.
	CancelSiblings bool
}

// DefaultMaxSteps is the step budget used when Options.MaxSteps is zero.
const DefaultMaxSteps = 100000

type edge struct {
	to   string
	cond Condition
}

// Graph is a workflow: named nodes, conditional edges, one entry and
// one exit. Build it with AddNode/AddParallel/AddEdge, then Execute.
type Graph struct {
	name   string
	schema Schema
	opts   Options

	nodes map[string]Node
	edges map[string][]edge
	entry string
	exit  string
}

// New creates an empty graph over the given schema.
func New(name string, schema Schema, opts Options) *Graph {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	return &Graph{
		name:   name,
		schema: schema,
		opts:   opts,
		nodes:  make(map[string]Node),
		edges:  make(map[string][]edge),
	}
}

// Schema returns the schema the graph was built against.
func (g *Graph) Schema() Schema { return g.schema }

// AddNode registers a node. Every declared write must exist in the
// schema and node names must be unique.
func (g *Graph) AddNode(n Node) error {
	if _, dup := g.nodes[n.Name()]; dup {
		return fmt.Errorf("%w: duplicate node %q", ErrGraphInvalid, n.Name())
	}
	for _, field := range n.Writes() {
		if _, ok := g.schema[field]; !ok {
			return fmt.Errorf("%w: node %q writes undeclared field %q", ErrGraphInvalid, n.Name(), field)
		}
	}
	g.nodes[n.Name()] = n
	return nil
}

// AddParallel registers a composite node that runs the branches
// concurrently against the same upstream state and merges their writes
// per field policy. Two branches declaring a write to the same
// Overwrite field are rejected here, at construction time.
func (g *Graph) AddParallel(name string, branches ...Node) error {
	if len(branches) == 0 {
		return fmt.Errorf("%w: parallel node %q has no branches", ErrGraphInvalid, name)
	}
	writers := make(map[string]string)
	var union []string
	for _, br := range branches {
		for _, field := range br.Writes() {
			if g.schema[field] == Overwrite {
				if prev, clash := writers[field]; clash && prev != br.Name() {
					return fmt.Errorf("%w: branches %q and %q both write overwrite field %q",
						ErrGraphInvalid, prev, br.Name(), field)
				}
				writers[field] = br.Name()
			}
			union = append(union, field)
		}
	}
	return g.AddNode(&parallelNode{name: name, writes: union, branches: branches, graph: g})
}

// AddEdge connects from → to, guarded by cond (nil = unconditional).
// Edges are evaluated in insertion order; the first match is taken.
func (g *Graph) AddEdge(from, to string, cond Condition) error {
	g.edges[from] = append(g.edges[from], edge{to: to, cond: cond})
	return nil
}

// SetEntry designates the start node.
func (g *Graph) SetEntry(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("%w: entry node %q not registered", ErrGraphInvalid, name)
	}
	g.entry = name
	return nil
}

// SetExit designates the final node.
func (g *Graph) SetExit(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("%w: exit node %q not registered", ErrGraphInvalid, name)
	}
	g.exit = name
	return nil
}

// Validate checks structural integrity: entry and exit set, every edge
// endpoint registered.
func (g *Graph) Validate() error {
	if g.entry == "" {
		return fmt.Errorf("%w: no entry point", ErrGraphInvalid)
	}
	if g.exit == "" {
		return fmt.Errorf("%w: no exit point", ErrGraphInvalid)
	}
	for from, outs := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: edge from unregistered node %q", ErrGraphInvalid, from)
		}
		for _, e := range outs {
			if _, ok := g.nodes[e.to]; !ok {
				return fmt.Errorf("%w: edge to unregistered node %q", ErrGraphInvalid, e.to)
			}
		}
	}
	return nil
}

// Execute walks the graph from entry to exit. The returned state is the
// merged final state; any fatal node error aborts execution and
// propagates wrapped in a NodeError. The state returned alongside a
// fatal error carries the work completed before the failure.
func (g *Graph) Execute(ctx context.Context, initial State) (State, error) {
	if err := g.Validate(); err != nil {
		return initial, err
	}

	// Nested graphs share their parent's step budget so the bound is
	// global, not per level.
	ctx = ensureBudget(ctx, g.opts.MaxSteps)

	s := initial
	current := g.entry
	for {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		if err := chargeStep(ctx); err != nil {
			return s, fmt.Errorf("graph %s at node %s: %w", g.name, current, err)
		}

		next, err := g.runNode(ctx, g.nodes[current], s)
		if err != nil {
			return next, &NodeError{Node: current, Err: err}
		}
		s = next

		if current == g.exit {
			return s, nil
		}
		target, ok := g.route(current, s)
		if !ok {
			return s, fmt.Errorf("%w: no matching edge out of %q", ErrGraphInvalid, current)
		}
		current = target
	}
}

func (g *Graph) route(from string, s State) (string, bool) {
	for _, e := range g.edges[from] {
		if e.cond == nil || e.cond(s) {
			return e.to, true
		}
	}
	return "", false
}

// runNode executes a node with the retry/absorb discipline for
// recoverable failures. A fatal failure returns the state the node
// produced alongside it, so partial loop output is not reverted.
func (g *Graph) runNode(ctx context.Context, n Node, s State) (State, error) {
	attempts := g.opts.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		next, err := n.Run(ctx, s)
		if err == nil {
			return next, nil
		}
		if !IsRecoverable(err) {
			return next, err
		}
		lastErr = err
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return s, ctx.Err()
			case <-time.After(g.opts.Retry.Delay(attempt)):
			}
		}
	}

	if g.opts.OnRecoverable != nil {
		return g.opts.OnRecoverable(ctx, n.Name(), s, lastErr), nil
	}
	return s, lastErr
}

// parallelNode fans the incoming state out to its branches and merges
// the results per field policy in branch-completion order.
type parallelNode struct {
	name     string
	writes   []string
	branches []Node
	graph    *Graph
}

func (p *parallelNode) Name() string     { return p.name }
func (p *parallelNode) Writes() []string { return p.writes }

func (p *parallelNode) Run(ctx context.Context, s State) (State, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if p.graph.opts.CancelSiblings {
		runCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	var (
		mu        sync.Mutex
		completed []State
		errs      []error
		wg        sync.WaitGroup
	)

	for _, br := range p.branches {
		wg.Add(1)
		go func(n Node) {
			defer wg.Done()
			if err := chargeStep(runCtx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			res, err := p.graph.runNode(runCtx, n, s)
			mu.Lock()
			defer mu.Unlock()
			// Even a failed branch's state is merged: loops return
			// their partial output alongside a fatal error.
			completed = append(completed, res)
			if err != nil {
				errs = append(errs, &NodeError{Node: n.Name(), Err: err})
				if cancel != nil {
					cancel()
				}
			}
		}(br)
	}
	wg.Wait()

	final := merge(s, completed)
	if len(errs) > 0 {
		return final, errs[0]
	}
	return final, nil
}
