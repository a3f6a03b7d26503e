package engine

import "context"

// Node is one stage of a workflow. Run receives the current state and
// returns the successor state. Writes declares every field the node may
// set; the graph validates declarations against the schema and against
// sibling branches at construction time.
type Node interface {
	Name() string
	Writes() []string
	Run(ctx context.Context, s State) (State, error)
}

// funcNode adapts a plain function into a Node.
type funcNode struct {
	name   string
	writes []string
	fn     func(ctx context.Context, s State) (State, error)
}

// Func creates a Node from a function with declared writes.
func Func(name string, writes []string, fn func(ctx context.Context, s State) (State, error)) Node {
	return &funcNode{name: name, writes: writes, fn: fn}
}

func (n *funcNode) Name() string     { return n.name }
func (n *funcNode) Writes() []string { return n.writes }

func (n *funcNode) Run(ctx context.Context, s State) (State, error) {
	return n.fn(ctx, s)
}
