package engine

import (
	"context"
	"fmt"
	"sync"
)

// budget is the shared step counter that bounds total node and item
// executions across a graph and everything nested inside it.
type budget struct {
	mu    sync.Mutex
	used  int
	limit int
}

func (b *budget) charge() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used++
	if b.used > b.limit {
		return fmt.Errorf("%w: %d steps (limit %d)", ErrIterationBound, b.used, b.limit)
	}
	return nil
}

type budgetKey struct{}

// ensureBudget installs a step budget on the context unless one is
// already present (a nested graph reuses its parent's budget).
func ensureBudget(ctx context.Context, limit int) context.Context {
	if ctx.Value(budgetKey{}) != nil {
		return ctx
	}
	return context.WithValue(ctx, budgetKey{}, &budget{limit: limit})
}

// chargeStep consumes one step from the context's budget.
func chargeStep(ctx context.Context) error {
	b, ok := ctx.Value(budgetKey{}).(*budget)
	if !ok {
		return nil
	}
	return b.charge()
}
