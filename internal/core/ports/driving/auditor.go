package driving

import (
	"context"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

// Auditor runs a full audit over a document tree.
type Auditor interface {
	// Audit discovers, checks, and aggregates findings for every
	// supported document under root. A fatal failure returns a non-nil
	// error together with whatever partial result was collected.
	Audit(ctx context.Context, root string) (*domain.AuditResult, error)
}
