package domain

import "time"

// AuditResult is the outcome of one audit run.
type AuditResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Root is the audited directory.
	Root string `json:"root"`

	// StartedAt / FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Files and Groups count the discovered inputs.
	Files  int `json:"files"`
	Groups int `json:"groups"`

	// Findings lists every finding in aggregation order: stable within
	// a branch, branch-completion ordered across branches.
	Findings []Finding `json:"findings"`
}

// AuditFindings returns the business-meaningful findings.
func (r *AuditResult) AuditFindings() []Finding {
	return r.filter(false)
}

// ProcessingFindings returns the findings where an item could not be
// checked at all.
func (r *AuditResult) ProcessingFindings() []Finding {
	return r.filter(true)
}

func (r *AuditResult) filter(processing bool) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.IsProcessing() == processing {
			out = append(out, f)
		}
	}
	return out
}
