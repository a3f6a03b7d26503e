package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

// datedDoc is one document's date for the ordering rule.
type datedDoc struct {
	path string
	date time.Time
}

// checkDates applies the ordering rule: signing ≤ delivery ≤ receipt.
// The pairing of deliveries to receipts is a tunable policy, not a
// fixed algorithm; the heuristics here are known to over-report on
// messy document sets, which is why the rule ships disabled.
func (c *Checker) checkDates(group domain.IOCGroup, contracts, deliveries, receipts []domain.ExtractedRecord) []domain.Finding {
	contractDates := datesOf(contracts, domain.DateSigning)
	deliveryDates := datesOf(deliveries, domain.DateDelivery)
	receiptDates := datesOf(receipts, domain.DateReceipt)

	var findings []domain.Finding

	// Contract-vs-delivery always compares at group level: one contract
	// covers every delivery.
	if f, bad := c.orderingFinding(group, "signing", earliest(contractDates), "delivery", earliest(deliveryDates)); bad {
		findings = append(findings, f)
	}

	if c.cfg.DatePairing == "reference" {
		paired := make(map[string]bool)
		for _, d := range deliveries {
			dDate, ok := d.Dates[domain.DateDelivery]
			if !ok {
				continue
			}
			for _, r := range receipts {
				rDate, ok := r.Dates[domain.DateReceipt]
				if !ok || !sharesReference(d, r) {
					continue
				}
				paired[d.Path] = true
				paired[r.Path] = true
				if f, bad := c.orderingFinding(group,
					"delivery", datedDoc{d.Path, dDate},
					"receipt", datedDoc{r.Path, rDate}); bad {
					findings = append(findings, f)
				}
			}
		}
		// Records without a shared reference fall back to the
		// group-level comparison.
		if f, bad := c.orderingFinding(group,
			"delivery", earliest(unpaired(deliveryDates, paired)),
			"receipt", earliest(unpaired(receiptDates, paired))); bad {
			findings = append(findings, f)
		}
		return findings
	}

	if f, bad := c.orderingFinding(group, "delivery", earliest(deliveryDates), "receipt", earliest(receiptDates)); bad {
		findings = append(findings, f)
	}
	return findings
}

// orderingFinding reports a violation when the earlier role's date is
// strictly after the later role's. Missing dates on either side make
// the comparison inapplicable, not a violation; absence is reported by
// the normative branch instead.
func (c *Checker) orderingFinding(group domain.IOCGroup, beforeRole string, before datedDoc, afterRole string, after datedDoc) (domain.Finding, bool) {
	if before.date.IsZero() || after.date.IsZero() {
		return domain.Finding{}, false
	}
	if !before.date.After(after.date) {
		return domain.Finding{}, false
	}
	return domain.Finding{
		Category: domain.CategoryConsistency,
		Kind:     domain.FindingDateInconsistent,
		Project:  group.Project,
		Group:    group.Directory,
		Files:    []string{before.path, after.path},
		Description: fmt.Sprintf("%s date %s is after %s date %s",
			beforeRole, before.date.Format("2006-01-02"), afterRole, after.date.Format("2006-01-02")),
		Metadata: map[string]any{
			"before_role": beforeRole,
			"before_date": before.date.Format("2006-01-02"),
			"after_role":  afterRole,
			"after_date":  after.date.Format("2006-01-02"),
		},
	}, true
}

func datesOf(records []domain.ExtractedRecord, role domain.DateRole) []datedDoc {
	var out []datedDoc
	for _, r := range records {
		if d, ok := r.Dates[role]; ok {
			out = append(out, datedDoc{path: r.Path, date: d})
		}
	}
	return out
}

func earliest(docs []datedDoc) datedDoc {
	var best datedDoc
	for _, d := range docs {
		if best.date.IsZero() || d.date.Before(best.date) {
			best = d
		}
	}
	return best
}

func unpaired(docs []datedDoc, paired map[string]bool) []datedDoc {
	var out []datedDoc
	for _, d := range docs {
		if !paired[d.path] {
			out = append(out, d)
		}
	}
	return out
}

// sharesReference reports whether two records carry a common non-empty
// material batch reference.
func sharesReference(a, b domain.ExtractedRecord) bool {
	refs := make(map[string]bool)
	for _, m := range a.Materials {
		if m.Reference != "" {
			refs[m.Reference] = true
		}
	}
	for _, m := range b.Materials {
		if m.Reference != "" && refs[m.Reference] {
			return true
		}
	}
	return false
}
