package services

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

// CheckerConfig tunes the consistency rules.
type CheckerConfig struct {
	// TolerancePct is the relative tolerance for the quantity rule, in
	// percent of the contract quantity.
	TolerancePct float64

	// DateRule toggles the date-ordering rule independently of the
	// quantity rule.
	DateRule bool

	// DatePairing selects how delivery and receipt dates are paired for
	// the date rule: "earliest" compares the earliest date per kind at
	// group level, "reference" pairs records sharing a material batch
	// reference and falls back to earliest for unpaired records.
	DatePairing string
}

// Checker verifies cross-document agreement within one IOC group. It
// performs no I/O and is a pure function of its inputs, so every rule
// is directly unit-testable.
type Checker struct {
	cfg CheckerConfig
}

// NewChecker creates a Checker.
func NewChecker(cfg CheckerConfig) *Checker {
	return &Checker{cfg: cfg}
}

// sideTotal accumulates one side (deliveries or receipts) of the
// comparison for a single material.
type sideTotal struct {
	quantity float64
	family   domain.UnitFamily
	files    []string

	// unresolved holds the raw unit symbols that could not be converted.
	unresolved []string
}

func (t *sideTotal) addFile(path string) {
	for _, f := range t.files {
		if f == path {
			return
		}
	}
	t.files = append(t.files, path)
}

// Check runs every enabled rule over the group's extracted records and
// returns the findings in deterministic order: per contract material
// (sorted), then unexpected materials (sorted), then date findings.
func (c *Checker) Check(group domain.IOCGroup, records []domain.ExtractedRecord) []domain.Finding {
	var contracts, deliveries, receipts []domain.ExtractedRecord
	for _, r := range records {
		switch r.Kind {
		case domain.KindContract:
			contracts = append(contracts, r)
		case domain.KindDeliveryNote:
			deliveries = append(deliveries, r)
		case domain.KindReceipt:
			receipts = append(receipts, r)
		}
	}

	var findings []domain.Finding

	contractTotals := c.aggregate(contracts)
	deliveryTotals := c.aggregate(deliveries)
	receiptTotals := c.aggregate(receipts)

	for _, key := range sortedKeys(contractTotals) {
		contract := contractTotals[key]

		if len(contract.unresolved) > 0 {
			findings = append(findings, c.unitFinding(group, key, contract))
			continue
		}

		findings = append(findings, c.compareSide(group, key, contract, deliveryTotals[key], "deliveries")...)
		findings = append(findings, c.compareSide(group, key, contract, receiptTotals[key], "receipts")...)
	}

	findings = append(findings, c.unexpectedMaterials(group, contractTotals, deliveryTotals, receiptTotals)...)

	if c.cfg.DateRule {
		findings = append(findings, c.checkDates(group, contracts, deliveries, receipts)...)
	}

	return findings
}

// aggregate sums each material's quantity in the canonical unit of its
// family. Lines whose unit is unknown are tallied as unresolved instead
// of being silently skipped.
func (c *Checker) aggregate(records []domain.ExtractedRecord) map[domain.MaterialKey]*sideTotal {
	totals := make(map[domain.MaterialKey]*sideTotal)
	for _, r := range records {
		for _, line := range r.Materials {
			key := domain.NormaliseMaterial(line.Name, line.Spec)
			t, ok := totals[key]
			if !ok {
				t = &sideTotal{}
				totals[key] = t
			}
			t.addFile(r.Path)

			canonical, family, resolved := domain.ConvertQuantity(line.Quantity, line.Unit)
			if !resolved || (t.family != "" && t.family != family) {
				t.unresolved = append(t.unresolved, line.Unit)
				continue
			}
			t.family = family
			t.quantity += canonical
		}
	}
	return totals
}

// compareSide applies the quantity rule for one side of the comparison.
// A side with no lines for the material produces no finding; a side
// with unresolved units produces a unit_unresolved finding and skips
// the quantity comparison entirely.
func (c *Checker) compareSide(group domain.IOCGroup, key domain.MaterialKey, contract, side *sideTotal, sideName string) []domain.Finding {
	if side == nil {
		return nil
	}
	if len(side.unresolved) > 0 || side.family != contract.family {
		return []domain.Finding{c.unitFinding(group, key, side)}
	}

	expected := contract.quantity
	observed := side.quantity
	if withinTolerance(expected, observed, c.cfg.TolerancePct) {
		return nil
	}

	unit := domain.CanonicalUnit[contract.family]
	files := append(append([]string{}, contract.files...), side.files...)
	return []domain.Finding{{
		Category: domain.CategoryConsistency,
		Kind:     domain.FindingQuantityMismatch,
		Project:  group.Project,
		Group:    group.Directory,
		Files:    files,
		Description: fmt.Sprintf("%s: %s total %.3f %s deviates from contract quantity %.3f %s beyond %.1f%% tolerance",
			key.Display(), sideName, observed, unit, expected, unit, c.cfg.TolerancePct),
		Metadata: map[string]any{
			"material":      key.Display(),
			"side":          sideName,
			"expected":      expected,
			"observed":      observed,
			"unit":          unit,
			"tolerance_pct": c.cfg.TolerancePct,
		},
	}}
}

func (c *Checker) unitFinding(group domain.IOCGroup, key domain.MaterialKey, t *sideTotal) domain.Finding {
	units := t.unresolved
	if len(units) == 0 && t.family != "" {
		// Family clash with the contract side, units individually known.
		units = []string{string(t.family)}
	}
	return domain.Finding{
		Category: domain.CategoryConsistency,
		Kind:     domain.FindingUnitUnresolved,
		Project:  group.Project,
		Group:    group.Directory,
		Files:    t.files,
		Description: fmt.Sprintf("%s: quantities cannot be compared, unconvertible unit(s): %s",
			key.Display(), strings.Join(units, ", ")),
		Metadata: map[string]any{
			"material": key.Display(),
			"units":    units,
		},
	}
}

// unexpectedMaterials reports materials appearing in deliveries or
// receipts but absent from the contract, one finding per material.
func (c *Checker) unexpectedMaterials(group domain.IOCGroup, contract, deliveries, receipts map[domain.MaterialKey]*sideTotal) []domain.Finding {
	seen := make(map[domain.MaterialKey]*sideTotal)
	for key, t := range deliveries {
		if _, inContract := contract[key]; !inContract {
			merged := &sideTotal{}
			for _, f := range t.files {
				merged.addFile(f)
			}
			seen[key] = merged
		}
	}
	for key, t := range receipts {
		if _, inContract := contract[key]; !inContract {
			merged, ok := seen[key]
			if !ok {
				merged = &sideTotal{}
				seen[key] = merged
			}
			for _, f := range t.files {
				merged.addFile(f)
			}
		}
	}

	var findings []domain.Finding
	for _, key := range sortedKeys(seen) {
		t := seen[key]
		findings = append(findings, domain.Finding{
			Category: domain.CategoryConsistency,
			Kind:     domain.FindingUnexpectedMaterial,
			Project:  group.Project,
			Group:    group.Directory,
			Files:    t.files,
			Description: fmt.Sprintf("%s appears in deliveries/receipts but not in the contract",
				key.Display()),
			Metadata: map[string]any{"material": key.Display()},
		})
	}
	return findings
}

func withinTolerance(expected, observed, tolerancePct float64) bool {
	if expected == 0 {
		return observed == 0
	}
	return math.Abs(observed-expected) <= math.Abs(expected)*tolerancePct/100
}

func sortedKeys(m map[domain.MaterialKey]*sideTotal) []domain.MaterialKey {
	keys := make([]domain.MaterialKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Spec < keys[j].Spec
	})
	return keys
}
