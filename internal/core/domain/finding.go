package domain

// FindingCategory is the high-level classification of a finding.
type FindingCategory string

const (
	// CategoryNormative marks per-document completeness findings.
	CategoryNormative FindingCategory = "normative"

	// CategoryConsistency marks cross-document agreement findings.
	CategoryConsistency FindingCategory = "consistency"

	// CategoryProcessing marks findings where the system could not
	// determine an answer for an item. These are reported separately so
	// "could not be checked" is never confused with "non-compliant".
	CategoryProcessing FindingCategory = "processing_error"
)

// Finding kinds emitted by the pipelines and the checker.
const (
	FindingDateMissing      = "date_missing"
	FindingDateUnparseable  = "date_unparseable"
	FindingSealMissing      = "seal_missing"
	FindingSignatureMissing = "signature_missing"

	FindingQuantityMismatch   = "quantity_mismatch"
	FindingUnexpectedMaterial = "unexpected_material"
	FindingUnitUnresolved     = "unit_unresolved"
	FindingDateInconsistent   = "date_inconsistent"

	FindingUnclassified    = "unclassified_document"
	FindingProcessingError = "processing_error"
)

// Finding is one reported audit result. Findings are append-only: they
// are created by leaf verification and checking stages, collected
// upwards through the engine's append merge policy, and never edited
// or removed for the life of the run.
type Finding struct {
	// Category is the high-level classification.
	Category FindingCategory `json:"category"`

	// Kind is the specific finding type (e.g. quantity_mismatch).
	Kind string `json:"kind"`

	// Project is the project the finding belongs to, when known.
	Project string `json:"project,omitempty"`

	// Files lists the contributing document paths.
	Files []string `json:"files,omitempty"`

	// Group is the IOC group directory, for consistency findings.
	Group string `json:"group,omitempty"`

	// Pages maps file path to the page numbers involved.
	Pages map[string][]int `json:"pages,omitempty"`

	// Description is the human-readable explanation.
	Description string `json:"description"`

	// Metadata carries extra structured detail (expected/observed
	// quantities, attempt histories, rule identifiers).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsProcessing reports whether the finding is a processing error rather
// than a business-meaningful audit result.
func (f *Finding) IsProcessing() bool {
	return f.Category == CategoryProcessing
}
