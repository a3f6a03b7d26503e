package domain

// DocumentKind classifies a procurement document by its business role.
type DocumentKind string

const (
	// KindUnclassified means the document has not been classified yet,
	// or the classifier could not map it to a supported kind.
	KindUnclassified DocumentKind = "unclassified"

	// KindContract is a purchase contract.
	KindContract DocumentKind = "contract"

	// KindDeliveryNote is a supplier delivery note.
	KindDeliveryNote DocumentKind = "delivery_note"

	// KindReceipt is a purchase receipt (goods-received note).
	KindReceipt DocumentKind = "receipt"
)

// SupportedKinds lists the kinds the classifier is allowed to answer with.
// Anything outside this set maps to KindUnclassified.
var SupportedKinds = []DocumentKind{KindContract, KindDeliveryNote, KindReceipt}

// ParseKind maps a classifier answer to a DocumentKind.
// Unknown answers yield KindUnclassified, never an error.
func ParseKind(s string) DocumentKind {
	switch DocumentKind(s) {
	case KindContract, KindDeliveryNote, KindReceipt:
		return DocumentKind(s)
	default:
		return KindUnclassified
	}
}

// Document represents one discovered procurement document.
// Documents are created once during discovery and their identity
// (Path, Project, Pages) is immutable afterwards. Kind is assigned
// exactly once by classification.
type Document struct {
	// Path is the absolute filesystem path.
	Path string

	// Project is the top-level directory under the audit root.
	Project string

	// Kind is the business role assigned by classification.
	Kind DocumentKind

	// Pages is the page count (1 for single images).
	Pages int
}
