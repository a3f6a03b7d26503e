package domain

import "time"

// DateRole identifies the business meaning of a date on a document.
type DateRole string

const (
	// DateSigning is the contract signing date.
	DateSigning DateRole = "signing"

	// DateDelivery is the delivery note date.
	DateDelivery DateRole = "delivery"

	// DateReceipt is the goods-received date.
	DateReceipt DateRole = "receipt"
)

// MaterialLine is one material row extracted from a document.
type MaterialLine struct {
	// Name is the material name as extracted.
	Name string

	// Spec is the specification / model designation, possibly empty.
	Spec string

	// Quantity is the extracted quantity.
	Quantity float64

	// Unit is the extracted unit symbol (e.g. "kg", "t", "pcs").
	Unit string

	// Reference is an optional batch or order reference used for
	// pairing delivery and receipt rows. Often empty.
	Reference string
}

// ExtractedRecord is the normalised payload extracted from one document.
// It is produced once by the extraction pipeline and only ever read by
// the consistency checker afterwards.
type ExtractedRecord struct {
	// Path is the source document path.
	Path string

	// Kind is the document kind the extraction was performed for.
	Kind DocumentKind

	// Dates maps each recognised role to the parsed date.
	Dates map[DateRole]time.Time

	// Materials lists the extracted material rows in document order.
	Materials []MaterialLine
}
