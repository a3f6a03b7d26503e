// Package domain defines the core business entities for Procaudit.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A discovered procurement document (contract, delivery note, receipt)
//   - IOCGroup: A set of documents describing one coherent material flow
//   - ExtractedRecord: Normalised dates and material lines extracted from a document
//   - Finding: A reported audit result (business issue or processing error)
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
