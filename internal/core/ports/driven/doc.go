// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RegionDetector: Finds date/seal/signature regions on a page
//   - OCRService: Recognises document text (primary and secondary engines)
//   - Classifier: Maps OCR text to a supported document kind
//   - Extractor: Pulls structured dates and material lines out of OCR text
//   - CallCache: Content-keyed persistence of resolved external calls
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - CheckpointStore: (item, stage) completion tracking for resumed runs
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
