package driven

import "context"

// OCRResult is the recognised text of one document.
// Recognition must be deterministic for identical file content; the
// hybrid resolver uses content hashes as cache keys on that basis.
type OCRResult struct {
	// Text is the merged full-document text.
	Text string

	// PerPageText holds one entry per page in page order.
	PerPageText []string
}

// OCRService recognises text in a PDF or image file.
//
// Two implementations back the hybrid resolver: a remote OCR API
// (primary) and a local Tesseract engine (secondary fallback).
type OCRService interface {
	// Recognise extracts the text content of the file.
	Recognise(ctx context.Context, filePath string) (OCRResult, error)

	// Name identifies the engine for attempt histories and cache
	// bookkeeping (e.g. "paddle-api", "tesseract").
	Name() string
}
