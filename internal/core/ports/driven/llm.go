package driven

import (
	"context"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

// Classifier maps recognised document text to a supported kind.
//
// Implementations are constrained-choice calls against a language
// model: any answer outside domain.SupportedKinds must be returned as
// domain.KindUnclassified, never as an error.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.DocumentKind, error)

	// Name identifies the backend for attempt histories.
	Name() string
}

// Extractor pulls structured dates and material lines out of document
// text for a known kind.
type Extractor interface {
	Extract(ctx context.Context, text string, kind domain.DocumentKind) (domain.ExtractedRecord, error)

	// Name identifies the backend for attempt histories.
	Name() string
}
