package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Classifier maps recognised document text to a supported kind using a
// constrained-choice prompt.
type Classifier struct {
	client *Client
}

// NewClassifier creates a Classifier over an existing client.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Name identifies the backend for attempt histories.
func (c *Classifier) Name() string {
	return "classifier:" + c.client.ModelName()
}

const classifyPromptFmt = `Classify this procurement document by its text.

Answer with exactly one word from this list:
contract, delivery_note, receipt, unclassified

Document text:
%s`

// classifyTextLimit truncates very long documents; the opening pages
// carry the classification signal.
const classifyTextLimit = 8000

// Classify returns the document kind. Any answer outside the supported
// set maps to KindUnclassified, never an error.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.DocumentKind, error) {
	if len(text) > classifyTextLimit {
		text = text[:classifyTextLimit]
	}

	msg := chatMessage{Role: "user", Content: fmt.Sprintf(classifyPromptFmt, text)}
	answer, err := c.client.complete(ctx, []chatMessage{msg}, 16)
	if err != nil {
		return domain.KindUnclassified, fmt.Errorf("classify: %w", err)
	}

	return domain.ParseKind(strings.ToLower(strings.TrimSpace(answer))), nil
}
