package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor pulls structured dates and material lines out of document
// text for a known kind.
type Extractor struct {
	client *Client
}

// NewExtractor creates an Extractor over an existing client.
func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

// Name identifies the backend for attempt histories.
func (e *Extractor) Name() string {
	return "extractor:" + e.client.ModelName()
}

const extractPromptFmt = `Extract structured data from this %s.

Answer with JSON only:
{
  "dates": {"%s": "<date string exactly as written, or omit>"},
  "materials": [
    {"name": "...", "spec": "...", "quantity": 0.0, "unit": "...", "reference": "..."}
  ]
}

Copy dates verbatim, do not reformat them. Quantities are numbers.
Leave "spec" and "reference" empty when absent.

Document text:
%s`

// dateRoleFor maps a document kind to the date role it carries.
var dateRoleFor = map[domain.DocumentKind]domain.DateRole{
	domain.KindContract:     domain.DateSigning,
	domain.KindDeliveryNote: domain.DateDelivery,
	domain.KindReceipt:      domain.DateReceipt,
}

// extractPayload mirrors the model's answer schema.
type extractPayload struct {
	Dates     map[string]string `json:"dates"`
	Materials []struct {
		Name      string  `json:"name"`
		Spec      string  `json:"spec"`
		Quantity  float64 `json:"quantity"`
		Unit      string  `json:"unit"`
		Reference string  `json:"reference"`
	} `json:"materials"`
}

// Extract returns the structured record for text of a known kind.
// Dates the model returns but the parser cannot read are dropped here;
// the pipeline reports them from the raw detections instead.
func (e *Extractor) Extract(ctx context.Context, text string, kind domain.DocumentKind) (domain.ExtractedRecord, error) {
	role, ok := dateRoleFor[kind]
	if !ok {
		return domain.ExtractedRecord{}, fmt.Errorf("%w: cannot extract from kind %q", domain.ErrUnsupportedKind, kind)
	}

	msg := chatMessage{
		Role:    "user",
		Content: fmt.Sprintf(extractPromptFmt, kind, role, text),
	}
	answer, err := e.client.complete(ctx, []chatMessage{msg}, 4096)
	if err != nil {
		return domain.ExtractedRecord{}, fmt.Errorf("extract: %w", err)
	}

	var payload extractPayload
	if err := json.Unmarshal([]byte(stripFences(answer)), &payload); err != nil {
		return domain.ExtractedRecord{}, fmt.Errorf("%w: extract answer: %v", domain.ErrDataUnparseable, err)
	}

	record := domain.ExtractedRecord{
		Kind:  kind,
		Dates: map[domain.DateRole]time.Time{},
	}
	for roleName, raw := range payload.Dates {
		parsed, ok := domain.ParseDate(raw)
		if !ok {
			continue
		}
		record.Dates[domain.DateRole(roleName)] = parsed
	}
	for _, m := range payload.Materials {
		record.Materials = append(record.Materials, domain.MaterialLine{
			Name:      m.Name,
			Spec:      m.Spec,
			Quantity:  m.Quantity,
			Unit:      m.Unit,
			Reference: m.Reference,
		})
	}
	return record, nil
}
