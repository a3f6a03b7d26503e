package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
)

// Ensure Detector implements the interface.
var _ driven.RegionDetector = (*Detector)(nil)

// Detector finds date, seal, and signature regions on document pages
// using a vision model.
type Detector struct {
	client *Client
}

// NewDetector creates a Detector over an existing client.
func NewDetector(client *Client) *Detector {
	return &Detector{client: client}
}

// Name identifies the backend for attempt histories.
func (d *Detector) Name() string {
	return "vision:" + d.client.ModelName()
}

const detectPromptFmt = `You are inspecting a scanned procurement document.
Find every %s region on each page.

Answer with a JSON array, one object per page, in page order:
[{"page": 1, "regions": [{"label": "...", "text": "...", "bbox": [x, y, w, h]}], "confidence": 0.0}]

A page with no such region gets an empty "regions" array. Omit "bbox"
when you cannot localise. Answer with the JSON only.`

var regionPhrases = map[driven.RegionKind]string{
	driven.RegionDate:      "printed or handwritten date",
	driven.RegionSeal:      "company seal or official stamp",
	driven.RegionSignature: "handwritten signature",
}

// detectionPayload mirrors the model's answer schema.
type detectionPayload struct {
	Page    int `json:"page"`
	Regions []struct {
		Label string    `json:"label"`
		Text  string    `json:"text"`
		BBox  []float64 `json:"bbox"`
	} `json:"regions"`
	Confidence float64 `json:"confidence"`
}

// Detect analyses one file and returns one Detection per page.
// Zero regions on every page is a valid result, not an error.
func (d *Detector) Detect(ctx context.Context, filePath string, kind driven.RegionKind) ([]driven.Detection, error) {
	phrase, ok := regionPhrases[kind]
	if !ok {
		return nil, fmt.Errorf("unknown region kind %q", kind)
	}

	msg, err := imageMessage(fmt.Sprintf(detectPromptFmt, phrase), filePath)
	if err != nil {
		return nil, err
	}

	answer, err := d.client.complete(ctx, []chatMessage{msg}, 2048)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", kind, err)
	}

	var payload []detectionPayload
	if err := json.Unmarshal([]byte(stripFences(answer)), &payload); err != nil {
		return nil, fmt.Errorf("detect %s: unparseable answer: %w", kind, err)
	}

	detections := make([]driven.Detection, 0, len(payload))
	for _, p := range payload {
		det := driven.Detection{Page: p.Page, Confidence: p.Confidence}
		for _, r := range p.Regions {
			det.Regions = append(det.Regions, driven.Region{
				Label: r.Label,
				Text:  r.Text,
				BBox:  r.BBox,
			})
		}
		detections = append(detections, det)
	}
	return detections, nil
}
