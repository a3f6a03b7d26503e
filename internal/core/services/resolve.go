package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
	"github.com/custodia-labs/procaudit-cli/internal/resolver"
)

// Adapters bundles the external backends the pipelines call. OCR has a
// primary and a secondary engine; the remaining operations have a
// single vision backend and rely on the resolver for retries, rate
// limiting, and caching only.
type Adapters struct {
	OCRPrimary   driven.OCRService
	OCRSecondary driven.OCRService
	Detector     driven.RegionDetector
	Classifier   driven.Classifier
	Extractor    driven.Extractor
}

// hybridCalls routes every external operation through the resolver so
// all of them share one retry/backoff/rate-limit/cache discipline.
// Payloads cross the cache as JSON, making a cache hit indistinguishable
// from a live call to the caller.
type hybridCalls struct {
	res      *resolver.Resolver
	adapters Adapters
}

func newHybridCalls(res *resolver.Resolver, adapters Adapters) *hybridCalls {
	return &hybridCalls{res: res, adapters: adapters}
}

// recognise resolves the OCR text of a file, primary then secondary.
func (h *hybridCalls) recognise(ctx context.Context, path string) (driven.OCRResult, error) {
	key, err := resolver.KeyForFile(path, "ocr")
	if err != nil {
		return driven.OCRResult{}, err
	}

	var primary, secondary resolver.Backend
	if h.adapters.OCRPrimary != nil {
		primary = ocrBackend(h.adapters.OCRPrimary, path)
	}
	if h.adapters.OCRSecondary != nil {
		secondary = ocrBackend(h.adapters.OCRSecondary, path)
	}

	res, err := h.res.Resolve(ctx, key, primary, secondary)
	if err != nil {
		return driven.OCRResult{}, err
	}
	logger.Debug("OCR %s resolved from %s", path, res.Source)

	var out driven.OCRResult
	if err := json.Unmarshal(res.Payload, &out); err != nil {
		return driven.OCRResult{}, fmt.Errorf("%w: cached OCR payload: %v", domain.ErrDataUnparseable, err)
	}
	return out, nil
}

func ocrBackend(svc driven.OCRService, path string) resolver.Backend {
	return resolver.Backend{
		Name: svc.Name(),
		Call: func(ctx context.Context) ([]byte, error) {
			result, err := svc.Recognise(ctx, path)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		},
	}
}

// detect resolves the region detections of one file for one kind.
func (h *hybridCalls) detect(ctx context.Context, path string, kind driven.RegionKind) ([]driven.Detection, error) {
	key, err := resolver.KeyForFile(path, "detect:"+string(kind))
	if err != nil {
		return nil, err
	}

	backend := resolver.Backend{
		Name: h.adapters.Detector.Name(),
		Call: func(ctx context.Context) ([]byte, error) {
			detections, err := h.adapters.Detector.Detect(ctx, path, kind)
			if err != nil {
				return nil, err
			}
			return json.Marshal(detections)
		},
	}

	res, err := h.res.Resolve(ctx, key, backend, resolver.Backend{})
	if err != nil {
		return nil, err
	}

	var out []driven.Detection
	if err := json.Unmarshal(res.Payload, &out); err != nil {
		return nil, fmt.Errorf("%w: cached detection payload: %v", domain.ErrDataUnparseable, err)
	}
	return out, nil
}

// classify resolves the document kind for recognised text.
func (h *hybridCalls) classify(ctx context.Context, text string) (domain.DocumentKind, error) {
	key := resolver.KeyForText(text, "classify")

	backend := resolver.Backend{
		Name: h.adapters.Classifier.Name(),
		Call: func(ctx context.Context) ([]byte, error) {
			kind, err := h.adapters.Classifier.Classify(ctx, text)
			if err != nil {
				return nil, err
			}
			return []byte(kind), nil
		},
	}

	res, err := h.res.Resolve(ctx, key, backend, resolver.Backend{})
	if err != nil {
		return domain.KindUnclassified, err
	}
	return domain.ParseKind(string(res.Payload)), nil
}

// extract resolves the structured record for text of a known kind.
func (h *hybridCalls) extract(ctx context.Context, text string, kind domain.DocumentKind) (domain.ExtractedRecord, error) {
	key := resolver.KeyForText(text, "extract:"+string(kind))

	backend := resolver.Backend{
		Name: h.adapters.Extractor.Name(),
		Call: func(ctx context.Context) ([]byte, error) {
			record, err := h.adapters.Extractor.Extract(ctx, text, kind)
			if err != nil {
				return nil, err
			}
			return json.Marshal(record)
		},
	}

	res, err := h.res.Resolve(ctx, key, backend, resolver.Backend{})
	if err != nil {
		return domain.ExtractedRecord{}, err
	}

	var out domain.ExtractedRecord
	if err := json.Unmarshal(res.Payload, &out); err != nil {
		return domain.ExtractedRecord{}, fmt.Errorf("%w: cached extraction payload: %v", domain.ErrDataUnparseable, err)
	}
	return out, nil
}
