package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/procaudit-cli/internal/engine"
	"github.com/custodia-labs/procaudit-cli/internal/resolver"
)

// normativeCheck describes one per-document completeness branch.
type normativeCheck struct {
	name       string
	regionKind driven.RegionKind

	// missingKind is emitted when no region of the kind exists anywhere
	// in the document.
	missingKind string

	// verify inspects the non-empty detections and returns zero or one
	// finding. Nil means region presence alone satisfies the check.
	verify func(doc domain.Document, detections []driven.Detection) *domain.Finding
}

// NormativeService runs the per-document completeness checks: every
// document must carry a date, a seal, and a signature. The three checks
// are independent branches streaming over the same file set.
type NormativeService struct {
	calls       *hybridCalls
	concurrency int
	limiter     *semaphore.Weighted
}

// NewNormativeService creates the normative pipeline.
func NewNormativeService(calls *hybridCalls, concurrency int, limiter *semaphore.Weighted) *NormativeService {
	return &NormativeService{calls: calls, concurrency: concurrency, limiter: limiter}
}

// Branches returns the three streaming check branches, ready to run in
// parallel. Each branch writes only the findings sequence, so there is
// no shared mutable per-file state between them.
func (s *NormativeService) Branches() []engine.Node {
	checks := []normativeCheck{
		{
			name:        "dates",
			regionKind:  driven.RegionDate,
			missingKind: domain.FindingDateMissing,
			verify:      verifyDate,
		},
		{
			name:        "seals",
			regionKind:  driven.RegionSeal,
			missingKind: domain.FindingSealMissing,
		},
		{
			name:        "signatures",
			regionKind:  driven.RegionSignature,
			missingKind: domain.FindingSignatureMissing,
		},
	}

	nodes := make([]engine.Node, len(checks))
	for i, check := range checks {
		nodes[i] = s.branch(check)
	}
	return nodes
}

// branch builds the streaming loop for one check kind: per file,
// detect → derive → verify, surfacing each file's outcome as soon as
// it completes.
func (s *NormativeService) branch(check normativeCheck) engine.Node {
	return engine.ForEach("normative:"+check.name, engine.ForEachOptions{
		Mode:        engine.ModeStreaming,
		Concurrency: s.concurrency,
		Limiter:     s.limiter,
		Writes:      []string{fieldFindings},
		Items:       stateDocuments,
		Body: func(ctx context.Context, item any, st engine.State) (engine.State, error) {
			doc := item.(domain.Document)

			detections, err := s.calls.detect(ctx, doc.Path, check.regionKind)
			if err != nil {
				return st, engine.Recoverable(err)
			}

			if f := evaluate(check, doc, detections); f != nil {
				return st.AppendTo(fieldFindings, *f), nil
			}
			return st, nil
		},
		OnItemError: func(_ context.Context, item any, st engine.State, err error) engine.State {
			doc := item.(domain.Document)
			return st.AppendTo(fieldFindings, processingFinding(doc.Project, doc.Path,
				fmt.Sprintf("%s check failed: %v", check.name, err), err))
		},
	})
}

// evaluate applies the completeness rule: absence of any region is a
// missing finding; present regions go through the check's verifier.
func evaluate(check normativeCheck, doc domain.Document, detections []driven.Detection) *domain.Finding {
	if countRegions(detections) == 0 {
		return &domain.Finding{
			Category:    domain.CategoryNormative,
			Kind:        check.missingKind,
			Project:     doc.Project,
			Files:       []string{doc.Path},
			Pages:       detectionPages(doc.Path, detections),
			Description: fmt.Sprintf("no %s region found in %d page(s)", check.regionKind, doc.Pages),
		}
	}
	if check.verify == nil {
		return nil
	}
	return check.verify(doc, detections)
}

// verifyDate requires at least one detected date region whose text
// parses as a date. Regions exist but none parse → date_unparseable.
func verifyDate(doc domain.Document, detections []driven.Detection) *domain.Finding {
	var raw []string
	for _, det := range detections {
		for _, region := range det.Regions {
			if _, ok := domain.ParseDate(region.Text); ok {
				return nil
			}
			if region.Text != "" {
				raw = append(raw, region.Text)
			}
		}
	}
	return &domain.Finding{
		Category:    domain.CategoryNormative,
		Kind:        domain.FindingDateUnparseable,
		Project:     doc.Project,
		Files:       []string{doc.Path},
		Pages:       detectionPages(doc.Path, detections),
		Description: "date regions found but none parse as a date",
		Metadata:    map[string]any{"raw_texts": raw},
	}
}

// detectionPages records the pages the detector reported for a file,
// keyed the way Finding.Pages expects. Nil when nothing was reported.
func detectionPages(path string, detections []driven.Detection) map[string][]int {
	if len(detections) == 0 {
		return nil
	}
	pages := make(map[string][]int)
	for _, det := range detections {
		pages[path] = append(pages[path], det.Page)
	}
	return pages
}

func countRegions(detections []driven.Detection) int {
	n := 0
	for _, det := range detections {
		n += len(det.Regions)
	}
	return n
}

// processingFinding records an item the system could not check. The
// resolver's attempt history, when present in err, travels in the
// metadata so the report shows what was tried.
func processingFinding(project, path, description string, err error) domain.Finding {
	f := domain.Finding{
		Category:    domain.CategoryProcessing,
		Kind:        domain.FindingProcessingError,
		Project:     project,
		Files:       []string{path},
		Description: description,
	}
	if attempts := resolver.AttemptHistory(err); len(attempts) > 0 {
		f.Metadata = map[string]any{"attempts": attempts}
	}
	return f
}

// stateDocuments extracts the discovered document list from the state.
func stateDocuments(st engine.State) ([]any, error) {
	v, ok := st.Get(fieldFiles)
	if !ok {
		return nil, fmt.Errorf("%w: no discovered files in state", engine.ErrGraphInvalid)
	}
	docs := v.([]domain.Document)
	items := make([]any, len(docs))
	for i, d := range docs {
		items[i] = d
	}
	return items, nil
}
