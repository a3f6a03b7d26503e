package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/procaudit-cli/internal/engine"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
	"github.com/custodia-labs/procaudit-cli/internal/resolver"
)

// ExtractionService runs the consistency branch: an outer loop over
// IOC groups, an inner loop over each group's documents, then the pure
// checker over the group's extracted records.
type ExtractionService struct {
	calls   *hybridCalls
	checker *Checker

	groupConcurrency int
	fileConcurrency  int
	limiter          *semaphore.Weighted

	checkpoints driven.CheckpointStore

	// ocrTextDir, when non-empty, receives one text file per document
	// with the recognised content for manual review.
	ocrTextDir string
}

// ExtractionOptions configures the consistency branch.
type ExtractionOptions struct {
	GroupConcurrency int
	FileConcurrency  int

	// Limiter is the global external-call cap shared with the normative
	// branch; the nested loops never exceed it in aggregate.
	Limiter *semaphore.Weighted

	// Checkpoints is optional; nil disables resume bookkeeping.
	Checkpoints driven.CheckpointStore

	// OCRTextDir persists recognised text per document when non-empty.
	OCRTextDir string
}

// NewExtractionService creates the consistency pipeline.
func NewExtractionService(calls *hybridCalls, checker *Checker, opts ExtractionOptions) *ExtractionService {
	return &ExtractionService{
		calls:            calls,
		checker:          checker,
		groupConcurrency: opts.GroupConcurrency,
		fileConcurrency:  opts.FileConcurrency,
		limiter:          opts.Limiter,
		checkpoints:      opts.Checkpoints,
		ocrTextDir:       opts.OCRTextDir,
	}
}

// Branch returns the group-loop node. Groups are dispatched as one
// batch to a bounded pool; results surface once all groups finish.
func (s *ExtractionService) Branch() engine.Node {
	return engine.ForEach("consistency:groups", engine.ForEachOptions{
		Mode:        engine.ModeBatch,
		Concurrency: s.groupConcurrency,
		Writes:      []string{fieldFindings, fieldRecords},
		Items:       stateGroups,
		Body:        s.processGroup,
		OnItemError: func(_ context.Context, item any, st engine.State, err error) engine.State {
			group := item.(domain.IOCGroup)
			return st.AppendTo(fieldFindings, processingFinding(group.Project, group.Directory,
				fmt.Sprintf("group could not be processed: %v", err), err))
		},
	})
}

// processGroup runs the inner document loop for one group and then the
// checker over whatever records the loop produced.
func (s *ExtractionService) processGroup(ctx context.Context, item any, st engine.State) (engine.State, error) {
	group := item.(domain.IOCGroup)

	if s.ocrTextDir != "" {
		key, err := groupOCRKey(group)
		if err != nil {
			logger.Warn("Could not derive OCR key for group %s: %v", group.ID, err)
		} else {
			group.OCRCacheKey = key
		}
	}

	forkLen := len(st.Seq(fieldRecords))

	inner := engine.ForEach("consistency:documents:"+group.ID, engine.ForEachOptions{
		Mode:        engine.ModeStreaming,
		Concurrency: s.fileConcurrency,
		Limiter:     s.limiter,
		Writes:      []string{fieldFindings, fieldRecords},
		Items: func(engine.State) ([]any, error) {
			items := make([]any, len(group.Documents))
			for i, d := range group.Documents {
				items[i] = d
			}
			return items, nil
		},
		Body: func(ctx context.Context, item any, st engine.State) (engine.State, error) {
			return s.processDocument(ctx, group, item.(domain.Document), st)
		},
		OnItemError: func(_ context.Context, item any, st engine.State, err error) engine.State {
			doc := item.(domain.Document)
			return st.AppendTo(fieldFindings, processingFinding(doc.Project, doc.Path,
				fmt.Sprintf("document could not be processed: %v", err), err))
		},
	})

	next, err := inner.Run(ctx, st)
	if err != nil {
		return st, err
	}

	// The group's own records are the suffix the inner loop appended.
	var records []domain.ExtractedRecord
	for _, v := range next.Seq(fieldRecords)[forkLen:] {
		records = append(records, v.(domain.ExtractedRecord))
	}

	findings := s.checker.Check(group, records)
	logger.Debug("Group %s: %d record(s), %d consistency finding(s)", group.ID, len(records), len(findings))
	return next.AppendTo(fieldFindings, toAny(findings)...), nil
}

// processDocument resolves OCR text, classifies, and extracts one
// document. External failures are recoverable; the loop absorbs them
// as processing findings without touching sibling documents.
func (s *ExtractionService) processDocument(ctx context.Context, group domain.IOCGroup, doc domain.Document, st engine.State) (engine.State, error) {
	if s.resumeDone(ctx, doc.Path) {
		logger.Debug("Resuming %s from warm cache", doc.Path)
	}

	ocr, err := s.calls.recognise(ctx, doc.Path)
	if err != nil {
		return st, engine.Recoverable(err)
	}
	s.persistOCRText(group, doc, ocr)

	kind, err := s.calls.classify(ctx, ocr.Text)
	if err != nil {
		return st, engine.Recoverable(err)
	}
	if kind == domain.KindUnclassified {
		return st.AppendTo(fieldFindings, domain.Finding{
			Category:    domain.CategoryNormative,
			Kind:        domain.FindingUnclassified,
			Project:     doc.Project,
			Files:       []string{doc.Path},
			Description: "document kind could not be determined, excluded from consistency checks",
		}), nil
	}

	record, err := s.calls.extract(ctx, ocr.Text, kind)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnparseable) {
			return st.AppendTo(fieldFindings, processingFinding(doc.Project, doc.Path,
				fmt.Sprintf("extraction produced unparseable data: %v", err), err)), nil
		}
		return st, engine.Recoverable(err)
	}
	record.Path = doc.Path

	s.markDone(ctx, doc.Path)
	return st.AppendTo(fieldRecords, record), nil
}

// resumeDone reports whether this document completed in an earlier run.
func (s *ExtractionService) resumeDone(ctx context.Context, path string) bool {
	if s.checkpoints == nil {
		return false
	}
	key, err := resolver.KeyForFile(path, "pipeline")
	if err != nil {
		return false
	}
	done, err := s.checkpoints.Done(ctx, key, "extract")
	return err == nil && done
}

func (s *ExtractionService) markDone(ctx context.Context, path string) {
	if s.checkpoints == nil {
		return
	}
	key, err := resolver.KeyForFile(path, "pipeline")
	if err != nil {
		return
	}
	if err := s.checkpoints.Mark(ctx, key, "extract"); err != nil {
		logger.Warn("Could not record checkpoint for %s: %v", path, err)
	}
}

// persistOCRText writes the recognised text next to the run results so
// reviewers can inspect what the checks were based on. Output is
// grouped under the group's content key so it survives directory
// renames between runs.
func (s *ExtractionService) persistOCRText(group domain.IOCGroup, doc domain.Document, ocr driven.OCRResult) {
	if s.ocrTextDir == "" {
		return
	}
	dir := filepath.Join(s.ocrTextDir, group.OCRCacheKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Warn("Could not create OCR text directory: %v", err)
		return
	}
	name := filepath.Base(doc.Path) + ".txt"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(ocr.Text), 0644); err != nil {
		logger.Warn("Could not persist OCR text for %s: %v", doc.Path, err)
	}
}

// groupOCRKey derives a content-stable identity for a group from its
// members' content hashes, in member order.
func groupOCRKey(group domain.IOCGroup) (string, error) {
	h := sha256.New()
	for _, doc := range group.Documents {
		key, err := resolver.KeyForFile(doc.Path, "ocr")
		if err != nil {
			return "", err
		}
		io.WriteString(h, key)
	}
	return hex.EncodeToString(h.Sum(nil)[:8]), nil
}

// stateGroups extracts the discovered group list from the state.
func stateGroups(st engine.State) ([]any, error) {
	v, ok := st.Get(fieldGroups)
	if !ok {
		return nil, fmt.Errorf("%w: no discovered groups in state", engine.ErrGraphInvalid)
	}
	groups := v.([]domain.IOCGroup)
	items := make([]any, len(groups))
	for i, g := range groups {
		items[i] = g
	}
	return items, nil
}

func toAny(findings []domain.Finding) []any {
	out := make([]any, len(findings))
	for i, f := range findings {
		out[i] = f
	}
	return out
}
