package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/custodia-labs/procaudit-cli/internal/config"
	"github.com/custodia-labs/procaudit-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/procaudit-cli/internal/engine"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
	"github.com/custodia-labs/procaudit-cli/internal/resolver"
)

// State fields shared by the audit graph and its nested loops.
const (
	fieldRoot     = "root"
	fieldFiles    = "files"
	fieldGroups   = "groups"
	fieldFindings = "findings"
	fieldRecords  = "records"
)

// auditSchema declares the merge policy per field. Findings and records
// are append-only; discovery output is written exactly once.
var auditSchema = engine.Schema{
	fieldRoot:     engine.FirstWins,
	fieldFiles:    engine.Overwrite,
	fieldGroups:   engine.Overwrite,
	fieldFindings: engine.Append,
	fieldRecords:  engine.Append,
}

// RunRecorder persists finished runs. Optional; nil disables history.
type RunRecorder interface {
	SaveRun(ctx context.Context, result *domain.AuditResult) error
}

// AuditService is the run orchestrator: it wires discovery, the
// normative branch, and the consistency branch into one graph and
// executes it.
type AuditService struct {
	cfg     config.Config
	scanner *filesystem.Scanner
	calls   *hybridCalls

	checkpoints driven.CheckpointStore
	runs        RunRecorder

	// resultDir overrides the per-root default output location.
	resultDir string
}

var _ driving.Auditor = (*AuditService)(nil)

// NewAuditService assembles the audit pipeline from its parts.
func NewAuditService(cfg config.Config, res *resolver.Resolver, adapters Adapters, checkpoints driven.CheckpointStore, runs RunRecorder) *AuditService {
	return &AuditService{
		cfg:         cfg,
		scanner:     filesystem.NewScanner(),
		calls:       newHybridCalls(res, adapters),
		checkpoints: checkpoints,
		runs:        runs,
		resultDir:   cfg.Audit.ResultDir,
	}
}

// Audit runs the full pipeline over one directory tree. A fatal error
// still returns the findings collected up to the failure point.
func (s *AuditService) Audit(ctx context.Context, root string) (*domain.AuditResult, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()
	logger.Section("Audit " + root)

	graph, err := s.buildGraph(runID, root)
	if err != nil {
		return nil, err
	}

	initial := engine.NewState(auditSchema).Set(fieldRoot, root)
	final, execErr := graph.Execute(ctx, initial)

	result := &domain.AuditResult{
		RunID:      runID,
		Root:       root,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Findings:   stateFindings(final),
	}
	if v, ok := final.Get(fieldFiles); ok {
		result.Files = len(v.([]domain.Document))
	}
	if v, ok := final.Get(fieldGroups); ok {
		result.Groups = len(v.([]domain.IOCGroup))
	}

	if s.runs != nil {
		if err := s.runs.SaveRun(context.WithoutCancel(ctx), result); err != nil {
			logger.Warn("Could not save run %s: %v", runID, err)
		}
	}

	if execErr != nil {
		return result, fmt.Errorf("audit %s: %w", root, execErr)
	}
	logger.Info("Audit finished: %d finding(s) over %d file(s) in %d group(s)",
		len(result.Findings), result.Files, result.Groups)
	return result, nil
}

// buildGraph assembles discover → parallel checks → aggregate. The
// parallel stage carries the three normative branches and the group
// loop side by side; all of them only append, so the merge is safe by
// construction.
func (s *AuditService) buildGraph(runID, root string) (*engine.Graph, error) {
	limiter := semaphore.NewWeighted(int64(max(1, s.cfg.Audit.MaxExternalCalls)))

	normative := NewNormativeService(s.calls, s.cfg.Audit.MaxConcurrentFiles, limiter)

	checker := NewChecker(CheckerConfig{
		TolerancePct: s.cfg.Checker.TolerancePct,
		DateRule:     s.cfg.Checker.DateRule,
		DatePairing:  s.cfg.Checker.DatePairing,
	})
	extraction := NewExtractionService(s.calls, checker, ExtractionOptions{
		GroupConcurrency: s.cfg.Audit.MaxConcurrentFiles,
		FileConcurrency:  s.cfg.Audit.MaxConcurrentFiles,
		Limiter:          limiter,
		Checkpoints:      s.checkpoints,
		OCRTextDir:       s.ocrTextDir(runID, root),
	})

	graph := engine.New("audit", auditSchema, engine.Options{
		MaxSteps: s.cfg.Audit.MaxSteps,
	})

	discover := engine.Func("discover", []string{fieldFiles, fieldGroups}, func(_ context.Context, st engine.State) (engine.State, error) {
		discovery, err := s.scanner.Discover(root)
		if err != nil {
			return st, err
		}
		return st.Set(fieldFiles, discovery.Files).Set(fieldGroups, discovery.Groups), nil
	})
	if err := graph.AddNode(discover); err != nil {
		return nil, err
	}

	branches := append(normative.Branches(), extraction.Branch())
	if err := graph.AddParallel("checks", branches...); err != nil {
		return nil, err
	}

	aggregate := engine.Func("aggregate", nil, func(_ context.Context, st engine.State) (engine.State, error) {
		return st, nil
	})
	if err := graph.AddNode(aggregate); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("discover", "checks", nil); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("checks", "aggregate", nil); err != nil {
		return nil, err
	}
	if err := graph.SetEntry("discover"); err != nil {
		return nil, err
	}
	if err := graph.SetExit("aggregate"); err != nil {
		return nil, err
	}
	return graph, nil
}

// ocrTextDir picks the per-run OCR text location under the result dir.
func (s *AuditService) ocrTextDir(runID, root string) string {
	if !s.cfg.Audit.SaveOCRText {
		return ""
	}
	return filepath.Join(ResultDir(s.resultDir, root), runID, "ocr")
}

// ResultDir resolves the run output directory: the configured override
// when set, else <root>/.procaudit/results.
func ResultDir(configured, root string) string {
	if configured != "" {
		return configured
	}
	return filepath.Join(root, ".procaudit", "results")
}

// stateFindings extracts the typed findings sequence from the state,
// preserving aggregation order.
func stateFindings(st engine.State) []domain.Finding {
	seq := st.Seq(fieldFindings)
	out := make([]domain.Finding, 0, len(seq))
	for _, v := range seq {
		out = append(out, v.(domain.Finding))
	}
	return out
}
