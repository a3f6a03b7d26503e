package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procaudit-cli/internal/config"
	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/procaudit-cli/internal/resolver"
)

// ---- fakes ----

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *memCache) Put(_ context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = payload
	return nil
}

// counter tracks external calls across fakes.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// dateRegion is a detection with one parseable date region.
func dateRegion(text string) []driven.Detection {
	return []driven.Detection{{Page: 1, Regions: []driven.Region{{Label: "date", Text: text}}, Confidence: 0.9}}
}

func presentRegion(label string) []driven.Detection {
	return []driven.Detection{{Page: 1, Regions: []driven.Region{{Label: label}}, Confidence: 0.9}}
}

type fakeDetector struct {
	calls *counter
	// detect maps base filename and region kind to detections.
	detect func(base string, kind driven.RegionKind) ([]driven.Detection, error)
}

func (f *fakeDetector) Name() string { return "fake-vision" }

func (f *fakeDetector) Detect(_ context.Context, path string, kind driven.RegionKind) ([]driven.Detection, error) {
	f.calls.inc()
	return f.detect(filepath.Base(path), kind)
}

type fakeOCR struct {
	calls *counter
	// texts maps base filename to recognised text.
	texts map[string]string
	err   error
}

func (f *fakeOCR) Name() string { return "fake-ocr" }

func (f *fakeOCR) Recognise(_ context.Context, path string) (driven.OCRResult, error) {
	f.calls.inc()
	if f.err != nil {
		return driven.OCRResult{}, f.err
	}
	text := f.texts[filepath.Base(path)]
	return driven.OCRResult{Text: text, PerPageText: []string{text}}, nil
}

type fakeClassifier struct {
	calls *counter
	kinds map[string]domain.DocumentKind
}

func (f *fakeClassifier) Name() string { return "fake-classifier" }

func (f *fakeClassifier) Classify(_ context.Context, text string) (domain.DocumentKind, error) {
	f.calls.inc()
	if k, ok := f.kinds[text]; ok {
		return k, nil
	}
	return domain.KindUnclassified, nil
}

type fakeExtractor struct {
	calls   *counter
	records map[string]domain.ExtractedRecord
}

func (f *fakeExtractor) Name() string { return "fake-extractor" }

func (f *fakeExtractor) Extract(_ context.Context, text string, _ domain.DocumentKind) (domain.ExtractedRecord, error) {
	f.calls.inc()
	if r, ok := f.records[text]; ok {
		return r, nil
	}
	return domain.ExtractedRecord{}, domain.ErrDataUnparseable
}

// ---- fixture ----

// auditFixture builds a one-group tree (contract + delivery note) and
// the fakes that recognise, classify, and extract it.
type auditFixture struct {
	root     string
	calls    *counter
	cache    *memCache
	detector *fakeDetector
	ocr      *fakeOCR
	classify *fakeClassifier
	extract  *fakeExtractor
	cfg      config.Config
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()
	root := t.TempDir()
	groupDir := filepath.Join(root, "siteA", "steel")
	require.NoError(t, os.MkdirAll(groupDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(groupDir, "contract.pdf"), []byte("contract-bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(groupDir, "delivery.pdf"), []byte("delivery-bytes"), 0644))

	calls := &counter{}
	f := &auditFixture{
		root:  root,
		calls: calls,
		cache: newMemCache(),
		detector: &fakeDetector{calls: calls, detect: func(_ string, kind driven.RegionKind) ([]driven.Detection, error) {
			switch kind {
			case driven.RegionDate:
				return dateRegion("2023年4月1日"), nil
			default:
				return presentRegion(string(kind)), nil
			}
		}},
		ocr: &fakeOCR{calls: calls, texts: map[string]string{
			"contract.pdf": "contract text",
			"delivery.pdf": "delivery text",
		}},
		classify: &fakeClassifier{calls: calls, kinds: map[string]domain.DocumentKind{
			"contract text": domain.KindContract,
			"delivery text": domain.KindDeliveryNote,
		}},
		extract: &fakeExtractor{calls: calls, records: map[string]domain.ExtractedRecord{
			"contract text": {Kind: domain.KindContract, Materials: []domain.MaterialLine{
				{Name: "rebar", Quantity: 100, Unit: "kg"},
			}},
			"delivery text": {Kind: domain.KindDeliveryNote, Materials: []domain.MaterialLine{
				{Name: "rebar", Quantity: 80, Unit: "kg"},
			}},
		}},
	}

	f.cfg = config.Default()
	f.cfg.Audit.SaveOCRText = false
	return f
}

func (f *auditFixture) service() *AuditService {
	res := resolver.New(resolver.Options{
		Mode:        resolver.ModeHybrid,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}, f.cache)

	return NewAuditService(f.cfg, res, Adapters{
		OCRPrimary: f.ocr,
		Detector:   f.detector,
		Classifier: f.classify,
		Extractor:  f.extract,
	}, nil, nil)
}

func kindsOf(findings []domain.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Kind
	}
	return out
}

// ---- tests ----

func TestAudit_EndToEnd(t *testing.T) {
	f := newAuditFixture(t)
	result, err := f.service().Audit(context.Background(), f.root)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 1, result.Groups)

	// Deliveries sum to 80 kg against a 100 kg contract: one mismatch,
	// nothing else (all normative regions present and parseable).
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingQuantityMismatch, result.Findings[0].Kind)
	assert.Empty(t, result.ProcessingFindings())
}

func TestAudit_MissingRootFatal(t *testing.T) {
	f := newAuditFixture(t)
	_, err := f.service().Audit(context.Background(), filepath.Join(f.root, "nope"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAudit_MissingDateRegion(t *testing.T) {
	f := newAuditFixture(t)
	f.detector.detect = func(base string, kind driven.RegionKind) ([]driven.Detection, error) {
		if kind == driven.RegionDate && base == "delivery.pdf" {
			return []driven.Detection{{Page: 1}}, nil
		}
		if kind == driven.RegionDate {
			return dateRegion("2023-04-01"), nil
		}
		return presentRegion(string(kind)), nil
	}

	result, err := f.service().Audit(context.Background(), f.root)
	require.NoError(t, err)
	assert.Contains(t, kindsOf(result.Findings), domain.FindingDateMissing)
}

func TestAudit_UnparseableDateRegion(t *testing.T) {
	f := newAuditFixture(t)
	f.detector.detect = func(base string, kind driven.RegionKind) ([]driven.Detection, error) {
		if kind == driven.RegionDate && base == "contract.pdf" {
			return dateRegion("next spring"), nil
		}
		if kind == driven.RegionDate {
			return dateRegion("2023-04-01"), nil
		}
		return presentRegion(string(kind)), nil
	}

	result, err := f.service().Audit(context.Background(), f.root)
	require.NoError(t, err)
	assert.Contains(t, kindsOf(result.Findings), domain.FindingDateUnparseable)
}

func TestAudit_DetectorFailureIsProcessingFinding(t *testing.T) {
	f := newAuditFixture(t)
	f.detector.detect = func(base string, kind driven.RegionKind) ([]driven.Detection, error) {
		if kind == driven.RegionSeal && base == "contract.pdf" {
			return nil, errors.New("vision service down")
		}
		if kind == driven.RegionDate {
			return dateRegion("2023-04-01"), nil
		}
		return presentRegion(string(kind)), nil
	}

	result, err := f.service().Audit(context.Background(), f.root)
	require.NoError(t, err)

	processing := result.ProcessingFindings()
	require.Len(t, processing, 1)
	assert.Contains(t, processing[0].Description, "seals")

	// The finding carries the resolver's attempt history so the report
	// shows what was tried before giving up.
	attempts, ok := processing[0].Metadata["attempts"].([]resolver.Attempt)
	require.True(t, ok)
	require.Len(t, attempts, 2)
	assert.Equal(t, "fake-vision", attempts[0].Backend)
	assert.Contains(t, attempts[0].Err, "vision service down")

	// Sibling documents and branches still completed: the quantity
	// mismatch is present alongside.
	assert.Contains(t, kindsOf(result.AuditFindings()), domain.FindingQuantityMismatch)
}

func TestAudit_UnclassifiedDocumentExcludedFromChecker(t *testing.T) {
	f := newAuditFixture(t)
	delete(f.classify.kinds, "delivery text")

	result, err := f.service().Audit(context.Background(), f.root)
	require.NoError(t, err)

	kinds := kindsOf(result.Findings)
	assert.Contains(t, kinds, domain.FindingUnclassified)
	// No delivery record means the quantity rule has nothing to compare.
	assert.NotContains(t, kinds, domain.FindingQuantityMismatch)
}

func TestAudit_WarmCacheRunsWithoutExternalCalls(t *testing.T) {
	f := newAuditFixture(t)
	svc := f.service()

	first, err := svc.Audit(context.Background(), f.root)
	require.NoError(t, err)
	callsAfterFirst := f.calls.count()
	assert.Positive(t, callsAfterFirst)

	second, err := svc.Audit(context.Background(), f.root)
	require.NoError(t, err)

	// Identical findings, zero additional external calls.
	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, callsAfterFirst, f.calls.count())
}

func TestAudit_OCRFallsBackToSecondary(t *testing.T) {
	f := newAuditFixture(t)
	secondaryCalls := &counter{}
	secondary := &fakeOCR{calls: secondaryCalls, texts: f.ocr.texts}
	f.ocr.err = errors.New("remote OCR down")

	res := resolver.New(resolver.Options{
		Mode:        resolver.ModeHybrid,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}, f.cache)
	svc := NewAuditService(f.cfg, res, Adapters{
		OCRPrimary:   f.ocr,
		OCRSecondary: secondary,
		Detector:     f.detector,
		Classifier:   f.classify,
		Extractor:    f.extract,
	}, nil, nil)

	result, err := svc.Audit(context.Background(), f.root)
	require.NoError(t, err)
	assert.Positive(t, secondaryCalls.count())
	assert.Contains(t, kindsOf(result.Findings), domain.FindingQuantityMismatch)
}

func TestAudit_SavesOCRText(t *testing.T) {
	f := newAuditFixture(t)
	f.cfg.Audit.SaveOCRText = true

	result, err := f.service().Audit(context.Background(), f.root)
	require.NoError(t, err)

	// Output lands under a per-group content key, one file per member.
	ocrDir := filepath.Join(ResultDir("", f.root), result.RunID, "ocr")
	matches, err := filepath.Glob(filepath.Join(ocrDir, "*", "contract.pdf.txt"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "contract text", string(data))

	groupDir := filepath.Dir(matches[0])
	assert.NotEqual(t, ocrDir, groupDir)
	data, err = os.ReadFile(filepath.Join(groupDir, "delivery.pdf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "delivery text", string(data))
}

func TestAudit_StepBudgetExceeded(t *testing.T) {
	f := newAuditFixture(t)
	f.cfg.Audit.MaxSteps = 2

	result, err := f.service().Audit(context.Background(), f.root)
	assert.Error(t, err)
	// Work done before the budget ran out is still reported.
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Files)
}

type recordingRuns struct {
	mu    sync.Mutex
	saved []*domain.AuditResult
}

func (r *recordingRuns) SaveRun(_ context.Context, result *domain.AuditResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, result)
	return nil
}

func TestAudit_RecordsRunHistory(t *testing.T) {
	f := newAuditFixture(t)
	runs := &recordingRuns{}

	res := resolver.New(resolver.Options{Mode: resolver.ModeHybrid, MaxAttempts: 1, BaseDelay: time.Millisecond}, f.cache)
	svc := NewAuditService(f.cfg, res, Adapters{
		OCRPrimary: f.ocr,
		Detector:   f.detector,
		Classifier: f.classify,
		Extractor:  f.extract,
	}, nil, runs)

	result, err := svc.Audit(context.Background(), f.root)
	require.NoError(t, err)
	require.Len(t, runs.saved, 1)
	assert.Equal(t, result.RunID, runs.saved[0].RunID)
}
