package cli

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

func sampleResult(root string) *domain.AuditResult {
	return &domain.AuditResult{
		RunID:      "run-123",
		Root:       root,
		StartedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 9, 0, 42, 0, time.UTC),
		Files:      3,
		Groups:     1,
		Findings: []domain.Finding{
			{
				Category:    domain.CategoryConsistency,
				Kind:        domain.FindingQuantityMismatch,
				Project:     "siteA",
				Files:       []string{"contract.pdf", "delivery.pdf"},
				Description: "delivered quantity deviates from contract",
			},
			{
				Category:    domain.CategoryProcessing,
				Kind:        domain.FindingProcessingError,
				Project:     "siteA",
				Files:       []string{"broken.pdf"},
				Description: "document could not be processed",
			},
		},
	}
}

func TestAuditCmd_NotConfigured(t *testing.T) {
	swapServices(t, nil, nil, nil)

	_, err := executeCmd(t, "audit", t.TempDir())

	assert.ErrorContains(t, err, "not configured")
}

func TestAuditCmd_RequiresRootArg(t *testing.T) {
	swapServices(t, &stubAuditor{}, nil, nil)

	_, err := executeCmd(t, "audit")

	assert.Error(t, err)
}

func TestAuditCmd_RendersReport(t *testing.T) {
	root := t.TempDir()
	auditor := &stubAuditor{result: sampleResult(root)}
	swapServices(t, auditor, nil, nil)

	out, err := executeCmd(t, "audit", root)

	assert.NoError(t, err)
	assert.Equal(t, root, auditor.lastRoot)
	assert.Contains(t, out, domain.FindingQuantityMismatch)
	assert.Contains(t, out, "could not be checked")
	assert.Contains(t, out, "Report saved to")
}

func TestAuditCmd_JSONOutput(t *testing.T) {
	root := t.TempDir()
	swapServices(t, &stubAuditor{result: sampleResult(root)}, nil, nil)

	out, err := executeCmd(t, "audit", "--json", root)
	defer func() { auditJSON = false }()

	require.NoError(t, err)
	assert.NotContains(t, out, "Report saved to")

	var decoded domain.AuditResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "run-123", decoded.RunID)
	assert.Len(t, decoded.Findings, 2)
}

func TestAuditCmd_PartialResultOnFailure(t *testing.T) {
	root := t.TempDir()
	auditor := &stubAuditor{
		result: sampleResult(root),
		err:    errors.New("iteration bound exceeded"),
	}
	swapServices(t, auditor, nil, nil)

	out, err := executeCmd(t, "audit", root)

	assert.ErrorContains(t, err, "iteration bound")
	assert.Contains(t, out, domain.FindingQuantityMismatch, "partial findings still render")
}

func TestAuditCmd_NoResultOnFailure(t *testing.T) {
	swapServices(t, &stubAuditor{err: errors.New("boom")}, nil, nil)

	_, err := executeCmd(t, "audit", t.TempDir())

	assert.ErrorContains(t, err, "audit failed")
}
