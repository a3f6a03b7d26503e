// Package report renders audit results for humans and machines. The
// terminal rendering separates audit findings from processing errors
// so "flagged as non-compliant" is never read as "could not be
// checked", and the JSON form is the stable interchange format.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

// Render produces the terminal report for one run.
func Render(result *domain.AuditResult) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Procurement audit report"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("run %s · root %s · %d file(s), %d group(s), took %s",
		result.RunID, result.Root, result.Files, result.Groups,
		result.FinishedAt.Sub(result.StartedAt).Round(100*time.Millisecond))))
	b.WriteString("\n\n")

	audit := result.AuditFindings()
	processing := result.ProcessingFindings()

	b.WriteString(renderSummary(audit, processing))
	b.WriteString("\n")

	if len(audit) == 0 && len(processing) == 0 {
		b.WriteString(okStyle.Render("No findings."))
		b.WriteString("\n")
		return b.String()
	}

	if len(audit) > 0 {
		b.WriteString(sectionStyle.Render("Audit findings"))
		b.WriteString("\n\n")
		renderFindings(&b, audit)
	}
	if len(processing) > 0 {
		b.WriteString(sectionStyle.Render("Processing errors (items that could not be checked)"))
		b.WriteString("\n\n")
		renderFindings(&b, processing)
	}
	return b.String()
}

// renderSummary prints per-kind counts, audit findings first.
func renderSummary(audit, processing []domain.Finding) string {
	counts := make(map[string]int)
	for _, f := range audit {
		counts[f.Kind]++
	}

	var b strings.Builder
	if len(audit) == 0 {
		b.WriteString(okStyle.Render("0 audit findings"))
	} else {
		b.WriteString(kindStyle.Render(fmt.Sprintf("%d audit finding(s)", len(audit))))
		kinds := make([]string, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ·  %s %d", k, counts[k])))
		}
	}
	if len(processing) > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  ·  %d item(s) could not be checked", len(processing))))
	}
	b.WriteString("\n")
	return b.String()
}

// renderFindings lists findings in aggregation order, never reordered.
func renderFindings(b *strings.Builder, findings []domain.Finding) {
	for i, f := range findings {
		b.WriteString(fmt.Sprintf("  [%d] %s", i+1, kindStyle.Render(f.Kind)))
		if f.Project != "" {
			b.WriteString(dimStyle.Render(" · " + f.Project))
		}
		b.WriteString("\n")
		b.WriteString("      " + f.Description + "\n")
		for _, file := range f.Files {
			b.WriteString("      " + fileStyle.Render(file) + "\n")
		}
		b.WriteString("\n")
	}
}

// WriteJSON persists the machine-readable report under the run's
// result directory and returns the file path.
func WriteJSON(result *domain.AuditResult, resultDir string) (string, error) {
	dir := filepath.Join(resultDir, result.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating result directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling report: %w", err)
	}

	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
