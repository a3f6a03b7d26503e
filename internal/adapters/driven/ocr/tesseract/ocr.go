// Package tesseract provides the local OCR fallback using the
// Tesseract engine via gosseract. It handles image files only; PDF
// recognition stays with the remote backend.
package tesseract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.OCRService = (*Service)(nil)

// Service recognises image text with a local Tesseract installation.
type Service struct {
	languages []string
}

// NewService creates the local OCR fallback. languages are Tesseract
// language codes; empty defaults to English plus simplified Chinese.
func NewService(languages []string) *Service {
	if len(languages) == 0 {
		languages = []string{"eng", "chi_sim"}
	}
	return &Service{languages: languages}
}

// Name identifies the engine for attempt histories.
func (s *Service) Name() string {
	return "tesseract"
}

// Recognise extracts the text content of an image file. PDFs are
// rejected up front so the resolver records a clean failure instead of
// a confusing engine error.
func (s *Service) Recognise(ctx context.Context, filePath string) (driven.OCRResult, error) {
	if strings.ToLower(filepath.Ext(filePath)) == ".pdf" {
		return driven.OCRResult{}, fmt.Errorf("%w: tesseract cannot read PDFs, only images", domain.ErrUnsupportedKind)
	}
	if err := ctx.Err(); err != nil {
		return driven.OCRResult{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(s.languages...); err != nil {
		return driven.OCRResult{}, fmt.Errorf("tesseract languages: %w", err)
	}
	if err := client.SetImage(filePath); err != nil {
		return driven.OCRResult{}, fmt.Errorf("tesseract image %s: %w", filePath, err)
	}

	text, err := client.Text()
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("tesseract recognise %s: %w", filePath, err)
	}

	text = strings.TrimSpace(text)
	return driven.OCRResult{Text: text, PerPageText: []string{text}}, nil
}
