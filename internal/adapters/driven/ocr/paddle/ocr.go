// Package paddle provides the remote OCR adapter. It speaks the JSON
// protocol of a PaddleOCR-style HTTP service and acts as the primary
// recognition backend.
package paddle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.OCRService = (*Service)(nil)

// DefaultTimeout bounds one recognition request.
const DefaultTimeout = 120 * time.Second

// Config holds configuration for the remote OCR service.
type Config struct {
	// APIURL is the recognition endpoint (required).
	APIURL string

	// APIToken authenticates requests, empty for open deployments.
	APIToken string

	// Languages hints the recognisers to load (e.g. "eng", "chi_sim").
	Languages []string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Service recognises document text via the remote OCR API.
type Service struct {
	client    *http.Client
	apiURL    string
	apiToken  string
	languages []string
}

// recogniseRequest is the request format: the file as base64 plus
// language hints.
type recogniseRequest struct {
	File      string   `json:"file"`
	FileType  string   `json:"file_type"`
	Languages []string `json:"languages,omitempty"`
}

// recogniseResponse is the response format: per-page text in page order.
type recogniseResponse struct {
	Pages []struct {
		Text string `json:"text"`
	} `json:"pages"`
	Error string `json:"error,omitempty"`
}

// NewService creates the remote OCR service.
func NewService(cfg Config) (*Service, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("paddle: API URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Service{
		client:    &http.Client{Timeout: cfg.Timeout},
		apiURL:    cfg.APIURL,
		apiToken:  cfg.APIToken,
		languages: cfg.Languages,
	}, nil
}

// Name identifies the engine for attempt histories.
func (s *Service) Name() string {
	return "paddle-api"
}

// Recognise extracts the text content of the file.
func (s *Service) Recognise(ctx context.Context, filePath string) (driven.OCRResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("reading %s: %w", filePath, err)
	}

	reqBody := recogniseRequest{
		File:      base64.StdEncoding.EncodeToString(data),
		FileType:  fileType(filePath),
		Languages: s.languages,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("read response: %w", err)
	}

	var ocrResp recogniseResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return driven.OCRResult{}, fmt.Errorf("decode response: %w", err)
	}
	if ocrResp.Error != "" {
		return driven.OCRResult{}, fmt.Errorf("paddle error: %s", ocrResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return driven.OCRResult{}, fmt.Errorf("paddle error (status %d): %s", resp.StatusCode, string(body))
	}

	result := driven.OCRResult{}
	for _, p := range ocrResp.Pages {
		result.PerPageText = append(result.PerPageText, p.Text)
	}
	result.Text = strings.Join(result.PerPageText, "\n\n")
	return result, nil
}

func fileType(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "pdf"
	}
	return ext
}
