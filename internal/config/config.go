// Package config loads the immutable application configuration from a
// TOML file. The loaded Config value is passed explicitly into services
// at construction; no package reads configuration ambiently.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Audit configures discovery and pipeline concurrency.
type Audit struct {
	// ResultDir receives per-run output (OCR text, reports). Empty
	// selects <root>/.procaudit/results.
	ResultDir string `toml:"result_dir"`

	// SaveOCRText persists recognised page text per group.
	SaveOCRText bool `toml:"save_ocr_text"`

	// MaxConcurrentFiles bounds per-loop file fan-out.
	MaxConcurrentFiles int `toml:"max_concurrent_files"`

	// MaxExternalCalls is the single global cap on concurrent external
	// adapter calls, shared by nested loops.
	MaxExternalCalls int `toml:"max_external_calls"`

	// MaxSteps caps total engine node/item executions.
	MaxSteps int `toml:"max_steps"`
}

// Resolver configures the hybrid primary/secondary call pattern.
type Resolver struct {
	// Mode is primary-only, secondary-only, or primary-then-secondary.
	Mode string `toml:"mode"`

	// MaxAttempts bounds retries per backend.
	MaxAttempts int `toml:"max_attempts"`

	// BaseDelayMS / MaxDelayMS shape the capped exponential backoff.
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`

	// CallTimeoutMS bounds each individual external call.
	CallTimeoutMS int `toml:"call_timeout_ms"`

	// RatePerSecond / Burst throttle outbound calls.
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// BaseDelay returns the backoff base as a duration.
func (r Resolver) BaseDelay() time.Duration { return time.Duration(r.BaseDelayMS) * time.Millisecond }

// MaxDelay returns the backoff cap as a duration.
func (r Resolver) MaxDelay() time.Duration { return time.Duration(r.MaxDelayMS) * time.Millisecond }

// CallTimeout returns the per-call timeout as a duration.
func (r Resolver) CallTimeout() time.Duration {
	return time.Duration(r.CallTimeoutMS) * time.Millisecond
}

// Checker configures the consistency rules.
type Checker struct {
	// TolerancePct is the relative tolerance for the quantity rule.
	TolerancePct float64 `toml:"tolerance_pct"`

	// DateRule toggles the date-ordering rule. Off by default: the
	// pairing heuristic produces false positives on real document sets.
	DateRule bool `toml:"date_rule"`

	// DatePairing selects the pairing strategy for the date rule
	// ("earliest" or "reference").
	DatePairing string `toml:"date_pairing"`
}

// Vision configures the OpenAI-compatible vision/text model endpoint
// used for region detection, classification, and extraction.
type Vision struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// OCR configures the OCR backends.
type OCR struct {
	// APIURL / APIToken address the primary remote OCR service.
	APIURL   string `toml:"api_url"`
	APIToken string `toml:"api_token"`

	// Languages are hints for the local Tesseract fallback.
	Languages []string `toml:"languages"`
}

// Storage configures local persistence.
type Storage struct {
	// DataDir holds the cache/checkpoint database. Empty selects
	// ~/.procaudit/data.
	DataDir string `toml:"data_dir"`
}

// Config is the complete immutable application configuration.
type Config struct {
	Audit    Audit    `toml:"audit"`
	Resolver Resolver `toml:"resolver"`
	Checker  Checker  `toml:"checker"`
	Vision   Vision   `toml:"vision"`
	OCR      OCR      `toml:"ocr"`
	Storage  Storage  `toml:"storage"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Audit: Audit{
			SaveOCRText:        true,
			MaxConcurrentFiles: 4,
			MaxExternalCalls:   8,
			MaxSteps:           100000,
		},
		Resolver: Resolver{
			Mode:          "primary-then-secondary",
			MaxAttempts:   3,
			BaseDelayMS:   500,
			MaxDelayMS:    8000,
			CallTimeoutMS: 60000,
			RatePerSecond: 5.0,
			Burst:         10,
		},
		Checker: Checker{
			TolerancePct: 5.0,
			DateRule:     false,
			DatePairing:  "earliest",
		},
		Vision: Vision{
			BaseURL: "http://localhost:8000/v1",
			APIKey:  "sk-dummy-key",
			Model:   "qwen3-vl-4b-instruct",
		},
		OCR: OCR{
			Languages: []string{"eng", "chi_sim"},
		},
	}
}

// DefaultPath returns ~/.procaudit/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".procaudit", "config.toml"), nil
}

// Load reads the configuration file at path, applying defaults for any
// omitted field. A missing file yields the defaults; a malformed file
// is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
