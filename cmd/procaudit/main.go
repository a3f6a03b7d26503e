// procaudit audits procurement document bundles: completeness of
// dates, seals and signatures per document, and quantity consistency
// between contract and delivery/receipt sides of each bundle.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/procaudit-cli/internal/adapters/driven/ocr/paddle"
	"github.com/custodia-labs/procaudit-cli/internal/adapters/driven/ocr/tesseract"
	"github.com/custodia-labs/procaudit-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/procaudit-cli/internal/adapters/driven/vision/openai"
	"github.com/custodia-labs/procaudit-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/procaudit-cli/internal/config"
	"github.com/custodia-labs/procaudit-cli/internal/core/services"
	"github.com/custodia-labs/procaudit-cli/internal/resolver"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetWiring(wire)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// wire builds the production service graph once the configuration is
// loaded.
func wire(cfg config.Config) error {
	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening data store: %w", err)
	}

	mode, err := resolver.ParseMode(cfg.Resolver.Mode)
	if err != nil {
		return err
	}
	res := resolver.New(resolver.Options{
		Mode:          mode,
		MaxAttempts:   cfg.Resolver.MaxAttempts,
		BaseDelay:     cfg.Resolver.BaseDelay(),
		MaxDelay:      cfg.Resolver.MaxDelay(),
		CallTimeout:   cfg.Resolver.CallTimeout(),
		RatePerSecond: cfg.Resolver.RatePerSecond,
		Burst:         cfg.Resolver.Burst,
	}, store.CallCache())

	client, err := openai.NewClient(openai.Config{
		APIKey:  cfg.Vision.APIKey,
		BaseURL: cfg.Vision.BaseURL,
		Model:   cfg.Vision.Model,
	})
	if err != nil {
		return fmt.Errorf("configuring vision backend: %w", err)
	}

	adapters := services.Adapters{
		Detector:   openai.NewDetector(client),
		Classifier: openai.NewClassifier(client),
		Extractor:  openai.NewExtractor(client),
	}

	local := tesseract.NewService(cfg.OCR.Languages)
	if cfg.OCR.APIURL != "" {
		remote, err := paddle.NewService(paddle.Config{
			APIURL:    cfg.OCR.APIURL,
			APIToken:  cfg.OCR.APIToken,
			Languages: cfg.OCR.Languages,
		})
		if err != nil {
			return fmt.Errorf("configuring OCR backend: %w", err)
		}
		adapters.OCRPrimary = remote
		adapters.OCRSecondary = local
	} else {
		// No remote endpoint configured: the local engine is primary
		// and there is no fallback.
		adapters.OCRPrimary = local
	}

	auditor := services.NewAuditService(cfg, res, adapters, store.CheckpointStore(), store)
	cli.Wire(auditor, store, store)
	return nil
}
