// Package cli provides the command-line interface for procaudit.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procaudit-cli/internal/config"
	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// CacheAdmin administers the persistent external-call cache.
type CacheAdmin interface {
	ClearCache(ctx context.Context) (int64, error)
	CacheStats(ctx context.Context) (int64, error)
}

// RunHistory reads back previously saved audit runs.
type RunHistory interface {
	ListRuns(ctx context.Context) ([]domain.AuditResult, error)
	GetRun(ctx context.Context, id string) (*domain.AuditResult, error)
}

// Services wired by the composition root before Execute runs. Tests
// set these directly.
var (
	auditService driving.Auditor
	cacheAdmin   CacheAdmin
	runHistory   RunHistory
	appConfig    = config.Default()
)

// wiring builds the services once the configuration is loaded. The
// composition root installs it; commands that only touch already wired
// state run fine without it.
var wiring func(cfg config.Config) error

var (
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "procaudit",
	Short: "Audit procurement document bundles",
	Long: `procaudit scans a directory tree of procurement documents (contracts,
delivery notes, receipt notes), checks every document for required
dates, seals and signatures, and cross-checks material quantities
between contract and delivery/receipt sides of each bundle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)

		path, err := configPath()
		if err != nil {
			return fmt.Errorf("resolving configuration path: %w", err)
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		appConfig = cfg

		if wiring != nil {
			return wiring(cfg)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to the configuration file")
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.DefaultPath()
}

// Wire installs the composed services. Called by the composition root
// from its wiring function.
func Wire(auditor driving.Auditor, cache CacheAdmin, runs RunHistory) {
	auditService = auditor
	cacheAdmin = cache
	runHistory = runs
}

// SetWiring registers the service construction hook to run after the
// configuration is loaded.
func SetWiring(fn func(cfg config.Config) error) {
	wiring = fn
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
