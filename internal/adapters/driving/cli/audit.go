package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/core/services"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
	"github.com/custodia-labs/procaudit-cli/internal/report"
)

var auditJSON bool

var auditCmd = &cobra.Command{
	Use:   "audit [root]",
	Short: "Audit a directory of procurement documents",
	Long: `Runs the full audit pipeline over the given directory tree: discovers
documents and bundles, checks dates, seals and signatures on every
document, and cross-checks material quantities within each bundle.
The report is printed and also saved under the result directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	root := args[0]

	if auditService == nil {
		return errors.New("audit service not configured")
	}

	result, execErr := auditService.Audit(cmd.Context(), root)
	if result == nil {
		return fmt.Errorf("audit failed: %w", execErr)
	}

	// A failed run still reports whatever was collected; the error
	// surfaces after the partial report.
	if auditJSON {
		if err := outputAuditJSON(cmd, result); err != nil {
			return err
		}
	} else {
		cmd.Println(report.Render(result))
	}

	if path, err := report.WriteJSON(result, services.ResultDir(appConfig.Audit.ResultDir, root)); err != nil {
		logger.Warn("Could not save report: %v", err)
	} else if !auditJSON {
		cmd.Printf("Report saved to %s\n", path)
	}

	return execErr
}

func outputAuditJSON(cmd *cobra.Command, result *domain.AuditResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
