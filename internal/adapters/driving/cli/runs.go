package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/procaudit-cli/internal/report"
)

var runsJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past audit runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved audit runs, most recent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if runHistory == nil {
			return errors.New("run store not configured")
		}
		runs, err := runHistory.ListRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			cmd.Println("No saved runs.")
			return nil
		}
		for i := range runs {
			cmd.Printf("  %s  %s  %d finding(s), %d file(s)\n",
				runs[i].StartedAt.Format("2006-01-02 15:04:05"),
				runs[i].RunID, len(runs[i].Findings), runs[i].Files)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the report of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if runHistory == nil {
			return errors.New("run store not configured")
		}
		result, err := runHistory.GetRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading run %s: %w", args[0], err)
		}
		if runsJSON {
			return outputAuditJSON(cmd, result)
		}
		cmd.Println(report.Render(result))
		return nil
	},
}

func init() {
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "output the report as JSON")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
