package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the external-call cache",
	Long: `The cache stores one entry per (document content, operation) pair so
re-running an audit over unchanged files makes no external calls.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cacheAdmin == nil {
			return errors.New("cache store not configured")
		}
		count, err := cacheAdmin.CacheStats(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("%d cached call(s)\n", count)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached call results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cacheAdmin == nil {
			return errors.New("cache store not configured")
		}
		removed, err := cacheAdmin.ClearCache(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d cached call(s)\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
