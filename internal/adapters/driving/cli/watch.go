package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/procaudit-cli/internal/logger"
	"github.com/custodia-labs/procaudit-cli/internal/report"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [root]",
	Short: "Re-audit a directory whenever its contents change",
	Long: `Runs an initial audit, then watches the directory tree and re-runs the
audit after changes settle. Unchanged documents are served from the
call cache, so incremental runs only pay for what actually changed.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before re-auditing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := args[0]

	if auditService == nil {
		return errors.New("audit service not configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, root); err != nil {
		return err
	}

	audit := func() {
		result, err := auditService.Audit(cmd.Context(), root)
		if err != nil {
			logger.Warn("Audit failed: %v", err)
		}
		if result != nil {
			cmd.Println(report.Render(result))
		}
	}

	audit()
	cmd.Printf("Watching %s (Ctrl-C to stop)\n", root)

	// Events reset the timer; the audit fires once the tree is quiet.
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()
	ctx := cmd.Context()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoredPath(root, event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						logger.Warn("Could not watch %s: %v", event.Name, err)
					}
				}
			}
			logger.Debug("Change detected: %s %s", event.Op, event.Name)
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(watchDebounce, audit)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watch error: %v", err)
		}
	}
}

// watchTree registers every directory under root with the watcher.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignoredPath(root, path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// ignoredPath filters the tool's own output so saving a report does
// not trigger another audit.
func ignoredPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if len(part) > 1 && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
