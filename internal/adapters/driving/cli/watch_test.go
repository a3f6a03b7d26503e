package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchDir(path string) error {
	return os.MkdirAll(path, 0755)
}

func TestWatchCmd_NotConfigured(t *testing.T) {
	swapServices(t, nil, nil, nil)

	_, err := executeCmd(t, "watch", t.TempDir())

	assert.ErrorContains(t, err, "not configured")
}

func TestIgnoredPath(t *testing.T) {
	root := "/data/siteA"

	tests := []struct {
		name    string
		path    string
		ignored bool
	}{
		{"root itself", "/data/siteA", false},
		{"plain subdirectory", "/data/siteA/steel", false},
		{"result directory", "/data/siteA/.procaudit", true},
		{"nested result file", "/data/siteA/.procaudit/results/run/report.json", true},
		{"other hidden directory", "/data/siteA/.git/objects", true},
		{"visible file", "/data/siteA/steel/contract.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ignored, ignoredPath(root, tt.path))
		})
	}
}

func TestWatchTree_RegistersSubdirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, touchDir(filepath.Join(root, "steel")))
	require.NoError(t, touchDir(filepath.Join(root, "steel", "receipts")))
	require.NoError(t, touchDir(filepath.Join(root, ".procaudit")))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, watchTree(watcher, root))

	watched := watcher.WatchList()
	assert.Contains(t, watched, root)
	assert.Contains(t, watched, filepath.Join(root, "steel"))
	assert.Contains(t, watched, filepath.Join(root, "steel", "receipts"))
	assert.NotContains(t, watched, filepath.Join(root, ".procaudit"))
}

func TestWatchCmd_DebounceFlagDefault(t *testing.T) {
	flag := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "2s", flag.DefValue)
}
