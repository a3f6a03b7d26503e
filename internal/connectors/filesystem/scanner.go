// Package filesystem discovers procurement documents on disk and
// partitions them into IOC groups using folder-structure heuristics.
// Discovery is deterministic for a fixed filesystem state: files and
// groups come back sorted by path.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
	"github.com/custodia-labs/procaudit-cli/internal/logger"
)

// imageExts are the supported raster formats besides PDF.
var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tiff": true, ".tif": true, ".webp": true,
}

// Discovery is the result of scanning an audit root.
type Discovery struct {
	// Root is the cleaned absolute root path.
	Root string

	// Files lists every supported document, sorted by path.
	Files []domain.Document

	// Groups lists the IOC groups, sorted by directory.
	Groups []domain.IOCGroup
}

// Scanner walks a directory tree and builds a Discovery.
type Scanner struct{}

// NewScanner creates a Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Discover scans root. A missing or unreadable root is fatal
// (domain.ErrInvalidInput); a readable root with zero supported files
// yields an empty, successful Discovery.
func (s *Scanner) Discover(root string) (*Discovery, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: root %s: %v", domain.ErrInvalidInput, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", domain.ErrInvalidInput, root)
	}

	files, err := s.collectFiles(abs)
	if err != nil {
		return nil, err
	}

	groups, err := s.discoverGroups(abs)
	if err != nil {
		return nil, err
	}

	logger.Info("Discovered %d files in %d groups under %s", len(files), len(groups), abs)

	return &Discovery{Root: abs, Files: files, Groups: groups}, nil
}

// collectFiles gathers every supported document under root.
func (s *Scanner) collectFiles(root string) ([]domain.Document, error) {
	var files []domain.Document

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping unreadable entry %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !supportedFile(path) {
			return nil
		}
		files = append(files, domain.Document{
			Path:    path,
			Project: projectOf(root, path),
			Kind:    domain.KindUnclassified,
			Pages:   pageCount(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", domain.ErrInvalidInput, root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func supportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || imageExts[ext]
}

// projectOf derives the project name: the top-level directory under
// root, or the root's own base name for files placed directly in it.
func projectOf(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Base(root)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return filepath.Base(root)
	}
	return parts[0]
}

// pageCount reads the PDF page count; images count as one page.
// A broken PDF yields zero pages rather than failing discovery.
func pageCount(path string) int {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return 1
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		logger.Warn("Could not read page count of %s: %v", path, err)
		return 0
	}
	return n
}
