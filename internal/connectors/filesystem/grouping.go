package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

// Folder name fragments that identify document-kind subdirectories.
// Both English and the CJK terms found on real procurement trees match.
var (
	receiptFolderHints  = []string{"receipt", "入库单"}
	deliveryFolderHints = []string{"delivery", "送货单"}
	contractFolderHints = []string{"contract", "合同"}
)

// dirStats summarises one directory's immediate contents.
type dirStats struct {
	pdfCount   int
	imageCount int
	subdirs    []string
}

// discoverGroups finds every IOC group directory under root and builds
// the groups with their member documents.
func (s *Scanner) discoverGroups(root string) ([]domain.IOCGroup, error) {
	var groupDirs []string
	if err := s.findGroupDirs(root, &groupDirs); err != nil {
		return nil, err
	}
	sort.Strings(groupDirs)

	groups := make([]domain.IOCGroup, 0, len(groupDirs))
	for _, dir := range groupDirs {
		members, err := s.collectFiles(dir)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			continue
		}
		for i := range members {
			members[i].Project = projectOf(root, dir)
		}
		groups = append(groups, domain.IOCGroup{
			ID:        groupID(root, dir),
			Project:   projectOf(root, dir),
			Directory: dir,
			Documents: members,
		})
	}
	return groups, nil
}

// findGroupDirs recursively checks each subdirectory: a directory that
// looks like one material flow becomes a group root and is not
// descended further; anything else is searched deeper.
func (s *Scanner) findGroupDirs(dir string, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", domain.ErrInvalidInput, dir, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		stats, err := analyse(sub)
		if err != nil {
			return err
		}
		if isGroupDir(stats) {
			*out = append(*out, sub)
			continue
		}
		if err := s.findGroupDirs(sub, out); err != nil {
			return err
		}
	}
	return nil
}

func analyse(dir string) (dirStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return dirStats{}, fmt.Errorf("%w: reading %s: %v", domain.ErrInvalidInput, dir, err)
	}

	var stats dirStats
	for _, e := range entries {
		if e.IsDir() {
			stats.subdirs = append(stats.subdirs, e.Name())
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		switch {
		case ext == ".pdf":
			stats.pdfCount++
		case imageExts[ext]:
			stats.imageCount++
		}
	}
	return stats, nil
}

// isGroupDir applies the group heuristics: a directory is presumed to
// describe one material flow when any of these hold:
//
//  1. ≥1 PDF and a receipt- or delivery-named subdirectory
//  2. ≥1 PDF and ≥1 image
//  3. ≥2 PDFs
//  4. ≥1 image
//  5. contract, receipt, and delivery subdirectories all present
func isGroupDir(stats dirStats) bool {
	hasSubdir := func(hints []string) bool {
		for _, name := range stats.subdirs {
			lower := strings.ToLower(name)
			for _, h := range hints {
				if strings.Contains(lower, h) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case stats.pdfCount >= 1 && (hasSubdir(receiptFolderHints) || hasSubdir(deliveryFolderHints)):
		return true
	case stats.pdfCount >= 1 && stats.imageCount >= 1:
		return true
	case stats.pdfCount >= 2:
		return true
	case stats.imageCount >= 1:
		return true
	case hasSubdir(contractFolderHints) && hasSubdir(receiptFolderHints) && hasSubdir(deliveryFolderHints):
		return true
	}
	return false
}

// groupID derives a stable identifier from the group's path relative
// to the audit root.
func groupID(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	sum := sha256.Sum256([]byte(filepath.ToSlash(rel)))
	return hex.EncodeToString(sum[:8])
}
