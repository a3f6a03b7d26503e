package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

// KeyFromBytes builds the cache identity for an operation over raw
// content: sha256(content) + ":" + op. Identical content under a
// different path or name resolves to the same key.
func KeyFromBytes(content []byte, op string) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]) + ":" + op
}

// KeyForFile builds the cache identity for an operation over a file's
// current content.
func KeyForFile(path, op string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", domain.ErrInvalidInput, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hashing %s: %v", domain.ErrInvalidInput, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)) + ":" + op, nil
}

// KeyForText builds the cache identity for an operation over
// already-recognised text, used by classification and extraction whose
// input is text rather than a file.
func KeyForText(text, op string) string {
	return KeyFromBytes([]byte(text), op)
}
