// Package ingest discovers receipt files in an inbox directory.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/receiptradar/constants"
)

// Eligible reports whether path is a receipt input: an allowed extension,
// not hidden, and not a result written by the processor.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if IsHidden(base) || strings.HasSuffix(base, constants.ResultSuffix) || strings.HasSuffix(base, ".tmp") {
		return false
	}
	return AllowedExt(filepath.Ext(base))
}

// AllowedExt checks an extension against constants.AllowedExtensions.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Deduper remembers file contents by SHA-256 so a re-saved or copied receipt
// is processed once.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]string{}}
}

// Check hashes path and reports whether the same content was seen before.
func (d *Deduper) Check(path string) (hashHex string, dup bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", false, fmt.Errorf("hash: %w", err)
	}
	hashHex = hex.EncodeToString(h.Sum(nil))

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[hashHex]; ok {
		return hashHex, true, nil
	}
	d.seen[hashHex] = path
	return hashHex, false, nil
}
