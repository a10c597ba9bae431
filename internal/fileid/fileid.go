// Package fileid provides deterministic keyword-index document IDs for media events.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "event:"

// EventDocID returns a stable document ID for one event of fileName.
// parts locate the event within the file (frame and label, or segment bounds).
// The same inputs always yield the same ID, so re-indexing an event overwrites it.
func EventDocID(modality, fileName string, parts ...string) string {
	var b strings.Builder
	b.WriteString(modality)
	b.WriteByte(0)
	b.WriteString(filepath.Base(filepath.Clean(fileName)))
	for _, p := range parts {
		b.WriteByte(0)
		b.WriteString(p)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return prefix + hex.EncodeToString(hash[:])
}
