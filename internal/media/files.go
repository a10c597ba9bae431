package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListMediaFiles returns the regular files directly under dir whose extension is allowed, sorted by name.
func ListMediaFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if !ExtensionAllowed(filepath.Ext(e.Name()), extensions) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ExtensionAllowed reports whether ext matches one of allowed, ignoring case and a leading dot.
func ExtensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
