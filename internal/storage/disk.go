package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// sqliteSidecars are the files SQLite keeps next to a WAL-mode database.
var sqliteSidecars = []string{"-wal", "-shm"}

// DiskUsageBytes returns the bytes used on disk by the given store paths. A directory (the
// keyword index) is summed recursively; a file (a SQLite database) also counts its WAL sidecars.
// Empty and missing paths contribute 0, and a path listed twice is counted once.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		n, err := pathSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return dirSize(p)
	}
	total := info.Size()
	for _, suffix := range sqliteSidecars {
		if side, err := os.Stat(p + suffix); err == nil && !side.IsDir() {
			total += side.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
