// Package storage reports disk usage of the vector store artifacts.
package storage

import (
	"os"
	"path/filepath"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/vector"
)

// StoreUsage is the on-disk footprint of a store directory.
type StoreUsage struct {
	Artifacts  map[string]int64 `json:"artifacts"`
	TotalBytes int64            `json:"total_bytes"`
}

// StoreUsageOf sizes each store artifact in dir. Missing artifacts are reported as 0.
func StoreUsageOf(dir string) (*StoreUsage, error) {
	u := &StoreUsage{Artifacts: make(map[string]int64, 3)}
	for _, name := range []string{vector.VectorsFile, vector.MetadataFile, vector.ManifestFile} {
		n, err := DiskUsageBytes(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		u.Artifacts[name] = n
		u.TotalBytes += n
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped (contribute 0); errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
