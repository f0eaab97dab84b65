package utils

import (
	"fmt"

	"github.com/ralt/aptrepo/internal/models"
)

// PackageIdentity returns the name:version:architecture identity of an entry
func PackageIdentity(entry *models.PackageEntry) string {
	return fmt.Sprintf("%s:%s:%s", entry.Name(), entry.Version(), entry.Architecture())
}

// DetectDuplicates returns, for every identity registered more than once,
// the source paths that share it, in registration order
func DetectDuplicates(entries []*models.PackageEntry) map[string][]string {
	seen := make(map[string][]string)
	for _, entry := range entries {
		id := PackageIdentity(entry)
		seen[id] = append(seen[id], entry.SourcePath)
	}

	duplicates := make(map[string][]string)
	for id, paths := range seen {
		if len(paths) > 1 {
			duplicates[id] = paths
		}
	}
	return duplicates
}
