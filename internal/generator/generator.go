package generator

import (
	"context"

	"github.com/ralt/aptrepo/internal/models"
)

// Generator writes the files of a repository, one phase at a time
type Generator interface {
	// ValidatePackages checks if packages can be indexed
	ValidatePackages(entries []*models.PackageEntry) error

	// GenerateIndex writes the package index and its compressed forms,
	// returning their names relative to dir
	GenerateIndex(dir string, entries []*models.PackageEntry) ([]string, error)

	// GenerateRelease writes the Release manifest covering indexFiles
	GenerateRelease(ctx context.Context, dir string, indexFiles []string) ([]byte, error)

	// SignRelease writes the signatures of release, or removes stale ones
	// when the repository is unsigned
	SignRelease(dir string, release []byte) error

	// ExportPublicKey writes the signing public key next to the Release
	ExportPublicKey(dir string) error
}
