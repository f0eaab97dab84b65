package deb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ralt/aptrepo/internal/generator"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/signer"
	"github.com/ralt/aptrepo/internal/utils"
	"github.com/sirupsen/logrus"
)

// Signed output names
const (
	InReleaseFileName  = "InRelease"
	ReleaseGPGFileName = "Release.gpg"
	PublicKeyFileName  = "Release.key"
)

// Generator writes the index, manifest and signatures of a flat repository
type Generator struct {
	signer       signer.Signer
	meta         models.ReleaseMetadata
	compressions []string
	workers      int
}

var _ generator.Generator = (*Generator)(nil)

// NewGenerator creates a new Debian generator. A nil signer produces an
// unsigned repository.
func NewGenerator(s signer.Signer, meta models.ReleaseMetadata, compressions []string, workers int) *Generator {
	return &Generator{
		signer:       s,
		meta:         meta,
		compressions: compressions,
		workers:      workers,
	}
}

// GenerateIndex writes Packages and its compressed variants
func (g *Generator) GenerateIndex(dir string, entries []*models.PackageEntry) ([]string, error) {
	index := NewPackageIndex()
	for _, entry := range entries {
		index.Add(entry)
	}

	names, err := index.Write(dir, g.compressions)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Generated Packages files (%d packages)", len(entries))
	return names, nil
}

// GenerateRelease digests the index files and writes Release
func (g *Generator) GenerateRelease(ctx context.Context, dir string, indexFiles []string) ([]byte, error) {
	logrus.Info("Generating Release file...")

	infos, err := CalculateReleaseFileInfos(ctx, dir, indexFiles, g.workers)
	if err != nil {
		return nil, err
	}

	release := NewReleaseBuilder(g.meta)
	for _, info := range infos {
		release.AddInfo(info)
	}

	return release.Write(dir)
}

// SignRelease writes InRelease and Release.gpg for the given Release bytes.
// Without a signer, signatures left over from an earlier run are removed so
// they cannot disagree with the new Release.
func (g *Generator) SignRelease(dir string, release []byte) error {
	if g.signer == nil {
		for _, name := range []string{InReleaseFileName, ReleaseGPGFileName} {
			stale := filepath.Join(dir, name)
			if err := os.Remove(stale); err == nil {
				logrus.Warnf("Removed stale %s", stale)
			} else if !errors.Is(err, os.ErrNotExist) {
				return models.WrapError(models.ErrIO, stale, "cannot remove stale signature", err)
			}
		}
		logrus.Warn("No signer configured, repository will be unsigned")
		return nil
	}

	// Create Release.gpg (detached signature)
	releaseGpg, err := g.signer.SignDetached(release)
	if err != nil {
		return models.WrapError(models.ErrSigning, "", "failed to create Release.gpg", err)
	}

	// Create InRelease (cleartext signed)
	inRelease, err := g.signer.SignCleartext(release)
	if err != nil {
		return models.WrapError(models.ErrSigning, "", "failed to sign InRelease", err)
	}

	releaseGpgPath := filepath.Join(dir, ReleaseGPGFileName)
	if err := utils.WriteFile(releaseGpgPath, releaseGpg, 0644); err != nil {
		return models.WrapError(models.ErrIO, releaseGpgPath, "cannot write signature", err)
	}

	inReleasePath := filepath.Join(dir, InReleaseFileName)
	if err := utils.WriteFile(inReleasePath, inRelease, 0644); err != nil {
		return models.WrapError(models.ErrIO, inReleasePath, "cannot write signature", err)
	}

	logrus.Info("Release file signed successfully")
	return nil
}

// ExportPublicKey writes the armored public signing key to Release.key
func (g *Generator) ExportPublicKey(dir string) error {
	if g.signer == nil {
		return models.NewError(models.ErrConfig, "public key export requires signing")
	}

	key, err := g.signer.GetPublicKey()
	if err != nil {
		return models.WrapError(models.ErrSigning, "", "cannot export public key", err)
	}

	target := filepath.Join(dir, PublicKeyFileName)
	if err := utils.WriteFile(target, key, 0644); err != nil {
		return models.WrapError(models.ErrIO, target, "cannot write public key", err)
	}

	logrus.Infof("Exported public key to %s", target)
	return nil
}

// ValidatePackages rejects entries without a Package field and warns about
// entries apt would not be able to install
func (g *Generator) ValidatePackages(entries []*models.PackageEntry) error {
	for _, entry := range entries {
		if entry.Name() == "" {
			return models.WrapError(models.ErrFormat, entry.SourcePath, "invalid control data",
				fmt.Errorf("missing Package field"))
		}
		for _, field := range []string{"Version", "Architecture"} {
			if v, ok := entry.Get(field); !ok || v == "" {
				logrus.WithField("package", entry.SourcePath).Warnf("Package %s has no %s field", entry.Name(), field)
			}
		}
	}

	for id, paths := range utils.DetectDuplicates(entries) {
		logrus.Warnf("Package %s registered %d times: %v", id, len(paths), paths)
	}
	return nil
}
