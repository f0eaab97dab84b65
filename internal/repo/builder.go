// Package repo builds a flat Debian repository from registered package archives.
package repo

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"

	"github.com/ralt/aptrepo/internal/config"
	"github.com/ralt/aptrepo/internal/generator"
	"github.com/ralt/aptrepo/internal/generator/deb"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/scanner"
	"github.com/ralt/aptrepo/internal/signer"
	"github.com/ralt/aptrepo/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State is the build phase a Builder has reached
type State int

const (
	StateConfigured State = iota
	StatePackagesBuilt
	StateReleaseBuilt
	StateSigned
	StateDone
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateConfigured:
		return "Configured"
	case StatePackagesBuilt:
		return "PackagesBuilt"
	case StateReleaseBuilt:
		return "ReleaseBuilt"
	case StateSigned:
		return "Signed"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Builder registers package archives and creates the repository once
type Builder struct {
	mu       sync.Mutex
	cfg      models.RepositoryConfig
	gen      generator.Generator
	signer   signer.Signer
	packages []string
	state    State
	started  bool
}

// New validates cfg, creates the repository directory if its parent exists
// and loads the signing key when signing is enabled
func New(cfg models.RepositoryConfig) (*Builder, error) {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	if err := utils.EnsureDir(cfg.RepoDir); err != nil {
		return nil, models.WrapError(models.ErrConfig, cfg.RepoDir, "invalid repository directory", err)
	}

	b := &Builder{cfg: cfg}

	if cfg.Sign {
		s, err := signer.NewGPGSigner(cfg.SigningConfig())
		if err != nil {
			return nil, err
		}
		b.signer = s
		logrus.Info("GPG signer initialized")
	}

	b.gen = deb.NewGenerator(b.signer, cfg.ReleaseMetadata(), cfg.Compressions, cfg.Workers)
	return b, nil
}

// Add registers a package archive. Archives are indexed in the order added.
func (b *Builder) Add(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return models.NewError(models.ErrConfig, "cannot add packages after create")
	}

	info, err := os.Stat(path)
	if err != nil {
		return models.WrapError(models.ErrInput, path, "package not found", err)
	}
	if !info.Mode().IsRegular() {
		return models.WrapError(models.ErrInput, path, "package is not a regular file", nil)
	}

	b.packages = append(b.packages, path)
	logrus.Debugf("Registered %s", path)
	return nil
}

// AddDirectory registers every package archive found under dir, in lexical
// path order. The repository directory itself is not scanned.
func (b *Builder) AddDirectory(ctx context.Context, dir string) (int, error) {
	sc := scanner.NewFileSystemScanner(b.cfg.RepoDir)
	found, err := sc.Scan(ctx, dir)
	if err != nil {
		return 0, models.WrapError(models.ErrInput, dir, "cannot scan directory", err)
	}

	for _, pkg := range found {
		if err := b.Add(pkg.Path); err != nil {
			return 0, err
		}
	}
	return len(found), nil
}

// Packages returns the registered archive paths
func (b *Builder) Packages() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.packages...)
}

// State returns the last phase completed
func (b *Builder) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Builder) advance(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	logrus.Debugf("Repository build reached %s", s)
}

// Create extracts every registered archive, then writes the index, the
// Release manifest and, when configured, its signatures. Nothing is written
// unless every archive could be read. Create can only be called once.
func (b *Builder) Create(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return models.NewError(models.ErrConfig, "repository already created")
	}
	b.started = true
	packages := append([]string(nil), b.packages...)
	b.mu.Unlock()

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	logrus.Infof("Creating repository in %s from %d packages", b.cfg.RepoDir, len(packages))

	entries, err := b.extractAll(ctx, packages)
	if err != nil {
		return err
	}

	if err := b.gen.ValidatePackages(entries); err != nil {
		return err
	}

	if b.cfg.CopyPackages {
		if err := b.copyPackages(ctx, entries); err != nil {
			return err
		}
	}

	if err := checkContext(ctx); err != nil {
		return err
	}

	indexFiles, err := b.gen.GenerateIndex(b.cfg.RepoDir, entries)
	if err != nil {
		return err
	}
	b.advance(StatePackagesBuilt)

	release, err := b.gen.GenerateRelease(ctx, b.cfg.RepoDir, indexFiles)
	if err != nil {
		if ctxErr := checkContext(ctx); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	b.advance(StateReleaseBuilt)

	if err := checkContext(ctx); err != nil {
		return err
	}

	if err := b.gen.SignRelease(b.cfg.RepoDir, release); err != nil {
		return err
	}
	if b.signer != nil {
		b.advance(StateSigned)

		if b.cfg.ExportKey {
			if err := b.gen.ExportPublicKey(b.cfg.RepoDir); err != nil {
				return err
			}
		}
	}

	b.advance(StateDone)
	logrus.Info("Repository creation completed successfully!")
	return nil
}

// extractAll parses archives with up to cfg.Workers goroutines. Results land
// in per-index slots, so the order matches registration. The first failure
// by registration order is reported.
func (b *Builder) extractAll(ctx context.Context, packages []string) ([]*models.PackageEntry, error) {
	entries := make([]*models.PackageEntry, len(packages))
	errs := make([]error, len(packages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)

	for i, path := range packages {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			entry, err := deb.ParsePackage(path)
			if err != nil {
				errs[i] = err
				return err
			}
			entries[i] = entry
			return nil
		})
	}

	waitErr := g.Wait()

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if waitErr == nil {
		return entries, nil
	}

	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	return nil, waitErr
}

func (b *Builder) copyPackages(ctx context.Context, entries []*models.PackageEntry) error {
	for _, entry := range entries {
		if err := checkContext(ctx); err != nil {
			return err
		}

		dst, needsCopy, err := utils.ShouldCopyPackage(entry, b.cfg.RepoDir)
		if err != nil {
			return models.WrapError(models.ErrIO, entry.SourcePath, "cannot check package copy", err)
		}
		if !needsCopy {
			logrus.Debugf("Package %s already in repository", entry.Filename)
			continue
		}

		if err := utils.CopyFile(entry.SourcePath, dst); err != nil {
			return models.WrapError(models.ErrIO, dst, "cannot copy package", err)
		}
		logrus.Debugf("Copied %s to %s", entry.SourcePath, dst)
	}
	return nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.WrapError(models.ErrIO, "", "repository creation aborted", err)
	}
	return nil
}
