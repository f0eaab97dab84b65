// Package config loads and validates repository build settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/signer"
	"github.com/ralt/aptrepo/internal/utils"
	"gopkg.in/yaml.v3"
)

// ExtraCompressions lists the optional index compressions
var ExtraCompressions = []string{"xz", "zst"}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *models.RepositoryConfig {
	return &models.RepositoryConfig{
		Digest:  signer.DefaultDigest,
		Workers: runtime.NumCPU(),
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*models.RepositoryConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.WrapError(models.ErrConfig, path, "cannot read config file", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, models.WrapError(models.ErrConfig, path, "invalid config file", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is complete and consistent
func Validate(cfg *models.RepositoryConfig) error {
	if cfg.RepoDir == "" {
		return models.NewError(models.ErrConfig, "repo_dir is required")
	}

	if cfg.Workers < 1 {
		return models.NewError(models.ErrConfig, fmt.Sprintf("workers must be at least 1, got %d", cfg.Workers))
	}

	if cfg.Timeout < 0 {
		return models.NewError(models.ErrConfig, "timeout cannot be negative")
	}

	if cfg.Digest != "" {
		if _, err := utils.LookupAlgorithm(cfg.Digest); err != nil {
			return err
		}
	}

	for _, c := range cfg.Compressions {
		if !slices.Contains(ExtraCompressions, c) {
			return models.NewError(models.ErrConfig,
				fmt.Sprintf("compressions must be among %v, got %q", ExtraCompressions, c))
		}
	}

	if cfg.ExportKey && !cfg.Sign {
		return models.NewError(models.ErrConfig, "export_key requires sign")
	}

	if cfg.Sign {
		return signer.ValidateConfig(cfg.SigningConfig())
	}

	return nil
}
