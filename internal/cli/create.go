package cli

import (
	"context"

	"github.com/ralt/aptrepo/internal/config"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/repo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagOverrides copies a flag value onto the loaded configuration. Only
// flags set on the command line are applied, so the config file keeps its
// values otherwise.
var flagOverrides = map[string]func(dst, src *models.RepositoryConfig){
	"repo-dir":        func(dst, src *models.RepositoryConfig) { dst.RepoDir = src.RepoDir },
	"input-dir":       func(dst, src *models.RepositoryConfig) { dst.InputDir = src.InputDir },
	"sign":            func(dst, src *models.RepositoryConfig) { dst.Sign = src.Sign },
	"keyring":         func(dst, src *models.RepositoryConfig) { dst.Keyring = src.Keyring },
	"key-id":          func(dst, src *models.RepositoryConfig) { dst.KeyID = src.KeyID },
	"passphrase":      func(dst, src *models.RepositoryConfig) { dst.Passphrase = src.Passphrase },
	"passphrase-file": func(dst, src *models.RepositoryConfig) { dst.PassphraseFile = src.PassphraseFile },
	"digest":          func(dst, src *models.RepositoryConfig) { dst.Digest = src.Digest },
	"export-key":      func(dst, src *models.RepositoryConfig) { dst.ExportKey = src.ExportKey },
	"origin":          func(dst, src *models.RepositoryConfig) { dst.Origin = src.Origin },
	"label":           func(dst, src *models.RepositoryConfig) { dst.Label = src.Label },
	"suite":           func(dst, src *models.RepositoryConfig) { dst.Suite = src.Suite },
	"codename":        func(dst, src *models.RepositoryConfig) { dst.Codename = src.Codename },
	"description":     func(dst, src *models.RepositoryConfig) { dst.Description = src.Description },
	"workers":         func(dst, src *models.RepositoryConfig) { dst.Workers = src.Workers },
	"timeout":         func(dst, src *models.RepositoryConfig) { dst.Timeout = src.Timeout },
	"compressions":    func(dst, src *models.RepositoryConfig) { dst.Compressions = src.Compressions },
	"copy-packages":   func(dst, src *models.RepositoryConfig) { dst.CopyPackages = src.CopyPackages },
}

// NewCreateCmd creates the create command
func NewCreateCmd() *cobra.Command {
	var configPath string
	flags := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "create [flags] [PACKAGE.deb...]",
		Short: "Create a repository from .deb packages",
		Long: `Reads the given .deb packages, and those found under --input-dir,
and writes Packages, Packages.gz, Release and, with --sign, Release.gpg
and InRelease into the repository directory.

Packages appear in the index in the order they are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath, cmd.Flags(), flags)
			if err != nil {
				return err
			}
			cfg.Packages = append(cfg.Packages, args...)

			logrus.Info("Starting repository creation...")
			logrus.Debugf("Configuration: repo_dir=%s input_dir=%s packages=%d sign=%t workers=%d",
				cfg.RepoDir, cfg.InputDir, len(cfg.Packages), cfg.Sign, cfg.Workers)

			return runCreate(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")

	// Input/Output flags
	cmd.Flags().StringVarP(&flags.RepoDir, "repo-dir", "o", "", "Repository directory (created if its parent exists)")
	cmd.Flags().StringVarP(&flags.InputDir, "input-dir", "i", "", "Directory to scan for .deb packages")
	cmd.Flags().BoolVar(&flags.CopyPackages, "copy-packages", false, "Copy packages into the repository directory")

	// GPG signing flags
	cmd.Flags().BoolVarP(&flags.Sign, "sign", "s", false, "Sign the Release file")
	cmd.Flags().StringVarP(&flags.Keyring, "keyring", "k", "", "OpenPGP secret keyring, armored or binary")
	cmd.Flags().StringVar(&flags.KeyID, "key-id", "", "Key ID or fingerprint of the signing key")
	cmd.Flags().StringVarP(&flags.Passphrase, "passphrase", "p", "", "Signing key passphrase")
	cmd.Flags().StringVar(&flags.PassphraseFile, "passphrase-file", "", "File whose first line is the signing key passphrase")
	cmd.Flags().StringVar(&flags.Digest, "digest", flags.Digest, "Signature digest algorithm")
	cmd.Flags().BoolVar(&flags.ExportKey, "export-key", false, "Write the armored public key to Release.key")

	// Repository metadata flags
	cmd.Flags().StringVar(&flags.Origin, "origin", "", "Release Origin field")
	cmd.Flags().StringVar(&flags.Label, "label", "", "Release Label field")
	cmd.Flags().StringVar(&flags.Suite, "suite", "", "Release Suite field")
	cmd.Flags().StringVar(&flags.Codename, "codename", "", "Release Codename field")
	cmd.Flags().StringVar(&flags.Description, "description", "", "Release Description field")

	// Build options
	cmd.Flags().IntVarP(&flags.Workers, "workers", "j", flags.Workers, "Number of packages read in parallel")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Abort the build after this duration (0 disables)")
	cmd.Flags().StringSliceVar(&flags.Compressions, "compressions", nil, "Extra Packages compressions (xz, zst)")

	return cmd
}

// loadConfig reads the config file, or the defaults, and applies the flags
// that were set explicitly
func loadConfig(path string, fs *pflag.FlagSet, flags *models.RepositoryConfig) (*models.RepositoryConfig, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := flagOverrides[f.Name]; ok {
			apply(cfg, flags)
		}
	})

	return cfg, nil
}

func runCreate(ctx context.Context, cfg *models.RepositoryConfig) error {
	b, err := repo.New(*cfg)
	if err != nil {
		return err
	}

	if cfg.InputDir != "" {
		logrus.Infof("Scanning directory: %s", cfg.InputDir)
		n, err := b.AddDirectory(ctx, cfg.InputDir)
		if err != nil {
			return err
		}
		if n == 0 {
			logrus.Warn("No packages found in input directory")
		}
	}

	for _, path := range cfg.Packages {
		if err := b.Add(path); err != nil {
			return err
		}
	}

	if err := b.Create(ctx); err != nil {
		return err
	}

	logrus.Infof("Repository directory: %s", cfg.RepoDir)
	return nil
}
