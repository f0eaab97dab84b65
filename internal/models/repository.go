package models

import "time"

// RepositoryConfig contains configuration for repository creation
type RepositoryConfig struct {
	// Input/Output
	RepoDir  string   `yaml:"repo_dir"`
	InputDir string   `yaml:"input_dir"`
	Packages []string `yaml:"packages"`

	// Signing
	Sign           bool   `yaml:"sign"`
	Keyring        string `yaml:"keyring"`
	KeyID          string `yaml:"key_id"`
	Passphrase     string `yaml:"passphrase"`
	PassphraseFile string `yaml:"passphrase_file"`
	Digest         string `yaml:"digest"`
	ExportKey      bool   `yaml:"export_key"`

	// Release metadata, written only when set
	Origin      string `yaml:"origin"`
	Label       string `yaml:"label"`
	Suite       string `yaml:"suite"`
	Codename    string `yaml:"codename"`
	Description string `yaml:"description"`

	// Build options
	Workers      int           `yaml:"workers"`
	Timeout      time.Duration `yaml:"timeout"`
	Compressions []string      `yaml:"compressions"`
	CopyPackages bool          `yaml:"copy_packages"`
}

// SigningConfig is the subset of RepositoryConfig needed to sign a Release
type SigningConfig struct {
	Keyring        string
	KeyID          string
	Passphrase     string
	PassphraseFile string
	Digest         string
}

// SigningConfig extracts the signing parameters
func (c *RepositoryConfig) SigningConfig() SigningConfig {
	return SigningConfig{
		Keyring:        c.Keyring,
		KeyID:          c.KeyID,
		Passphrase:     c.Passphrase,
		PassphraseFile: c.PassphraseFile,
		Digest:         c.Digest,
	}
}

// ReleaseMetadata holds the optional descriptive Release fields
type ReleaseMetadata struct {
	Origin      string
	Label       string
	Suite       string
	Codename    string
	Description string
}

// ReleaseMetadata extracts the descriptive Release fields
func (c *RepositoryConfig) ReleaseMetadata() ReleaseMetadata {
	return ReleaseMetadata{
		Origin:      c.Origin,
		Label:       c.Label,
		Suite:       c.Suite,
		Codename:    c.Codename,
		Description: c.Description,
	}
}
