package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ralt/aptrepo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aptrepo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "SHA256", cfg.Digest)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.False(t, cfg.Sign)
	assert.Empty(t, cfg.Compressions)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
repo_dir: /srv/repo
sign: true
keyring: /etc/aptrepo/secring.gpg
key_id: "0xDEADBEEF"
passphrase_file: /etc/aptrepo/pass
digest: SHA512
workers: 3
timeout: 90s
compressions: [xz, zst]
copy_packages: true
origin: Example
suite: stable
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/repo", cfg.RepoDir)
	assert.True(t, cfg.Sign)
	assert.Equal(t, "/etc/aptrepo/secring.gpg", cfg.Keyring)
	assert.Equal(t, "0xDEADBEEF", cfg.KeyID)
	assert.Equal(t, "/etc/aptrepo/pass", cfg.PassphraseFile)
	assert.Equal(t, "SHA512", cfg.Digest)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"xz", "zst"}, cfg.Compressions)
	assert.True(t, cfg.CopyPackages)
	assert.Equal(t, "Example", cfg.Origin)
	assert.Equal(t, "stable", cfg.Suite)
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "repo_dir: /srv/repo\n"))
	require.NoError(t, err)
	assert.Equal(t, "SHA256", cfg.Digest)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)

	cfg, err = Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "SHA256", cfg.Digest)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "repo_dir: /srv/repo\nrepodir: typo\n"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrConfig))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrConfig))
}

func TestValidate(t *testing.T) {
	keyring := filepath.Join(t.TempDir(), "secring.gpg")
	require.NoError(t, os.WriteFile(keyring, []byte("key"), 0600))

	valid := func() *models.RepositoryConfig {
		cfg := DefaultConfig()
		cfg.RepoDir = "/srv/repo"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*models.RepositoryConfig)
		wantErr bool
	}{
		{"defaults", func(c *models.RepositoryConfig) {}, false},
		{"missing repo dir", func(c *models.RepositoryConfig) { c.RepoDir = "" }, true},
		{"zero workers", func(c *models.RepositoryConfig) { c.Workers = 0 }, true},
		{"negative timeout", func(c *models.RepositoryConfig) { c.Timeout = -time.Second }, true},
		{"unknown digest", func(c *models.RepositoryConfig) { c.Digest = "CRC32" }, true},
		{"weak digest accepted", func(c *models.RepositoryConfig) { c.Digest = "RIPEMD160" }, false},
		{"extra compressions", func(c *models.RepositoryConfig) { c.Compressions = []string{"xz", "zst"} }, false},
		{"unknown compression", func(c *models.RepositoryConfig) { c.Compressions = []string{"bz2"} }, true},
		{"export without sign", func(c *models.RepositoryConfig) { c.ExportKey = true }, true},
		{"sign without keyring", func(c *models.RepositoryConfig) { c.Sign = true }, true},
		{"sign complete", func(c *models.RepositoryConfig) {
			c.Sign = true
			c.Keyring = keyring
			c.KeyID = "DEADBEEF"
			c.Passphrase = "x"
		}, false},
		{"sign with both passphrases", func(c *models.RepositoryConfig) {
			c.Sign = true
			c.Keyring = keyring
			c.KeyID = "DEADBEEF"
			c.Passphrase = "x"
			c.PassphraseFile = "/etc/pass"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, models.IsKind(err, models.ErrConfig), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
