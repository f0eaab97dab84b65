package deb

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/signer"
	"github.com/ralt/aptrepo/internal/testutil"
)

func TestGenerateReleaseUnsigned(t *testing.T) {
	// Setup temp directory
	tmpDir, err := os.MkdirTemp("", "aptrepo-test-")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Leftovers from an earlier signed run
	for _, name := range []string{InReleaseFileName, ReleaseGPGFileName} {
		os.WriteFile(filepath.Join(tmpDir, name), []byte("stale"), 0644)
	}

	// Create generator without signer (unsigned)
	gen := NewGenerator(nil, models.ReleaseMetadata{}, nil, 2)

	names, err := gen.GenerateIndex(tmpDir, []*models.PackageEntry{sampleEntry("hello")})
	if err != nil {
		t.Fatalf("GenerateIndex failed: %v", err)
	}

	release, err := gen.GenerateRelease(context.Background(), tmpDir, names)
	if err != nil {
		t.Fatalf("GenerateRelease failed: %v", err)
	}

	if err := gen.SignRelease(tmpDir, release); err != nil {
		t.Fatalf("SignRelease failed: %v", err)
	}

	// Verify Release exists and lists both index files in every section
	releaseData, err := os.ReadFile(filepath.Join(tmpDir, "Release"))
	if err != nil {
		t.Fatalf("Release not created: %v", err)
	}
	if !bytes.Equal(releaseData, release) {
		t.Errorf("Release on disk differs from returned bytes")
	}
	for _, name := range []string{" Packages\n", " Packages.gz\n"} {
		if got := strings.Count(string(releaseData), name); got != 4 {
			t.Errorf("%q listed %d times, want once per section", strings.TrimSpace(name), got)
		}
	}

	// Verify signatures do NOT exist
	for _, name := range []string{InReleaseFileName, ReleaseGPGFileName} {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should not exist for unsigned repository", name)
		}
	}
}

func TestGenerateReleaseSigned(t *testing.T) {
	tmpDir := t.TempDir()
	keyDir := t.TempDir()

	entity := testutil.GenerateKey(t)
	keyring := testutil.WriteKeyring(t, keyDir, entity, "pass", true)

	s, err := signer.NewGPGSigner(models.SigningConfig{
		Keyring:    keyring,
		KeyID:      entity.PrimaryKey.KeyIdString(),
		Passphrase: "pass",
	})
	if err != nil {
		t.Fatalf("NewGPGSigner failed: %v", err)
	}

	gen := NewGenerator(s, models.ReleaseMetadata{Origin: "Test"}, nil, 1)

	names, err := gen.GenerateIndex(tmpDir, nil)
	if err != nil {
		t.Fatalf("GenerateIndex failed: %v", err)
	}
	release, err := gen.GenerateRelease(context.Background(), tmpDir, names)
	if err != nil {
		t.Fatalf("GenerateRelease failed: %v", err)
	}
	if err := gen.SignRelease(tmpDir, release); err != nil {
		t.Fatalf("SignRelease failed: %v", err)
	}
	if err := gen.ExportPublicKey(tmpDir); err != nil {
		t.Fatalf("ExportPublicKey failed: %v", err)
	}

	pubring := testutil.PublicKeyring(t, entity)

	sig, err := os.ReadFile(filepath.Join(tmpDir, ReleaseGPGFileName))
	if err != nil {
		t.Fatalf("Release.gpg not created: %v", err)
	}
	if _, err := openpgp.CheckDetachedSignature(pubring, bytes.NewReader(release), bytes.NewReader(sig), nil); err != nil {
		t.Errorf("Release.gpg does not verify: %v", err)
	}

	inRelease, err := os.ReadFile(filepath.Join(tmpDir, InReleaseFileName))
	if err != nil {
		t.Fatalf("InRelease not created: %v", err)
	}
	block, _ := clearsign.Decode(inRelease)
	if block == nil {
		t.Fatalf("InRelease is not a clear-signed message")
	}
	if !bytes.Equal(block.Plaintext, release) {
		t.Errorf("InRelease plaintext differs from Release")
	}
	if _, err := block.VerifySignature(pubring, nil); err != nil {
		t.Errorf("InRelease does not verify: %v", err)
	}

	key, err := os.ReadFile(filepath.Join(tmpDir, PublicKeyFileName))
	if err != nil {
		t.Fatalf("Release.key not created: %v", err)
	}
	if !bytes.Contains(key, []byte("BEGIN PGP PUBLIC KEY BLOCK")) {
		t.Errorf("Release.key is not an armored public key")
	}
}

func TestExportPublicKeyRequiresSigner(t *testing.T) {
	gen := NewGenerator(nil, models.ReleaseMetadata{}, nil, 1)
	if err := gen.ExportPublicKey(t.TempDir()); !models.IsKind(err, models.ErrConfig) {
		t.Errorf("expected Config error, got %v", err)
	}
}

func TestValidatePackages(t *testing.T) {
	gen := NewGenerator(nil, models.ReleaseMetadata{}, nil, 1)

	if err := gen.ValidatePackages([]*models.PackageEntry{sampleEntry("a"), sampleEntry("a")}); err != nil {
		t.Errorf("duplicates should only warn: %v", err)
	}

	noName := &models.PackageEntry{Fields: []models.Field{{Name: "Version", Value: "1"}}, SourcePath: "x.deb"}
	if err := gen.ValidatePackages([]*models.PackageEntry{noName}); !models.IsKind(err, models.ErrFormat) {
		t.Errorf("expected Format error, got %v", err)
	}
}
