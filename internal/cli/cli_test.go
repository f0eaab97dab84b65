package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateCommand(t *testing.T) {
	inDir := t.TempDir()
	repoDir := filepath.Join(t.TempDir(), "repo")

	first := testutil.WriteDeb(t, inDir, "zeta.deb", testutil.DebOptions{Control: testutil.Control("zeta", "1.0")})
	second := testutil.WriteDeb(t, inDir, "alpha.deb", testutil.DebOptions{Control: testutil.Control("alpha", "1.0")})

	_, err := run(t, "create", "--repo-dir", repoDir, "--origin", "CLI", "--compressions", "xz", first, second)
	require.NoError(t, err)

	packages, err := os.ReadFile(filepath.Join(repoDir, "Packages"))
	require.NoError(t, err)
	assert.Less(t, strings.Index(string(packages), "Package: zeta"), strings.Index(string(packages), "Package: alpha"))

	for _, name := range []string{"Packages.gz", "Packages.xz", "Release"} {
		_, err := os.Stat(filepath.Join(repoDir, name))
		assert.NoError(t, err, name)
	}

	release, err := os.ReadFile(filepath.Join(repoDir, "Release"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(release), "Origin: CLI\n"))
}

func TestCreateCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	repoDir := filepath.Join(dir, "repo")
	inDir := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(inDir, 0755))
	testutil.WriteDeb(t, inDir, "hello.deb", testutil.DebOptions{Control: testutil.Control("hello", "1.0")})

	cfgPath := filepath.Join(dir, "aptrepo.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"repo_dir: "+repoDir+"\n"+
			"input_dir: "+inDir+"\n"+
			"origin: FromFile\n"+
			"label: FromFile\n"), 0644))

	// Flags set on the command line win over the file
	_, err := run(t, "create", "--config", cfgPath, "--label", "FromFlag")
	require.NoError(t, err)

	release, err := os.ReadFile(filepath.Join(repoDir, "Release"))
	require.NoError(t, err)
	assert.Contains(t, string(release), "Origin: FromFile\n")
	assert.Contains(t, string(release), "Label: FromFlag\n")

	packages, err := os.ReadFile(filepath.Join(repoDir, "Packages"))
	require.NoError(t, err)
	assert.Contains(t, string(packages), "Package: hello\n")
}

func TestCreateCommandErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "create")
	assert.True(t, models.IsKind(err, models.ErrConfig), "missing repo dir: got %v", err)

	_, err = run(t, "create", "--repo-dir", filepath.Join(dir, "repo"), filepath.Join(dir, "missing.deb"))
	assert.True(t, models.IsKind(err, models.ErrInput), "missing package: got %v", err)

	_, err = run(t, "create", "--repo-dir", filepath.Join(dir, "repo"), "--digest", "WHIRLPOOL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.MsgUnknownHashAlgorithm)

	_, err = run(t, "create", "--repo-dir", filepath.Join(dir, "repo"), "--sign",
		"--keyring", filepath.Join(dir, "k"), "--key-id", "ABCD", "--passphrase", "x", "--passphrase-file", "y")
	assert.True(t, models.IsKind(err, models.ErrConfig), "both passphrases: got %v", err)
}

func TestDigestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	out, err := run(t, "digest", path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad  "+path+"\n", out)

	out, err = run(t, "digest", "--algorithm", "md5", path)
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72  "+path+"\n", out)

	_, err = run(t, "digest", "--algorithm", "crc32", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), models.MsgUnknownHashAlgorithm)
}
