// Package testutil builds package archives and OpenPGP keyrings for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
)

// Member is a raw ar member
type Member struct {
	Name string
	Body []byte
}

// DebOptions controls how BuildDeb lays out a package archive
type DebOptions struct {
	// Control file contents
	Control string
	// Name of the control archive member, "control.tar.gz" when empty
	ControlMember string
	// Path of the control file inside the control archive, "./control" when empty
	ControlPath string
	// Leave the control file out of the control archive
	OmitControl bool
	// Leave the control archive out of the package
	OmitControlArchive bool
	// Members written before the control archive, after debian-binary
	Before []Member
	// Size of the data.tar.gz payload
	DataSize int
}

// BuildDeb returns the bytes of a minimal .deb archive
func BuildDeb(opts DebOptions) ([]byte, error) {
	memberName := opts.ControlMember
	if memberName == "" {
		memberName = "control.tar.gz"
	}
	controlPath := opts.ControlPath
	if controlPath == "" {
		controlPath = "./control"
	}

	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	if err := w.WriteGlobalHeader(); err != nil {
		return nil, err
	}

	if err := addMember(w, "debian-binary", []byte("2.0\n")); err != nil {
		return nil, err
	}

	for _, m := range opts.Before {
		if err := addMember(w, m.Name, m.Body); err != nil {
			return nil, err
		}
	}

	if !opts.OmitControlArchive {
		files := map[string][]byte{"./md5sums": []byte("")}
		order := []string{"./", "./md5sums"}
		if !opts.OmitControl {
			files[controlPath] = []byte(opts.Control)
			order = append(order, controlPath)
		}
		controlTar, err := TarGz(order, files)
		if err != nil {
			return nil, err
		}
		if err := addMember(w, memberName, controlTar); err != nil {
			return nil, err
		}
	}

	data, err := TarGz([]string{"./usr/share/doc/payload"}, map[string][]byte{
		"./usr/share/doc/payload": bytes.Repeat([]byte{'x'}, opts.DataSize),
	})
	if err != nil {
		return nil, err
	}
	if err := addMember(w, "data.tar.gz", data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// TarGz builds a gzip-compressed tar. Names ending in "/" become directories.
func TarGz(order []string, files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, name := range order {
		hdr := &tar.Header{Name: name, ModTime: time.Unix(0, 0)}
		if name[len(name)-1] == '/' {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0755
		} else {
			hdr.Typeflag = tar.TypeReg
			hdr.Mode = 0644
			hdr.Size = int64(len(files[name]))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write(files[name]); err != nil {
				return nil, err
			}
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addMember(w *ar.Writer, name string, body []byte) error {
	hdr := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: time.Unix(0, 0),
	}
	if err := w.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// Control returns a control file for name and version
func Control(name, version string) string {
	return "Package: " + name + "\n" +
		"Version: " + version + "\n" +
		"Architecture: amd64\n" +
		"Maintainer: Test <test@example.com>\n" +
		"Description: " + name + " test package\n" +
		" Built for tests.\n"
}

// WriteDeb writes a .deb built from opts into dir and returns its path
func WriteDeb(t testing.TB, dir, name string, opts DebOptions) string {
	t.Helper()
	data, err := BuildDeb(opts)
	if err != nil {
		t.Fatalf("failed to build deb: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write deb: %v", err)
	}
	return path
}

// GenerateKey creates an EdDSA signing key
func GenerateKey(t testing.TB) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("Test Repo", "test", "repo@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return entity
}

// WriteKeyring serializes entity's secret key into dir. A non-empty
// passphrase encrypts the private keys first.
func WriteKeyring(t testing.TB, dir string, entity *openpgp.Entity, passphrase string, armored bool) string {
	t.Helper()

	var raw bytes.Buffer
	if passphrase != "" {
		if err := entity.EncryptPrivateKeys([]byte(passphrase), nil); err != nil {
			t.Fatalf("failed to encrypt key: %v", err)
		}
		if err := entity.SerializePrivateWithoutSigning(&raw, nil); err != nil {
			t.Fatalf("failed to serialize key: %v", err)
		}
		if err := entity.DecryptPrivateKeys([]byte(passphrase)); err != nil {
			t.Fatalf("failed to decrypt key: %v", err)
		}
	} else if err := entity.SerializePrivate(&raw, nil); err != nil {
		t.Fatalf("failed to serialize key: %v", err)
	}

	data := raw.Bytes()
	name := "secring.gpg"
	if armored {
		var buf bytes.Buffer
		w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
		if err != nil {
			t.Fatalf("armor encode failed: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("armor write failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("armor close failed: %v", err)
		}
		data = buf.Bytes()
		name = "secring.asc"
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("failed to write keyring: %v", err)
	}
	return path
}

// PublicKeyring returns a keyring containing only the public half of entity
func PublicKeyring(t testing.TB, entity *openpgp.Entity) openpgp.EntityList {
	t.Helper()
	var buf bytes.Buffer
	if err := entity.Serialize(&buf); err != nil {
		t.Fatalf("failed to serialize public key: %v", err)
	}
	list, err := openpgp.ReadKeyRing(&buf)
	if err != nil {
		t.Fatalf("failed to read public key: %v", err)
	}
	return list
}
