package signer

import (
	"bufio"
	"bytes"
	"crypto"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/utils"
	"github.com/sirupsen/logrus"
)

// DefaultDigest is used when no signing digest is configured
const DefaultDigest = "SHA256"

// Digests OpenPGP signatures can be made with here. Other configured names
// are replaced by SHA256.
var signableHashes = map[crypto.Hash]bool{
	crypto.SHA256: true,
	crypto.SHA384: true,
	crypto.SHA512: true,
}

// GPGSigner implements Signer using an OpenPGP secret keyring
type GPGSigner struct {
	entity *openpgp.Entity
	key    openpgp.Key
	config *packet.Config
}

// NewGPGSigner loads the key identified by cfg.KeyID from cfg.Keyring and
// unlocks it. The digest name is checked before any file is touched.
func NewGPGSigner(cfg models.SigningConfig) (*GPGSigner, error) {
	digest := cfg.Digest
	if digest == "" {
		digest = DefaultDigest
	}
	algo, err := utils.LookupAlgorithm(digest)
	if err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	passphrase := cfg.Passphrase
	if cfg.PassphraseFile != "" {
		passphrase, err = ReadPassphraseFile(cfg.PassphraseFile)
		if err != nil {
			return nil, err
		}
	}

	keyring, err := readKeyring(cfg.Keyring)
	if err != nil {
		return nil, err
	}

	entity, keyID, err := findKey(keyring, cfg.KeyID)
	if err != nil {
		return nil, err
	}

	if err := entity.DecryptPrivateKeys([]byte(passphrase)); err != nil {
		return nil, models.WrapError(models.ErrSigning, cfg.Keyring, "failed to decrypt private key", err)
	}

	key, ok := entity.SigningKeyById(time.Now(), keyID)
	if !ok || key.PrivateKey == nil {
		return nil, models.WrapError(models.ErrSigning, cfg.Keyring, "key cannot sign",
			fmt.Errorf("no usable signing key for %s", cfg.KeyID))
	}

	hash := algo.Hash
	if !signableHashes[hash] {
		logrus.Warnf("Digest %s cannot be used for OpenPGP signatures, using %s", algo.Name, DefaultDigest)
		hash = crypto.SHA256
	}

	logrus.Debugf("Signing with key %s using %s", key.PublicKey.KeyIdString(), hash)

	return &GPGSigner{
		entity: entity,
		key:    key,
		config: &packet.Config{
			DefaultHash:  hash,
			SigningKeyId: key.PublicKey.KeyId,
		},
	}, nil
}

// ValidateConfig checks that signing parameters are complete and
// unambiguous without reading any key material
func ValidateConfig(cfg models.SigningConfig) error {
	if cfg.Keyring == "" {
		return models.NewError(models.ErrConfig, "keyring is required for signing")
	}
	if cfg.KeyID == "" {
		return models.NewError(models.ErrConfig, "key id is required for signing")
	}
	if cfg.Passphrase != "" && cfg.PassphraseFile != "" {
		return models.NewError(models.ErrConfig, "passphrase and passphrase file are mutually exclusive")
	}
	if cfg.Passphrase == "" && cfg.PassphraseFile == "" {
		return models.NewError(models.ErrConfig, "a passphrase or passphrase file is required for signing")
	}

	info, err := os.Stat(cfg.Keyring)
	if err != nil {
		return models.WrapError(models.ErrConfig, cfg.Keyring, "keyring not found", err)
	}
	if !info.Mode().IsRegular() {
		return models.WrapError(models.ErrConfig, cfg.Keyring, "keyring is not a regular file", nil)
	}
	return nil
}

// ReadPassphraseFile returns the first line of path
func ReadPassphraseFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", models.WrapError(models.ErrIO, path, "cannot read passphrase file", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", models.WrapError(models.ErrIO, path, "cannot read passphrase file", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readKeyring(path string) (openpgp.EntityList, error) {
	// Read private key file
	keyFile, err := os.Open(path)
	if err != nil {
		return nil, models.WrapError(models.ErrIO, path, "cannot open keyring", err)
	}
	defer keyFile.Close()

	// Try to parse as armored key first
	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		// Try as binary key
		if _, seekErr := keyFile.Seek(0, io.SeekStart); seekErr != nil {
			return nil, models.WrapError(models.ErrIO, path, "cannot read keyring", seekErr)
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, models.WrapError(models.ErrSigning, path, "failed to read keyring", err)
		}
	}

	if len(entityList) == 0 {
		return nil, models.WrapError(models.ErrSigning, path, "no keys found in keyring", nil)
	}
	return entityList, nil
}

// normalizeKeyID accepts short, long and fingerprint forms with or without
// a 0x prefix and spaces
func normalizeKeyID(id string) string {
	id = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(id), " ", ""))
	return strings.TrimPrefix(id, "0X")
}

func keyMatches(pk *packet.PublicKey, id string) bool {
	return id == pk.KeyIdString() ||
		id == pk.KeyIdShortString() ||
		id == strings.ToUpper(hex.EncodeToString(pk.Fingerprint))
}

// findKey returns the entity holding a secret key matching id and the
// numeric id to sign with. A primary key match returns 0 so the entity's
// preferred signing key is used.
func findKey(keyring openpgp.EntityList, id string) (*openpgp.Entity, uint64, error) {
	want := normalizeKeyID(id)

	for _, entity := range keyring {
		if entity.PrivateKey != nil && keyMatches(entity.PrimaryKey, want) {
			return entity, 0, nil
		}
		for _, sub := range entity.Subkeys {
			if sub.PrivateKey != nil && keyMatches(sub.PublicKey, want) {
				return entity, sub.PublicKey.KeyId, nil
			}
		}
	}

	return nil, 0, models.WrapError(models.ErrSigning, "", "secret key not found",
		fmt.Errorf("no secret key %s in keyring", id))
}

// SignDetached creates a binary detached signature (for Release.gpg)
func (s *GPGSigner) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	if err := openpgp.DetachSign(&buf, s.entity, bytes.NewReader(data), s.config); err != nil {
		return nil, fmt.Errorf("failed to create detached signature: %w", err)
	}

	return buf.Bytes(), nil
}

// SignCleartext creates a cleartext signature (for InRelease)
func (s *GPGSigner) SignCleartext(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := clearsign.Encode(&buf, s.key.PrivateKey, s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to start cleartext signature: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	return buf.Bytes(), nil
}

// GetPublicKey returns the public key in armored format
func (s *GPGSigner) GetPublicKey() ([]byte, error) {
	var buf bytes.Buffer

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return nil, err
	}

	err = s.entity.Serialize(w)
	if err != nil {
		w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// KeyID returns the long id of the signing key
func (s *GPGSigner) KeyID() string {
	return s.key.PublicKey.KeyIdString()
}

// Hash returns the digest signatures are made with
func (s *GPGSigner) Hash() crypto.Hash {
	return s.config.DefaultHash
}

var _ Signer = (*GPGSigner)(nil)
