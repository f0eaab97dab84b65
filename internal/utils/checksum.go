package utils

import (
	"crypto"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ralt/aptrepo/internal/models"
	"golang.org/x/crypto/ripemd160"
)

// Algorithm describes a named digest algorithm
type Algorithm struct {
	Name string
	Hash crypto.Hash
	New  func() hash.Hash
}

var algorithms = map[string]Algorithm{
	"MD5":       {Name: "MD5", Hash: crypto.MD5, New: md5.New},
	"SHA1":      {Name: "SHA1", Hash: crypto.SHA1, New: sha1.New},
	"RIPEMD160": {Name: "RIPEMD160", Hash: crypto.RIPEMD160, New: ripemd160.New},
	"SHA224":    {Name: "SHA224", Hash: crypto.SHA224, New: sha256.New224},
	"SHA256":    {Name: "SHA256", Hash: crypto.SHA256, New: sha256.New},
	"SHA384":    {Name: "SHA384", Hash: crypto.SHA384, New: sha512.New384},
	"SHA512":    {Name: "SHA512", Hash: crypto.SHA512, New: sha512.New},
}

// LookupAlgorithm resolves a digest name. Names are case-insensitive and a
// dash is ignored, so "sha-256" and "SHA256" are the same algorithm.
func LookupAlgorithm(name string) (Algorithm, error) {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	algo, ok := algorithms[key]
	if !ok {
		return Algorithm{}, models.WrapError(models.ErrConfig, "", models.MsgUnknownHashAlgorithm,
			fmt.Errorf("%q", name))
	}
	return algo, nil
}

// AlgorithmNames returns the supported digest names, sorted
func AlgorithmNames() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Checksum contains the default checksums for a file
type Checksum struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
	Size   int64
}

// CalculateChecksums calculates all default checksums for a file in a single pass
func CalculateChecksums(path string) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.WrapError(models.ErrDigest, path, "cannot open file", err)
	}
	defer f.Close()

	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()
	sha512Hash := sha512.New()

	// Use MultiWriter to calculate all hashes at once
	multiWriter := io.MultiWriter(md5Hash, sha1Hash, sha256Hash, sha512Hash)

	size, err := io.Copy(multiWriter, f)
	if err != nil {
		return nil, models.WrapError(models.ErrDigest, path, "cannot read file", err)
	}

	return &Checksum{
		MD5:    hex.EncodeToString(md5Hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		SHA512: hex.EncodeToString(sha512Hash.Sum(nil)),
		Size:   size,
	}, nil
}

// DefaultDigests returns the md5, sha1, sha256 and sha512 hex digests of a file,
// keyed by lowercase algorithm name
func DefaultDigests(path string) (map[string]string, error) {
	sums, err := CalculateChecksums(path)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"md5":    sums.MD5,
		"sha1":   sums.SHA1,
		"sha256": sums.SHA256,
		"sha512": sums.SHA512,
	}, nil
}

// Digest computes the hex digest of a file with the named algorithm
func Digest(algorithm, path string) (string, error) {
	algo, err := LookupAlgorithm(algorithm)
	if err != nil {
		return "", models.WrapError(models.ErrDigest, path, models.MsgUnknownHashAlgorithm, fmt.Errorf("%q", algorithm))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", models.WrapError(models.ErrDigest, path, "cannot open file", err)
	}
	defer f.Close()

	h := algo.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", models.WrapError(models.ErrDigest, path, "cannot read file", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes computes the hex digest of data with the named algorithm
func DigestBytes(algorithm string, data []byte) (string, error) {
	algo, err := LookupAlgorithm(algorithm)
	if err != nil {
		return "", err
	}
	h := algo.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
