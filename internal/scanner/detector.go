package scanner

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Debian packages start with "!<arch>\ndebian"
var debMagic = []byte("!<arch>\ndebian")

// IsDebPackage reports whether path looks like a Debian package, by magic
// bytes or by its .deb extension
func IsDebPackage(path string) (bool, error) {
	if filepath.Ext(path) == ".deb" {
		return true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(debMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}

	return bytes.Equal(header[:n], debMagic), nil
}
