// Package archive gives sequential access to the entries of the container
// formats found inside Debian package archives.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/klauspost/compress/gzip"
)

// ErrNotArchive is returned when data does not start with the expected magic
var ErrNotArchive = errors.New("not an ar archive")

// Entry describes one member of a container
type Entry struct {
	Name    string
	Size    int64
	Regular bool
}

// Container walks entries in order. Read returns the body of the entry
// most recently returned by Next.
type Container interface {
	io.Reader
	Next() (*Entry, error)
}

const arMagic = "!<arch>\n"

// ArReader reads ar archives such as .deb files
type ArReader struct {
	r *ar.Reader
}

// NewArReader checks the global header of r and returns a reader positioned
// at the first member
func NewArReader(r io.Reader) (*ArReader, error) {
	magic := make([]byte, len(arMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotArchive
		}
		return nil, err
	}
	if !bytes.Equal(magic, []byte(arMagic)) {
		return nil, ErrNotArchive
	}

	// ar.NewReader discards the global header itself
	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(-int64(len(magic)), io.SeekCurrent); err != nil {
			return nil, err
		}
		return &ArReader{r: ar.NewReader(r)}, nil
	}
	return &ArReader{r: ar.NewReader(io.MultiReader(bytes.NewReader(magic), r))}, nil
}

// Next advances to the next member. It returns io.EOF when no members remain
// and io.ErrUnexpectedEOF if a header is truncated.
func (a *ArReader) Next() (*Entry, error) {
	hdr, err := a.r.Next()
	if err != nil {
		return nil, err
	}
	// GNU ar terminates names with '/'
	name := strings.TrimSuffix(strings.TrimSpace(hdr.Name), "/")
	return &Entry{Name: name, Size: hdr.Size, Regular: true}, nil
}

func (a *ArReader) Read(p []byte) (int, error) {
	return a.r.Read(p)
}

// TarGzReader reads gzip-compressed tar archives such as control.tar.gz
type TarGzReader struct {
	gz *gzip.Reader
	tr *tar.Reader
}

// NewTarGzReader opens a gzip stream over r. Close releases the decompressor.
func NewTarGzReader(r io.Reader) (*TarGzReader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid gzip stream: %w", err)
	}
	return &TarGzReader{gz: gz, tr: tar.NewReader(gz)}, nil
}

// Next advances to the next tar entry, returning io.EOF at the end
func (t *TarGzReader) Next() (*Entry, error) {
	hdr, err := t.tr.Next()
	if err != nil {
		return nil, err
	}
	return &Entry{
		Name:    hdr.Name,
		Size:    hdr.Size,
		Regular: hdr.Typeflag == tar.TypeReg || hdr.Typeflag == tar.TypeRegA,
	}, nil
}

func (t *TarGzReader) Read(p []byte) (int, error) {
	return t.tr.Read(p)
}

// Close closes the gzip stream
func (t *TarGzReader) Close() error {
	return t.gz.Close()
}

// Find advances c until an entry satisfying match is found. Scanning stops
// at the first match. It returns nil, nil if the container has no match.
func Find(c Container, match func(*Entry) bool) (*Entry, error) {
	for {
		entry, err := c.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if match(entry) {
			return entry, nil
		}
	}
}
