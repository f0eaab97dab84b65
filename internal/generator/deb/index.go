package deb

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/ralt/aptrepo/internal/control"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/utils"
)

// PackagesFileName is the uncompressed index name
const PackagesFileName = "Packages"

// PackageIndex accumulates entries in registration order
type PackageIndex struct {
	entries []*models.PackageEntry
}

// NewPackageIndex creates an empty index
func NewPackageIndex() *PackageIndex {
	return &PackageIndex{}
}

// Add appends an entry
func (p *PackageIndex) Add(entry *models.PackageEntry) {
	p.entries = append(p.entries, entry)
}

// Entries returns the registered entries
func (p *PackageIndex) Entries() []*models.PackageEntry {
	return p.entries
}

// Render serializes the index. Each stanza carries the control fields in
// their original order followed by the file fields, and ends with a blank
// line. An empty index renders to no bytes.
func (p *PackageIndex) Render() []byte {
	var buf bytes.Buffer

	for _, entry := range p.entries {
		buf.Write(control.Format(entry.Fields))

		fmt.Fprintf(&buf, "Filename: %s\n", entry.Filename)
		fmt.Fprintf(&buf, "Size: %d\n", entry.Size)
		fmt.Fprintf(&buf, "MD5sum: %s\n", entry.MD5)
		fmt.Fprintf(&buf, "SHA1: %s\n", entry.SHA1)
		fmt.Fprintf(&buf, "SHA256: %s\n", entry.SHA256)
		fmt.Fprintf(&buf, "SHA512: %s\n", entry.SHA512)

		// Blank line between packages
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// Write writes Packages, Packages.gz and one file per extra compression
// into dir. It returns the names written, in Release order.
func (p *PackageIndex) Write(dir string, extra []string) ([]string, error) {
	data := p.Render()

	names := []string{PackagesFileName}
	outputs := map[string][]byte{PackagesFileName: data}

	for _, name := range append([]string{"gz"}, extra...) {
		c, err := utils.LookupCompression(name)
		if err != nil {
			return nil, models.WrapError(models.ErrConfig, "", "invalid compression", err)
		}
		fileName := PackagesFileName + c.Suffix
		if _, dup := outputs[fileName]; dup {
			continue
		}
		compressed, err := c.Compress(data)
		if err != nil {
			return nil, models.WrapError(models.ErrIO, filepath.Join(dir, fileName), "compression failed", err)
		}
		names = append(names, fileName)
		outputs[fileName] = compressed
	}

	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := utils.WriteFile(target, outputs[name], 0644); err != nil {
			return nil, models.WrapError(models.ErrIO, target, "cannot write index", err)
		}
	}

	return names, nil
}
