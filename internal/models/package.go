package models

// Field is a single control field as it appeared in the control file
type Field struct {
	Name  string
	Value string
}

// PackageEntry represents one package archive in the index
type PackageEntry struct {
	// Control fields in their original order
	Fields []Field

	// File information
	Filename string
	Size     int64
	MD5      string
	SHA1     string
	SHA256   string
	SHA512   string

	// Path of the archive on disk, not rendered
	SourcePath string
}

// Get returns the value of the first field with the given name
func (p *PackageEntry) Get(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Name returns the Package field
func (p *PackageEntry) Name() string {
	v, _ := p.Get("Package")
	return v
}

// Version returns the Version field
func (p *PackageEntry) Version() string {
	v, _ := p.Get("Version")
	return v
}

// Architecture returns the Architecture field
func (p *PackageEntry) Architecture() string {
	v, _ := p.Get("Architecture")
	return v
}

// ReleaseInfo describes one index file listed in the Release manifest
type ReleaseInfo struct {
	Path   string
	Size   int64
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
}
