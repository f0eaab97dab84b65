package scanner

import "context"

// ScannedPackage represents a package file found during scanning
type ScannedPackage struct {
	Path string
	Size int64
}

// Scanner interface for finding package archives
type Scanner interface {
	// Scan recursively scans a directory for packages, in lexical path order
	Scan(ctx context.Context, dir string) ([]ScannedPackage, error)
}
