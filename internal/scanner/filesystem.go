package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct {
	// Absolute paths of directories never descended into
	exclude map[string]bool
}

// NewFileSystemScanner creates a new filesystem scanner that skips the
// excluded directories
func NewFileSystemScanner(exclude ...string) *FileSystemScanner {
	s := &FileSystemScanner{exclude: make(map[string]bool)}
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			s.exclude[abs] = true
		}
	}
	return s
}

// Scan recursively scans a directory for packages
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedPackage, error) {
	var packages []ScannedPackage

	// WalkDir visits entries in lexical order
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if abs, absErr := filepath.Abs(path); absErr == nil && s.exclude[abs] && path != dir {
				logrus.Debugf("Skipping excluded directory %s", path)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		isDeb, err := IsDebPackage(path)
		if err != nil {
			logrus.Warnf("Failed to detect type for %s: %v", path, err)
			return nil
		}
		if !isDeb {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		logrus.Debugf("Found deb package: %s", path)

		packages = append(packages, ScannedPackage{
			Path: path,
			Size: info.Size(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Infof("Found %d packages in %s", len(packages), dir)
	return packages, nil
}
