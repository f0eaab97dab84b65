package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ralt/aptrepo/internal/models"
)

// CopyFile copies a file from src to dst, replacing dst atomically
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, srcFile); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	return commitTemp(tmp, dst, 0644)
}

// WriteFile writes data to path through a temporary file in the same
// directory, so readers never observe a partially written file
func WriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	return commitTemp(tmp, path, perm)
}

func commitTemp(tmp *os.File, path string, perm os.FileMode) error {
	tmpName := tmp.Name()
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// EnsureDir creates dir if it does not exist. The parent must already exist.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	parent := filepath.Dir(filepath.Clean(dir))
	parentInfo, err := os.Stat(parent)
	if err != nil {
		return fmt.Errorf("parent directory %s: %w", parent, err)
	}
	if !parentInfo.IsDir() {
		return fmt.Errorf("parent %s is not a directory", parent)
	}

	return os.Mkdir(dir, 0755)
}

// ShouldCopyPackage determines if a package archive needs to be copied into
// repoDir. It returns the destination path and whether a copy is needed.
// An existing destination with the same size and SHA256 is left alone.
func ShouldCopyPackage(entry *models.PackageEntry, repoDir string) (string, bool, error) {
	srcPath := filepath.Clean(entry.SourcePath)
	dstPath := filepath.Clean(filepath.Join(repoDir, entry.Filename))

	srcAbs, err := filepath.Abs(srcPath)
	if err != nil {
		return dstPath, false, err
	}
	dstAbs, err := filepath.Abs(dstPath)
	if err != nil {
		return dstPath, false, err
	}

	// Same path = no copy needed
	if srcAbs == dstAbs {
		return dstPath, false, nil
	}

	dstInfo, err := os.Stat(dstPath)
	if err != nil {
		if os.IsNotExist(err) {
			return dstPath, true, nil
		}
		return dstPath, false, fmt.Errorf("cannot stat destination: %w", err)
	}

	if !dstInfo.Mode().IsRegular() {
		return dstPath, false, fmt.Errorf("destination %s is not a regular file", dstPath)
	}

	// Different sizes = need copy
	if dstInfo.Size() != entry.Size {
		return dstPath, true, nil
	}

	dstSum, err := Digest("SHA256", dstPath)
	if err != nil {
		return dstPath, true, nil
	}

	return dstPath, dstSum != entry.SHA256, nil
}
