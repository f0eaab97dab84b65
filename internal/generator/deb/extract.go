package deb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ralt/aptrepo/internal/archive"
	"github.com/ralt/aptrepo/internal/control"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	controlArchiveName = "control.tar.gz"
	controlFileName    = "./control"

	// MsgMissingControlFile is reported when the control archive has no control file
	MsgMissingControlFile = "missing control file"

	maxControlSize = 16 << 20
)

// Fields appended to every index stanza from the archive itself
var generatedFields = map[string]bool{
	"Filename": true,
	"Size":     true,
	"MD5sum":   true,
	"SHA1":     true,
	"SHA256":   true,
	"SHA512":   true,
}

// ParsePackage reads the control metadata and digests of a .deb file
func ParsePackage(debPath string) (*models.PackageEntry, error) {
	data, err := extractControl(debPath)
	if err != nil {
		return nil, err
	}

	fields, err := control.Parse(data)
	if err != nil {
		return nil, withPath(err, debPath)
	}

	checksums, err := utils.CalculateChecksums(debPath)
	if err != nil {
		return nil, err
	}

	entry := &models.PackageEntry{
		Filename:   filepath.Base(debPath),
		Size:       checksums.Size,
		MD5:        checksums.MD5,
		SHA1:       checksums.SHA1,
		SHA256:     checksums.SHA256,
		SHA512:     checksums.SHA512,
		SourcePath: debPath,
	}

	for _, f := range fields {
		if generatedFields[f.Name] {
			logrus.WithField("package", debPath).Warnf("Dropping control field %s, it is computed from the archive", f.Name)
			continue
		}
		entry.Fields = append(entry.Fields, f)
	}

	logrus.WithField("package", debPath).Debugf("Parsed %s %s (%d bytes)", entry.Name(), entry.Version(), entry.Size)
	return entry, nil
}

// extractControl returns the raw ./control file of a .deb package
func extractControl(debPath string) ([]byte, error) {
	f, err := os.Open(debPath)
	if err != nil {
		return nil, models.WrapError(models.ErrIO, debPath, "cannot open package", err)
	}
	defer f.Close()

	outer, err := archive.NewArReader(f)
	if err != nil {
		if errors.Is(err, archive.ErrNotArchive) {
			return nil, models.WrapError(models.ErrFormat, debPath, "not a Debian package archive", err)
		}
		return nil, models.WrapError(models.ErrIO, debPath, "cannot read package", err)
	}

	member, err := archive.Find(outer, func(e *archive.Entry) bool {
		return e.Name == controlArchiveName
	})
	if err != nil {
		return nil, models.WrapError(models.ErrFormat, debPath, "corrupt ar archive", err)
	}
	if member == nil {
		return nil, models.WrapError(models.ErrFormat, debPath, models.MsgMissingControlArchive,
			fmt.Errorf("no %s member", controlArchiveName))
	}

	return extractControlFromTar(debPath, io.LimitReader(outer, member.Size))
}

// extractControlFromTar finds ./control inside the control archive
func extractControlFromTar(debPath string, r io.Reader) ([]byte, error) {
	inner, err := archive.NewTarGzReader(r)
	if err != nil {
		return nil, models.WrapError(models.ErrFormat, debPath, "corrupt control archive", err)
	}
	defer inner.Close()

	entry, err := archive.Find(inner, func(e *archive.Entry) bool {
		return e.Regular && path.Clean(e.Name) == path.Clean(controlFileName)
	})
	if err != nil {
		return nil, models.WrapError(models.ErrFormat, debPath, "corrupt control archive", err)
	}
	if entry == nil {
		return nil, models.WrapError(models.ErrFormat, debPath, MsgMissingControlFile,
			fmt.Errorf("no %s in %s", controlFileName, controlArchiveName))
	}
	if entry.Size > maxControlSize {
		return nil, models.WrapError(models.ErrFormat, debPath, "control file too large",
			fmt.Errorf("%d bytes", entry.Size))
	}

	data, err := io.ReadAll(inner)
	if err != nil {
		return nil, models.WrapError(models.ErrFormat, debPath, "corrupt control archive", err)
	}
	return data, nil
}

func withPath(err error, p string) error {
	var repoErr *models.AptRepoError
	if errors.As(err, &repoErr) && repoErr.Path == "" {
		return models.WrapError(repoErr.Kind, p, repoErr.Msg, repoErr.Err)
	}
	return err
}
