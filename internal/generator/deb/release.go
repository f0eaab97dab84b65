package deb

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/ralt/aptrepo/internal/control"
	"github.com/ralt/aptrepo/internal/models"
	"github.com/ralt/aptrepo/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ReleaseFileName is the unsigned manifest name
const ReleaseFileName = "Release"

// ReleaseBuilder assembles the Release manifest over the index files
type ReleaseBuilder struct {
	meta  models.ReleaseMetadata
	files []models.ReleaseInfo
}

// NewReleaseBuilder creates a builder. Empty metadata fields are omitted.
func NewReleaseBuilder(meta models.ReleaseMetadata) *ReleaseBuilder {
	return &ReleaseBuilder{meta: meta}
}

// AddIndexedFile digests dir/relPath and lists it under relPath
func (r *ReleaseBuilder) AddIndexedFile(dir, relPath string) error {
	info, err := releaseFileInfo(dir, relPath)
	if err != nil {
		return err
	}
	r.files = append(r.files, *info)
	return nil
}

// AddInfo lists an already digested file
func (r *ReleaseBuilder) AddInfo(info models.ReleaseInfo) {
	r.files = append(r.files, info)
}

// Files returns the listed files in insertion order
func (r *ReleaseBuilder) Files() []models.ReleaseInfo {
	return r.files
}

// Render creates the Release text. These bytes are exactly what gets signed.
func (r *ReleaseBuilder) Render() []byte {
	var buf bytes.Buffer

	for _, f := range []models.Field{
		{Name: "Origin", Value: r.meta.Origin},
		{Name: "Label", Value: r.meta.Label},
		{Name: "Suite", Value: r.meta.Suite},
		{Name: "Codename", Value: r.meta.Codename},
		{Name: "Description", Value: r.meta.Description},
	} {
		if f.Value != "" {
			control.WriteField(&buf, f.Name, f.Value)
		}
	}

	sections := []struct {
		name  string
		value func(models.ReleaseInfo) string
	}{
		{"MD5Sum", func(i models.ReleaseInfo) string { return i.MD5 }},
		{"SHA1", func(i models.ReleaseInfo) string { return i.SHA1 }},
		{"SHA256", func(i models.ReleaseInfo) string { return i.SHA256 }},
		{"SHA512", func(i models.ReleaseInfo) string { return i.SHA512 }},
	}

	for _, section := range sections {
		fmt.Fprintf(&buf, "%s:\n", section.name)
		for _, file := range r.files {
			fmt.Fprintf(&buf, " %s %d %s\n", section.value(file), file.Size, file.Path)
		}
	}

	return buf.Bytes()
}

// Write writes the Release file into dir and returns its contents
func (r *ReleaseBuilder) Write(dir string) ([]byte, error) {
	data := r.Render()
	target := filepath.Join(dir, ReleaseFileName)
	if err := utils.WriteFile(target, data, 0644); err != nil {
		return nil, models.WrapError(models.ErrIO, target, "cannot write Release", err)
	}
	return data, nil
}

// CalculateReleaseFileInfos digests files under basePath with up to workers
// goroutines. The result keeps the order of files.
func CalculateReleaseFileInfos(ctx context.Context, basePath string, files []string, workers int) ([]models.ReleaseInfo, error) {
	infos := make([]models.ReleaseInfo, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := releaseFileInfo(basePath, file)
			if err != nil {
				return err
			}
			infos[i] = *info
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return infos, nil
}

func releaseFileInfo(basePath, relPath string) (*models.ReleaseInfo, error) {
	checksum, err := utils.CalculateChecksums(filepath.Join(basePath, relPath))
	if err != nil {
		return nil, err
	}
	return &models.ReleaseInfo{
		Path:   filepath.ToSlash(relPath),
		Size:   checksum.Size,
		MD5:    checksum.MD5,
		SHA1:   checksum.SHA1,
		SHA256: checksum.SHA256,
		SHA512: checksum.SHA512,
	}, nil
}
