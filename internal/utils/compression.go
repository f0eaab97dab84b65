package utils

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression describes an index compression and the file suffix it uses
type Compression struct {
	Name       string
	Suffix     string
	Compress   func([]byte) ([]byte, error)
	Decompress func([]byte) ([]byte, error)
}

var compressions = map[string]Compression{
	"gz":  {Name: "gz", Suffix: ".gz", Compress: GzipCompress, Decompress: GzipDecompress},
	"xz":  {Name: "xz", Suffix: ".xz", Compress: XzCompress, Decompress: XzDecompress},
	"zst": {Name: "zst", Suffix: ".zst", Compress: ZstdCompress, Decompress: ZstdDecompress},
}

// LookupCompression resolves a compression by name ("gz", "xz", "zst")
func LookupCompression(name string) (Compression, error) {
	c, ok := compressions[name]
	if !ok {
		return Compression{}, fmt.Errorf("unknown compression %q", name)
	}
	return c, nil
}

// GzipCompress compresses data using gzip. The header carries no name or
// modification time, so identical input yields identical output.
func GzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// GzipDecompress decompresses gzip data
func GzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// XzCompress compresses data using xz
func XzCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// XzDecompress decompresses xz data
func XzDecompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// ZstdCompress compresses data using zstd
func ZstdCompress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	return enc.EncodeAll(data, nil), nil
}

// ZstdDecompress decompresses zstd data
func ZstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}
