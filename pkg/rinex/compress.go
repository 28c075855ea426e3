package rinex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
)

// compressionExts are the single-file compression formats that can be
// handled by archiver.
var compressionExts = map[string]bool{
	".gz":  true,
	".bz2": true,
	".xz":  true,
	".zst": true,
	".lz4": true,
	".sz":  true,
}

// IsCompressed returns true if the file is compressed, judged by its extension.
func IsCompressed(filename string) bool {
	return compressionExts[strings.ToLower(filepath.Ext(filename))]
}

// DecompressedName returns the name of the file Decompress writes for path.
func DecompressedName(path string) string {
	if !IsCompressed(path) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Decompress decompresses a compressed file next to it and returns the
// decompressed filename. Uncompressed files are returned as they are.
// The compressed file is kept. An existing target file is not overwritten.
func Decompress(path string) (string, error) {
	if !IsCompressed(path) {
		return path, nil
	}

	dst := DecompressedName(path)
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("decompress %s: %s: %w", path, dst, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := archiver.DecompressFile(path, dst); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("decompress %s: %v", path, err)
	}
	return dst, nil
}

// Compress a file using the gzip format and return the new filename.
// The source file will be removed if the compression finishes without errors.
func Compress(path string) (string, error) {
	if IsCompressed(path) {
		return path, nil
	}

	dst := path + ".gz"
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("compress %s: %s: %w", path, dst, os.ErrExist)
	}
	if err := archiver.CompressFile(path, dst); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("compress %s: %v", path, err)
	}
	if err := os.Remove(path); err != nil {
		return dst, err
	}
	return dst, nil
}
