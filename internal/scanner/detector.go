package scanner

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/distgen/internal/models"
)

// Magic bytes for archive detection
var (
	// Zip local file header, used by wheels, eggs and zip sdists
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

	// Gzip magic bytes (.tar.gz sdists)
	gzipMagic = []byte{0x1F, 0x8B}

	// Zstandard magic bytes (.tar.zst sdists)
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

	// XZ magic bytes (.tar.xz sdists)
	xzMagic = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}

	// POSIX tar magic at offset 257
	tarMagic = []byte("ustar")
)

// DetectKind determines the distribution kind from the file name, confirmed
// by magic bytes so that a stray file with the right extension is ignored
func DetectKind(path string) (models.ArtifactKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.KindUnknown, err
	}
	defer f.Close()

	// Read first 512 bytes for magic byte detection
	header := make([]byte, 512)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return models.KindUnknown, err
	}
	header = header[:n]

	basename := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(basename, ".whl"):
		if bytes.HasPrefix(header, zipMagic) {
			return models.KindWheel, nil
		}
	case strings.HasSuffix(basename, ".egg"):
		if bytes.HasPrefix(header, zipMagic) {
			return models.KindEgg, nil
		}
	case strings.HasSuffix(basename, ".tar.gz"), strings.HasSuffix(basename, ".tgz"):
		if bytes.HasPrefix(header, gzipMagic) {
			return models.KindSdist, nil
		}
	case strings.HasSuffix(basename, ".tar.xz"):
		if bytes.HasPrefix(header, xzMagic) {
			return models.KindSdist, nil
		}
	case strings.HasSuffix(basename, ".tar.zst"):
		if bytes.HasPrefix(header, zstdMagic) {
			return models.KindSdist, nil
		}
	case strings.HasSuffix(basename, ".tar"):
		if len(header) >= 262 && bytes.Equal(header[257:262], tarMagic) {
			return models.KindSdist, nil
		}
	case strings.HasSuffix(basename, ".zip"):
		if bytes.HasPrefix(header, zipMagic) {
			return models.KindSdist, nil
		}
	}

	return models.KindUnknown, nil
}

// IsEggDir reports whether path is an unzipped egg
func IsEggDir(path string) bool {
	if !strings.HasSuffix(strings.ToLower(path), ".egg") {
		return false
	}
	info, err := os.Stat(filepath.Join(path, "EGG-INFO", "PKG-INFO"))
	return err == nil && !info.IsDir()
}
