package archive

import (
	"fmt"
	"strings"
)

// Format is an archive layout plus compression
type Format string

const (
	FormatGzTar  Format = "gztar"
	FormatXzTar  Format = "xztar"
	FormatZstTar Format = "zsttar"
	FormatTar    Format = "tar"
	FormatZip    Format = "zip"
)

// Extension returns the file extension for the format, including the leading dot
func (f Format) Extension() string {
	switch f {
	case FormatGzTar:
		return ".tar.gz"
	case FormatXzTar:
		return ".tar.xz"
	case FormatZstTar:
		return ".tar.zst"
	case FormatTar:
		return ".tar"
	case FormatZip:
		return ".zip"
	default:
		return ""
	}
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatGzTar, FormatXzTar, FormatZstTar, FormatTar, FormatZip:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported archive format %q", s)
	}
}

// FormatFromName guesses the format from a file name. Wheels and eggs are zips.
func FormatFromName(name string) (Format, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatGzTar, true
	case strings.HasSuffix(lower, ".tar.xz"):
		return FormatXzTar, true
	case strings.HasSuffix(lower, ".tar.zst"):
		return FormatZstTar, true
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar, true
	case strings.HasSuffix(lower, ".zip"), strings.HasSuffix(lower, ".whl"), strings.HasSuffix(lower, ".egg"):
		return FormatZip, true
	default:
		return "", false
	}
}
