package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Entry is a single file stored in an archive
type Entry struct {
	Name string // Slash separated path inside the archive
	Data []byte
	Mode os.FileMode
}

// Write stores entries in w using format f. Entries are sorted by name and
// every parent directory is emitted once, so identical input gives identical
// bytes for a fixed mtime.
func Write(w io.Writer, f Format, mtime time.Time, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return fmt.Errorf("duplicate archive entry: %s", sorted[i].Name)
		}
	}

	mtime = mtime.UTC().Truncate(time.Second)

	switch f {
	case FormatZip:
		return writeZip(w, mtime, sorted)
	case FormatTar:
		return writeTar(w, mtime, sorted)
	case FormatGzTar:
		gw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return err
		}
		gw.ModTime = mtime
		if err := writeTar(gw, mtime, sorted); err != nil {
			gw.Close()
			return err
		}
		return gw.Close()
	case FormatXzTar:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if err := writeTar(xw, mtime, sorted); err != nil {
			xw.Close()
			return err
		}
		return xw.Close()
	case FormatZstTar:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return err
		}
		if err := writeTar(zw, mtime, sorted); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	default:
		return fmt.Errorf("unsupported archive format %q", f)
	}
}

// WriteFile writes the archive to path through a temporary file in the same
// directory, so a failed build never leaves a truncated artifact behind.
func WriteFile(dst string, f Format, mtime time.Time, entries []Entry) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".distgen-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := Write(tmp, f, mtime, entries); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}

func writeTar(w io.Writer, mtime time.Time, entries []Entry) error {
	tw := tar.NewWriter(w)
	dirs := make(map[string]bool)

	for _, e := range entries {
		for _, dir := range parents(e.Name) {
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			hdr := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     dir + "/",
				Mode:     0755,
				ModTime:  mtime,
				Format:   tar.FormatPAX,
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
		}

		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     e.Name,
			Mode:     int64(fileMode(e.Mode)),
			Size:     int64(len(e.Data)),
			ModTime:  mtime,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if _, err := tw.Write(e.Data); err != nil {
			return err
		}
	}

	return tw.Close()
}

// zipEpoch is the earliest time a zip header can record
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

func writeZip(w io.Writer, mtime time.Time, entries []Entry) error {
	if mtime.Before(zipEpoch) {
		mtime = zipEpoch
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, e := range entries {
		hdr := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: mtime,
		}
		hdr.SetMode(fileMode(e.Mode))
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if _, err := fw.Write(e.Data); err != nil {
			return err
		}
	}

	return zw.Close()
}

// parents returns the directory prefixes of name from outermost to innermost
func parents(name string) []string {
	var dirs []string
	parts := strings.Split(name, "/")
	for i := 1; i < len(parts); i++ {
		dirs = append(dirs, strings.Join(parts[:i], "/"))
	}
	return dirs
}

func fileMode(m os.FileMode) os.FileMode {
	if m&0111 != 0 {
		return 0755
	}
	return 0644
}
