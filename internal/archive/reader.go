package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrNotFound is returned by ReadFile when the archive has no such entry
var ErrNotFound = errors.New("entry not found in archive")

// Walk calls fn for every regular file in the archive at path, in archive order.
// The reader passed to fn is only valid during the call.
func Walk(path string, fn func(name string, r io.Reader) error) error {
	f, ok := FormatFromName(path)
	if !ok {
		return fmt.Errorf("unknown archive type: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if f == FormatZip {
		info, err := file.Stat()
		if err != nil {
			return err
		}
		zr, err := zip.NewReader(file, info.Size())
		if err != nil {
			return err
		}
		for _, zf := range zr.File {
			if zf.FileInfo().IsDir() {
				continue
			}
			rc, err := zf.Open()
			if err != nil {
				return err
			}
			err = fn(zf.Name, rc)
			rc.Close()
			if err != nil {
				return err
			}
		}
		return nil
	}

	var r io.Reader = file
	switch f {
	case FormatGzTar:
		gr, err := gzip.NewReader(file)
		if err != nil {
			return err
		}
		defer gr.Close()
		r = gr
	case FormatXzTar:
		xr, err := xz.NewReader(file)
		if err != nil {
			return err
		}
		r = xr
	case FormatZstTar:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(hdr.Name, tr); err != nil {
			return err
		}
	}
}

// List returns the names of all regular files in the archive
func List(path string) ([]string, error) {
	var names []string
	err := Walk(path, func(name string, _ io.Reader) error {
		names = append(names, name)
		return nil
	})
	return names, err
}

// ReadFile returns the contents of a single entry
func ReadFile(path, name string) ([]byte, error) {
	var data []byte
	found := false
	errStop := errors.New("stop")

	err := Walk(path, func(entry string, r io.Reader) error {
		if entry != name {
			return nil
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, r); err != nil {
			return err
		}
		data = buf.Bytes()
		found = true
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return data, nil
}
