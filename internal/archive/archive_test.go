package archive

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testEntries = []Entry{
	{Name: "steemdebugnode-0.1/steemdebugnode/debugnode.py", Data: []byte("class DebugNode:\n    pass\n")},
	{Name: "steemdebugnode-0.1/PKG-INFO", Data: []byte("Metadata-Version: 2.1\nName: steemdebugnode\n")},
	{Name: "steemdebugnode-0.1/steemdebugnode/__init__.py", Data: []byte("")},
}

func TestWriteAndListAllFormats(t *testing.T) {
	tmpDir := t.TempDir()
	mtime := time.Unix(1700000000, 0)

	want := []string{
		"steemdebugnode-0.1/PKG-INFO",
		"steemdebugnode-0.1/steemdebugnode/__init__.py",
		"steemdebugnode-0.1/steemdebugnode/debugnode.py",
	}

	for _, f := range []Format{FormatGzTar, FormatXzTar, FormatZstTar, FormatTar, FormatZip} {
		t.Run(string(f), func(t *testing.T) {
			path := filepath.Join(tmpDir, "steemdebugnode-0.1"+f.Extension())
			if err := WriteFile(path, f, mtime, testEntries); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}

			got, err := List(path)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("List() mismatch (-want +got):\n%s", diff)
			}

			data, err := ReadFile(path, "steemdebugnode-0.1/PKG-INFO")
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if !bytes.Equal(data, testEntries[1].Data) {
				t.Errorf("ReadFile returned %q", data)
			}
		})
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	mtime := time.Unix(1700000000, 0)

	for _, f := range []Format{FormatGzTar, FormatZip} {
		var first, second bytes.Buffer
		if err := Write(&first, f, mtime, testEntries); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		// Same entries in a different order
		reversed := []Entry{testEntries[2], testEntries[1], testEntries[0]}
		if err := Write(&second, f, mtime, reversed); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		if !bytes.Equal(first.Bytes(), second.Bytes()) {
			t.Errorf("%s output differs between runs with the same input", f)
		}
	}
}

func TestWriteRejectsDuplicates(t *testing.T) {
	entries := []Entry{
		{Name: "a/b.py", Data: []byte("1")},
		{Name: "a/b.py", Data: []byte("2")},
	}
	var buf bytes.Buffer
	if err := Write(&buf, FormatTar, time.Now(), entries); err == nil {
		t.Error("expected duplicate entry error")
	}
}

func TestReadFileMissingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.zip")
	if err := WriteFile(path, FormatZip, time.Now(), testEntries); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := ReadFile(path, "nope"); err == nil {
		t.Error("expected error for missing entry")
	}
}

func TestFormatFromName(t *testing.T) {
	tests := map[string]Format{
		"steemdebugnode-0.1.tar.gz":           FormatGzTar,
		"steemdebugnode-0.1.tar.xz":           FormatXzTar,
		"steemdebugnode-0.1.tar.zst":          FormatZstTar,
		"steemdebugnode-0.1-py3-none-any.whl": FormatZip,
		"steemdebugnode-0.1-py3.12.egg":       FormatZip,
		"steemdebugnode-0.1.zip":              FormatZip,
	}
	for name, want := range tests {
		got, ok := FormatFromName(name)
		if !ok || got != want {
			t.Errorf("FormatFromName(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if _, ok := FormatFromName("README.md"); ok {
		t.Error("README.md should not be recognised as an archive")
	}
}
