package wheel

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/descriptor"
	"github.com/ralt/distgen/internal/models"
)

const fixturesDir = "../../../test/fixtures"

func TestBuildDebugNode(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "steemdebugnode"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	config := &models.BuildConfig{OutputDir: t.TempDir(), SourceDateEpoch: 1700000000}
	art, err := NewBuilder("distgen (test)").Build(context.Background(), config, desc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if art.Filename != "steemdebugnode-0.1-py3-none-any.whl" {
		t.Errorf("Filename = %s", art.Filename)
	}

	got, err := archive.List(art.Path)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		"steemdebugnode-0.1.dist-info/LICENSE.md",
		"steemdebugnode-0.1.dist-info/METADATA",
		"steemdebugnode-0.1.dist-info/RECORD",
		"steemdebugnode-0.1.dist-info/WHEEL",
		"steemdebugnode-0.1.dist-info/top_level.txt",
		"steemdebugnode/__init__.py",
		"steemdebugnode/debugnode.py",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wheel contents mismatch (-want +got):\n%s", diff)
	}

	wheelFile, err := archive.ReadFile(art.Path, "steemdebugnode-0.1.dist-info/WHEEL")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if diff := cmp.Diff(string(WheelFile("distgen (test)", "py3")), string(wheelFile)); diff != "" {
		t.Errorf("WHEEL mismatch (-want +got):\n%s", diff)
	}

	record, err := archive.ReadFile(art.Path, "steemdebugnode-0.1.dist-info/RECORD")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(record)), "\n")
	if len(lines) != len(want) {
		t.Errorf("RECORD has %d rows, want %d:\n%s", len(lines), len(want), record)
	}
	if last := lines[len(lines)-1]; last != "steemdebugnode-0.1.dist-info/RECORD,," {
		t.Errorf("last RECORD row = %q", last)
	}
}

func TestBuildPythonTag(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "pyproject-app"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	config := &models.BuildConfig{OutputDir: t.TempDir(), PythonTag: "py2.py3"}
	art, err := NewBuilder("distgen (test)").Build(context.Background(), config, desc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if art.Filename != "node_app-2.0.0rc1-py2.py3-none-any.whl" {
		t.Errorf("Filename = %s", art.Filename)
	}

	for _, name := range []string{
		"nodeapp/__init__.py",
		"nodeapp/defaults.json",
		"nodeapp/tools/__init__.py",
		"node_app-2.0.0rc1.dist-info/COPYING",
	} {
		if _, err := archive.ReadFile(art.Path, name); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	topLevel, err := archive.ReadFile(art.Path, "node_app-2.0.0rc1.dist-info/top_level.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(topLevel) != "nodeapp\n" {
		t.Errorf("top_level.txt = %q", topLevel)
	}
}

func TestRecord(t *testing.T) {
	entries := []archive.Entry{
		{Name: "pkg/b.py", Data: []byte("Wheel")},
		{Name: "pkg/a,b.py", Data: []byte("x")},
	}

	var buf bytes.Buffer
	if err := Record(&buf, entries, "pkg-1.0.dist-info/RECORD"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	got := buf.String()
	want := `"pkg/a,b.py",sha256=LXEWQrcmsEQBYnyp-6wy9chTD7GQPMTbAiWHF5IaSIE,1
pkg/b.py,sha256=iJoIMipBFvVhsUvRFPMYOXe-nqnX32DOQrEpwazjB5Y,5
pkg-1.0.dist-info/RECORD,,
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Record() mismatch (-want +got):\n%s", diff)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRecordReportsWriteError(t *testing.T) {
	entries := []archive.Entry{{Name: "pkg/__init__.py", Data: []byte("")}}
	err := Record(failingWriter{}, entries, "pkg-1.0.dist-info/RECORD")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Record() error = %v, want the writer's error", err)
	}
}
