package sdist

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/descriptor"
	"github.com/ralt/distgen/internal/metadata"
	"github.com/ralt/distgen/internal/models"
)

const fixturesDir = "../../../test/fixtures"

func TestBuildDebugNode(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "steemdebugnode"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	config := &models.BuildConfig{OutputDir: t.TempDir(), SourceDateEpoch: 1700000000}
	art, err := NewBuilder().Build(context.Background(), config, desc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if art.Filename != "steemdebugnode-0.1.tar.gz" {
		t.Errorf("Filename = %s", art.Filename)
	}
	if art.Kind != models.KindSdist || art.IsDir || art.Size == 0 || art.SHA256Sum == "" {
		t.Errorf("unexpected artifact: %+v", art)
	}

	got, err := archive.List(art.Path)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{
		"steemdebugnode-0.1/LICENSE.md",
		"steemdebugnode-0.1/PKG-INFO",
		"steemdebugnode-0.1/setup.cfg",
		"steemdebugnode-0.1/setup.py",
		"steemdebugnode-0.1/steemdebugnode.egg-info/PKG-INFO",
		"steemdebugnode-0.1/steemdebugnode.egg-info/SOURCES.txt",
		"steemdebugnode-0.1/steemdebugnode.egg-info/dependency_links.txt",
		"steemdebugnode-0.1/steemdebugnode.egg-info/not-zip-safe",
		"steemdebugnode-0.1/steemdebugnode.egg-info/top_level.txt",
		"steemdebugnode-0.1/steemdebugnode/__init__.py",
		"steemdebugnode-0.1/steemdebugnode/debugnode.py",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sdist contents mismatch (-want +got):\n%s", diff)
	}

	pkgInfo, err := archive.ReadFile(art.Path, "steemdebugnode-0.1/PKG-INFO")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	md, err := metadata.Parse(bytes.NewReader(pkgInfo))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if md.Name != "steemdebugnode" || md.Version != "0.1" || md.License != "See LICENSE.md" {
		t.Errorf("PKG-INFO = %+v", md)
	}

	setupCfg, err := archive.ReadFile(art.Path, "steemdebugnode-0.1/setup.cfg")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(setupCfg), "[egg_info]") {
		t.Errorf("setup.cfg lacks [egg_info]:\n%s", setupCfg)
	}
}

func TestBuildIsReproducible(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "steemdebugnode"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var sums []string
	for i := 0; i < 2; i++ {
		config := &models.BuildConfig{OutputDir: t.TempDir(), SourceDateEpoch: 1700000000}
		art, err := NewBuilder().Build(context.Background(), config, desc)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		sums = append(sums, art.SHA256Sum)
	}
	if sums[0] != sums[1] {
		t.Errorf("two builds with the same epoch differ: %s != %s", sums[0], sums[1])
	}
}

func TestBuildFormats(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "steemdebugnode"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, f := range []archive.Format{archive.FormatXzTar, archive.FormatZstTar, archive.FormatTar, archive.FormatZip} {
		t.Run(string(f), func(t *testing.T) {
			config := &models.BuildConfig{OutputDir: t.TempDir(), SdistFormat: string(f), SourceDateEpoch: 1700000000}
			art, err := NewBuilder().Build(context.Background(), config, desc)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if want := "steemdebugnode-0.1" + f.Extension(); art.Filename != want {
				t.Errorf("Filename = %s, want %s", art.Filename, want)
			}
			if _, err := archive.ReadFile(art.Path, "steemdebugnode-0.1/steemdebugnode/__init__.py"); err != nil {
				t.Errorf("package module missing: %v", err)
			}
		})
	}

	config := &models.BuildConfig{OutputDir: t.TempDir(), SdistFormat: "rar"}
	if _, err := NewBuilder().Build(context.Background(), config, desc); err == nil {
		t.Error("Build with an unknown format should fail")
	}
}

func TestBuildPackageDir(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "pyproject-app"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	config := &models.BuildConfig{OutputDir: t.TempDir(), SourceDateEpoch: 1700000000}
	art, err := NewBuilder().Build(context.Background(), config, desc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if art.Filename != "node_app-2.0.0rc1.tar.gz" {
		t.Errorf("Filename = %s", art.Filename)
	}

	names, err := archive.List(art.Path)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, want := range []string{
		"node_app-2.0.0rc1/PKG-INFO",
		"node_app-2.0.0rc1/pyproject.toml",
		"node_app-2.0.0rc1/README.md",
		"node_app-2.0.0rc1/COPYING",
		"node_app-2.0.0rc1/src/nodeapp/defaults.json",
		"node_app-2.0.0rc1/src/nodeapp/tools/__init__.py",
		"node_app-2.0.0rc1/src/node_app.egg-info/requires.txt",
	} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s missing from sdist, got %v", want, names)
		}
	}
}
