package builder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/distgen/internal/descriptor"
	"github.com/ralt/distgen/internal/models"
)

const fixturesDir = "../../test/fixtures"

func TestCollectSourcesDebugNode(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "steemdebugnode"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sources, err := CollectSources(context.Background(), desc)
	if err != nil {
		t.Fatalf("CollectSources failed: %v", err)
	}

	projectPaths := func(files []SourceFile) []string {
		var out []string
		for _, f := range files {
			out = append(out, f.ProjectPath)
		}
		return out
	}

	if diff := cmp.Diff([]string{"steemdebugnode/__init__.py", "steemdebugnode/debugnode.py"}, projectPaths(sources.Modules)); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"LICENSE.md"}, projectPaths(sources.Licenses)); diff != "" {
		t.Errorf("Licenses mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"setup.py"}, projectPaths(sources.Extra)); diff != "" {
		t.Errorf("Extra mismatch (-want +got):\n%s", diff)
	}
	if len(sources.Readmes) != 0 {
		t.Errorf("Readmes = %v, want none", projectPaths(sources.Readmes))
	}
}

func TestCollectSourcesPackageDir(t *testing.T) {
	desc, err := descriptor.Load(filepath.Join(fixturesDir, "pyproject-app"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sources, err := CollectSources(context.Background(), desc)
	if err != nil {
		t.Fatalf("CollectSources failed: %v", err)
	}

	got := make(map[string]string)
	for _, f := range sources.Modules {
		got[f.ModulePath] = f.ProjectPath
	}
	want := map[string]string{
		"nodeapp/__init__.py":       "src/nodeapp/__init__.py",
		"nodeapp/defaults.json":     "src/nodeapp/defaults.json",
		"nodeapp/tools/__init__.py": "src/nodeapp/tools/__init__.py",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}

	eff := Effective(desc, sources)
	if diff := cmp.Diff([]string{"COPYING"}, eff.LicenseFiles); diff != "" {
		t.Errorf("Effective license files mismatch (-want +got):\n%s", diff)
	}
}

func TestEffectiveDoesNotModifyDescriptor(t *testing.T) {
	desc := &models.Descriptor{Name: "pkg", Version: "1.0"}
	sources := &Sources{Licenses: []SourceFile{{ProjectPath: "LICENSE"}}}

	eff := Effective(desc, sources)
	if len(desc.LicenseFiles) != 0 {
		t.Errorf("descriptor was modified: %v", desc.LicenseFiles)
	}
	if diff := cmp.Diff([]string{"LICENSE"}, eff.LicenseFiles); diff != "" {
		t.Errorf("Effective mismatch (-want +got):\n%s", diff)
	}
}

func TestMtime(t *testing.T) {
	got := Mtime(&models.BuildConfig{SourceDateEpoch: 1700000000})
	if want := time.Unix(1700000000, 0).UTC(); !got.Equal(want) {
		t.Errorf("Mtime() = %v, want %v", got, want)
	}

	before := time.Now().Add(-time.Minute)
	if got := Mtime(&models.BuildConfig{}); got.Before(before) {
		t.Errorf("Mtime() without epoch = %v, want current time", got)
	}
}

type fakeBuilder struct {
	kind models.ArtifactKind
	err  error
}

func (f *fakeBuilder) Build(ctx context.Context, config *models.BuildConfig, desc *models.Descriptor) (*models.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Artifact{Kind: f.kind, Name: desc.Name, Version: desc.Version}, nil
}

func (f *fakeBuilder) Kind() models.ArtifactKind {
	return f.kind
}

func TestRun(t *testing.T) {
	desc := &models.Descriptor{Name: "steemdebugnode", Version: "0.1"}
	config := &models.BuildConfig{}

	artifacts, err := Run(context.Background(), config, desc, []Builder{
		&fakeBuilder{kind: models.KindSdist},
		&fakeBuilder{kind: models.KindWheel},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(artifacts) != 2 || artifacts[0].Kind != models.KindSdist || artifacts[1].Kind != models.KindWheel {
		t.Errorf("Run() = %+v, want sdist then wheel", artifacts)
	}

	boom := errors.New("boom")
	artifacts, err = Run(context.Background(), config, desc, []Builder{
		&fakeBuilder{kind: models.KindSdist},
		&fakeBuilder{kind: models.KindEgg, err: boom},
		&fakeBuilder{kind: models.KindWheel},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	var dgErr *models.DistGenError
	if !errors.As(err, &dgErr) || dgErr.Type != models.ErrBuild {
		t.Errorf("Run() error = %v, want a build error", err)
	}
	if len(artifacts) != 1 {
		t.Errorf("Run() returned %d artifacts before failing, want 1", len(artifacts))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, config, desc, []Builder{&fakeBuilder{kind: models.KindSdist}}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() with cancelled context error = %v", err)
	}
}
