package metadata

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ralt/distgen/internal/models"
)

func debugNodeDescriptor() *models.Descriptor {
	return &models.Descriptor{
		Name:        "steemdebugnode",
		Version:     "0.1",
		Description: "A wrapper for launching and interacting with a Steem Debug Node",
		URL:         "http://github.com/hanyeol/steem",
		Author:      "Hanyeol Cho",
		AuthorEmail: "hanyeol.cho@gmail.com",
		License:     "See LICENSE.md",
		Packages:    []string{"steemdebugnode"},
		ZipSafe:     models.Bool(false),
	}
}

func TestRenderDebugNode(t *testing.T) {
	want := `Metadata-Version: 2.1
Name: steemdebugnode
Version: 0.1
Summary: A wrapper for launching and interacting with a Steem Debug Node
Home-page: http://github.com/hanyeol/steem
Author: Hanyeol Cho
Author-email: hanyeol.cho@gmail.com
License: See LICENSE.md
`
	if diff := cmp.Diff(want, string(Render(debugNodeDescriptor()))); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderThenParse(t *testing.T) {
	desc := debugNodeDescriptor()
	desc.InstallRequires = []string{"steemapi", "requests>=2; python_version >= '3.8'"}
	desc.Classifiers = []string{"License :: OSI Approved :: MIT License"}
	desc.LongDescription = "# steemdebugnode\n\nLaunches a debug node.\n"
	desc.LongDescriptionContentType = "text/markdown"

	md, err := Parse(bytes.NewReader(Render(desc)))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := &Metadata{
		MetadataVersion: "2.1",
		Name:            "steemdebugnode",
		Version:         "0.1",
		Summary:         desc.Description,
		HomePage:        desc.URL,
		Author:          desc.Author,
		AuthorEmail:     desc.AuthorEmail,
		License:         desc.License,
		RequiresDist:    desc.InstallRequires,
		Classifiers:     desc.Classifiers,
		Description:     desc.LongDescription,
	}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRequiresNameAndVersion(t *testing.T) {
	_, err := Parse(strings.NewReader("Metadata-Version: 2.1\nName: steemdebugnode\n"))
	if err == nil {
		t.Error("expected error for missing version")
	}
}

func TestEggInfo(t *testing.T) {
	desc := debugNodeDescriptor()
	sources := []string{"setup.py", "steemdebugnode/__init__.py", "steemdebugnode/debugnode.py"}

	files := EggInfo(desc, "steemdebugnode.egg-info", sources, desc.ZipSafe)

	if _, ok := files["not-zip-safe"]; !ok {
		t.Error("not-zip-safe missing for zip_safe=False")
	}
	if _, ok := files["zip-safe"]; ok {
		t.Error("zip-safe must not be written for zip_safe=False")
	}
	if _, ok := files["requires.txt"]; ok {
		t.Error("requires.txt written without requirements")
	}
	if got := string(files["top_level.txt"]); got != "steemdebugnode\n" {
		t.Errorf("top_level.txt = %q", got)
	}

	wantSources := `setup.py
steemdebugnode.egg-info/PKG-INFO
steemdebugnode.egg-info/SOURCES.txt
steemdebugnode.egg-info/dependency_links.txt
steemdebugnode.egg-info/not-zip-safe
steemdebugnode.egg-info/top_level.txt
steemdebugnode/__init__.py
steemdebugnode/debugnode.py
`
	if diff := cmp.Diff(wantSources, string(files["SOURCES.txt"])); diff != "" {
		t.Errorf("SOURCES.txt mismatch (-want +got):\n%s", diff)
	}

	undeclared := EggInfo(desc, "steemdebugnode.egg-info", sources, nil)
	if _, ok := undeclared["not-zip-safe"]; ok {
		t.Error("not-zip-safe written although zip_safe is undeclared")
	}
}

func TestRequiresTxt(t *testing.T) {
	got := RequiresTxt([]string{
		"steemapi",
		"requests>=2; python_version >= '3.8'",
		"six",
		"toml; python_version >= '3.8'",
	})
	want := `steemapi
six

[:python_version >= '3.8']
requests>=2
toml
`
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("RequiresTxt() mismatch (-want +got):\n%s", diff)
	}
}
