// Package metadata renders and reads Python core metadata (PKG-INFO, METADATA)
// and the egg-info file set.
package metadata

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"sort"
	"strings"

	"github.com/ralt/distgen/internal/models"
)

// Version is the core metadata version written by Render
const Version = "2.1"

// Metadata is core metadata as read back from a distribution
type Metadata struct {
	MetadataVersion string
	Name            string
	Version         string
	Summary         string
	HomePage        string
	Author          string
	AuthorEmail     string
	License         string
	RequiresPython  string
	RequiresDist    []string
	Classifiers     []string
	Description     string
}

// Render writes the core metadata of desc
func Render(desc *models.Descriptor) []byte {
	var buf bytes.Buffer

	// Required fields
	writeField(&buf, "Metadata-Version", Version)
	writeField(&buf, "Name", desc.Name)
	writeField(&buf, "Version", desc.Version)

	// Optional fields
	if desc.Description != "" {
		writeField(&buf, "Summary", desc.Description)
	}
	if desc.URL != "" {
		writeField(&buf, "Home-page", desc.URL)
	}
	if desc.Author != "" {
		writeField(&buf, "Author", desc.Author)
	}
	if desc.AuthorEmail != "" {
		writeField(&buf, "Author-email", desc.AuthorEmail)
	}
	if desc.License != "" {
		writeField(&buf, "License", desc.License)
	}
	if len(desc.Keywords) > 0 {
		writeField(&buf, "Keywords", strings.Join(desc.Keywords, ","))
	}
	for _, c := range desc.Classifiers {
		writeField(&buf, "Classifier", c)
	}
	if desc.PythonRequires != "" {
		writeField(&buf, "Requires-Python", desc.PythonRequires)
	}
	if desc.LongDescriptionContentType != "" {
		writeField(&buf, "Description-Content-Type", desc.LongDescriptionContentType)
	}
	for _, lf := range desc.LicenseFiles {
		writeField(&buf, "License-File", path.Base(lf))
	}
	for _, req := range desc.InstallRequires {
		writeField(&buf, "Requires-Dist", req)
	}

	if desc.LongDescription != "" {
		buf.WriteString("\n")
		buf.WriteString(desc.LongDescription)
		if !strings.HasSuffix(desc.LongDescription, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// writeField folds multi-line values with an eight space indent
func writeField(buf *bytes.Buffer, key, value string) {
	value = strings.TrimRight(value, "\n")
	value = strings.ReplaceAll(value, "\n", "\n        ")
	fmt.Fprintf(buf, "%s: %s\n", key, value)
}

// Parse reads core metadata. Name and Version are required.
func Parse(r io.Reader) (*Metadata, error) {
	br := bufio.NewReader(r)
	rd := textproto.NewReader(br)
	h, err := rd.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("ReadMIMEHeader(): %w", err)
	}

	md := &Metadata{
		MetadataVersion: h.Get("Metadata-Version"),
		Name:            h.Get("Name"),
		Version:         h.Get("Version"),
		Summary:         h.Get("Summary"),
		HomePage:        h.Get("Home-page"),
		Author:          h.Get("Author"),
		AuthorEmail:     h.Get("Author-email"),
		License:         h.Get("License"),
		RequiresPython:  h.Get("Requires-Python"),
		RequiresDist:    h.Values("Requires-Dist"),
		Classifiers:     h.Values("Classifier"),
	}
	if md.Name == "" || md.Version == "" {
		return nil, fmt.Errorf("Name or version is empty (name: %q, version: %q)", md.Name, md.Version)
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	md.Description = string(body)

	return md, nil
}

// EggInfo returns the files of an egg-info directory keyed by file name.
// sources are the archive-relative paths listed in SOURCES.txt; the egg-info
// files themselves are added under eggInfoDir.
func EggInfo(desc *models.Descriptor, eggInfoDir string, sources []string, zipSafe *bool) map[string][]byte {
	files := map[string][]byte{
		"PKG-INFO":             Render(desc),
		"top_level.txt":        []byte(strings.Join(desc.TopLevel(), "\n") + "\n"),
		"dependency_links.txt": []byte("\n"),
	}

	if len(desc.InstallRequires) > 0 {
		files["requires.txt"] = RequiresTxt(desc.InstallRequires)
	}

	if zipSafe != nil {
		if *zipSafe {
			files["zip-safe"] = []byte("\n")
		} else {
			files["not-zip-safe"] = []byte("\n")
		}
	}

	all := append([]string{}, sources...)
	for name := range files {
		all = append(all, eggInfoDir+"/"+name)
	}
	all = append(all, eggInfoDir+"/SOURCES.txt")
	sort.Strings(all)
	files["SOURCES.txt"] = []byte(strings.Join(all, "\n") + "\n")

	return files
}

// RequiresTxt renders requirements the way egg-info stores them:
// unconditional requirements first, then one "[:marker]" section per
// environment marker.
func RequiresTxt(reqs []string) []byte {
	var plain []string
	sections := make(map[string][]string)
	var markers []string

	for _, req := range reqs {
		dep, marker, found := strings.Cut(req, ";")
		dep = strings.TrimSpace(dep)
		if !found {
			plain = append(plain, dep)
			continue
		}
		marker = strings.TrimSpace(marker)
		if _, ok := sections[marker]; !ok {
			markers = append(markers, marker)
		}
		sections[marker] = append(sections[marker], dep)
	}

	var buf bytes.Buffer
	for _, req := range plain {
		buf.WriteString(req + "\n")
	}
	for _, marker := range markers {
		fmt.Fprintf(&buf, "\n[:%s]\n", marker)
		for _, req := range sections[marker] {
			buf.WriteString(req + "\n")
		}
	}
	return buf.Bytes()
}
