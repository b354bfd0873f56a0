package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// APIVersion is the simple repository API version advertised by every page
const APIVersion = "1.0"

var rootTemplate = template.Must(template.New("root").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta name="pypi:repository-version" content="{{.APIVersion}}">
    <title>Simple index</title>
  </head>
  <body>
{{- range .Projects}}
    <a href="{{.Name}}/">{{.Name}}</a><br/>
{{- end}}
  </body>
</html>
`))

var projectTemplate = template.Must(template.New("project").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta name="pypi:repository-version" content="{{.APIVersion}}">
    <title>Links for {{.Name}}</title>
  </head>
  <body>
    <h1>Links for {{.Name}}</h1>
{{- range .Files}}
    <a href="{{.URL}}"{{if .RequiresPython}} data-requires-python="{{.RequiresPython}}"{{end}}{{if .GPGSig}} data-gpg-sig="true"{{end}}>{{.Filename}}</a><br/>
{{- end}}
  </body>
</html>
`))

// Meta is the "meta" object of a JSON page
type Meta struct {
	APIVersion string `json:"api-version"`
}

// RootPage is the JSON form of simple/
type RootPage struct {
	Meta     Meta          `json:"meta"`
	Projects []ProjectLink `json:"projects"`
}

// ProjectLink names one project on the root page
type ProjectLink struct {
	Name string `json:"name"`
}

// ProjectPage is the JSON form of simple/{project}/
type ProjectPage struct {
	Meta  Meta   `json:"meta"`
	Name  string `json:"name"`
	Files []File `json:"files"`
}

// File is one distribution on a project page
type File struct {
	Filename       string            `json:"filename"`
	URL            string            `json:"url"`
	Hashes         map[string]string `json:"hashes"`
	RequiresPython string            `json:"requires-python,omitempty"`
	GPGSig         bool              `json:"gpg-sig"`
}

// NewProjectPage describes a project's files. Links are relative to the
// project page unless baseURL is set.
func NewProjectPage(p Project, baseURL string) ProjectPage {
	page := ProjectPage{
		Meta:  Meta{APIVersion: APIVersion},
		Name:  p.Name,
		Files: make([]File, 0, len(p.Artifacts)),
	}
	for _, art := range p.Artifacts {
		page.Files = append(page.Files, File{
			Filename:       art.Filename,
			URL:            fileURL(baseURL, art) + "#sha256=" + art.SHA256Sum,
			Hashes:         map[string]string{"sha256": art.SHA256Sum},
			RequiresPython: art.RequiresPython,
			GPGSig:         art.SignaturePath != "",
		})
	}
	return page
}

func fileURL(baseURL string, art models.Artifact) string {
	if baseURL == "" {
		return "../../" + packagesDir + "/" + art.Filename
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + packagesDir + "/" + art.Filename
}

// RenderRoot renders simple/index.html
func RenderRoot(projects []Project) ([]byte, error) {
	var buf bytes.Buffer
	err := rootTemplate.Execute(&buf, struct {
		APIVersion string
		Projects   []Project
	}{APIVersion, projects})
	return buf.Bytes(), err
}

// RenderProject renders simple/{project}/index.html
func RenderProject(page ProjectPage) ([]byte, error) {
	var buf bytes.Buffer
	err := projectTemplate.Execute(&buf, struct {
		APIVersion string
		ProjectPage
	}{APIVersion, page})
	return buf.Bytes(), err
}

func marshalPage(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writePages writes the HTML and JSON forms of the root and project pages
func (g *Generator) writePages(config *models.IndexConfig, projects []Project) error {
	root := filepath.Join(config.OutputDir, simpleDir)

	html, err := RenderRoot(projects)
	if err != nil {
		return fmt.Errorf("failed to render root page: %w", err)
	}
	if err := utils.WriteFile(filepath.Join(root, "index.html"), html, 0644); err != nil {
		return err
	}

	rootPage := RootPage{Meta: Meta{APIVersion: APIVersion}, Projects: make([]ProjectLink, 0, len(projects))}
	for _, p := range projects {
		rootPage.Projects = append(rootPage.Projects, ProjectLink{Name: p.Name})
	}
	data, err := marshalPage(rootPage)
	if err != nil {
		return err
	}
	if err := utils.WriteFile(filepath.Join(root, "index.json"), data, 0644); err != nil {
		return err
	}

	for _, p := range projects {
		page := NewProjectPage(p, config.BaseURL)
		dir := filepath.Join(root, p.Name)

		html, err := RenderProject(page)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", p.Name, err)
		}
		if err := utils.WriteFile(filepath.Join(dir, "index.html"), html, 0644); err != nil {
			return err
		}

		data, err := marshalPage(page)
		if err != nil {
			return err
		}
		if err := utils.WriteFile(filepath.Join(dir, "index.json"), data, 0644); err != nil {
			return err
		}
		logrus.Debugf("Wrote pages for %s (%d files)", p.Name, len(p.Artifacts))
	}
	return nil
}
