package descriptor

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/ralt/distgen/internal/models"
)

// pyproject is the subset of pyproject.toml distgen reads
type pyproject struct {
	Project *project `toml:"project"`
	Tool    struct {
		Setuptools *setuptoolsTable `toml:"setuptools"`
	} `toml:"tool"`
}

type project struct {
	Name           string            `toml:"name"`
	Version        string            `toml:"version"`
	Description    string            `toml:"description"`
	Readme         interface{}       `toml:"readme"`
	RequiresPython string            `toml:"requires-python"`
	License        interface{}       `toml:"license"`
	LicenseFiles   []string          `toml:"license-files"`
	Authors        []contact         `toml:"authors"`
	Keywords       []string          `toml:"keywords"`
	Classifiers    []string          `toml:"classifiers"`
	URLs           map[string]string `toml:"urls"`
	Dependencies   []string          `toml:"dependencies"`
	Dynamic        []string          `toml:"dynamic"`
}

type contact struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// setuptoolsTable is [tool.setuptools]
type setuptoolsTable struct {
	Packages    interface{}         `toml:"packages"`
	ZipSafe     *bool               `toml:"zip-safe"`
	PackageDir  map[string]string   `toml:"package-dir"`
	PackageData map[string][]string `toml:"package-data"`
}

// LoadPyproject reads the [project] and [tool.setuptools] tables
func LoadPyproject(path string) (*models.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Project == nil {
		return nil, fmt.Errorf("no [project] table")
	}

	root := filepath.Dir(path)
	p := doc.Project
	desc := &models.Descriptor{
		Name:            p.Name,
		Version:         p.Version,
		Description:     p.Description,
		PythonRequires:  p.RequiresPython,
		InstallRequires: p.Dependencies,
		Keywords:        p.Keywords,
		Classifiers:     p.Classifiers,
		LicenseFiles:    p.LicenseFiles,
		SourcePath:      path,
		Root:            root,
	}

	for _, key := range []string{"Homepage", "homepage", "Home", "Source", "Repository"} {
		if u, ok := p.URLs[key]; ok {
			desc.URL = u
			break
		}
	}

	var names, emails []string
	for _, a := range p.Authors {
		switch {
		case a.Email == "":
			if a.Name != "" {
				names = append(names, a.Name)
			}
		case a.Name != "":
			emails = append(emails, fmt.Sprintf("%s <%s>", a.Name, a.Email))
		default:
			emails = append(emails, a.Email)
		}
	}
	desc.Author = strings.Join(names, ", ")
	desc.AuthorEmail = strings.Join(emails, ", ")

	if err := applyLicense(desc, p.License); err != nil {
		return nil, fmt.Errorf("project.license: %w", err)
	}
	if err := applyReadme(desc, p.Readme, root); err != nil {
		return nil, fmt.Errorf("project.readme: %w", err)
	}

	st := doc.Tool.Setuptools
	if st == nil {
		st = &setuptoolsTable{}
	}
	desc.ZipSafe = st.ZipSafe
	desc.PackageDir = st.PackageDir
	desc.PackageData = st.PackageData

	packages, err := resolvePackages(st.Packages, root, desc)
	if err != nil {
		return nil, fmt.Errorf("tool.setuptools.packages: %w", err)
	}
	desc.Packages = packages

	return desc, nil
}

// applyLicense accepts a PEP 639 expression string or a {file}/{text} table
func applyLicense(desc *models.Descriptor, v interface{}) error {
	switch l := v.(type) {
	case nil:
		return nil
	case string:
		desc.License = l
		return nil
	case map[string]interface{}:
		if file, ok := l["file"].(string); ok {
			desc.License = "See " + file
			desc.LicenseFiles = append(desc.LicenseFiles, file)
			return nil
		}
		if text, ok := l["text"].(string); ok {
			desc.License = text
			return nil
		}
		return fmt.Errorf("table needs file or text")
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
}

func applyReadme(desc *models.Descriptor, v interface{}, root string) error {
	var file, contentType string
	switch r := v.(type) {
	case nil:
		return nil
	case string:
		file = r
	case map[string]interface{}:
		contentType, _ = r["content-type"].(string)
		if text, ok := r["text"].(string); ok {
			desc.LongDescription = text
			desc.LongDescriptionContentType = contentType
			return nil
		}
		file, _ = r["file"].(string)
		if file == "" {
			return fmt.Errorf("table needs file or text")
		}
	default:
		return fmt.Errorf("unsupported type %T", v)
	}

	data, err := os.ReadFile(filepath.Join(root, file))
	if err != nil {
		return err
	}
	desc.LongDescription = string(data)
	if contentType == "" {
		contentType = readmeContentType(file)
	}
	desc.LongDescriptionContentType = contentType
	return nil
}

func readmeContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".rst":
		return "text/x-rst"
	default:
		return "text/plain"
	}
}

// resolvePackages handles both an explicit list and {find = {...}}
func resolvePackages(v interface{}, root string, desc *models.Descriptor) ([]string, error) {
	switch p := v.(type) {
	case nil:
		// Automatic discovery, relative to the root package_dir if any
		where := root
		if dir, ok := desc.PackageDir[""]; ok {
			where = filepath.Join(root, filepath.FromSlash(dir))
		}
		return FindPackages(where, nil, []string{"tests", "tests.*", "test", "test.*"})
	case []interface{}:
		return toStringList(p)
	case map[string]interface{}:
		find, ok := p["find"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected a list or a find table")
		}
		where := []string{"."}
		if w, ok := find["where"]; ok {
			list, err := toStringList(w)
			if err != nil {
				return nil, fmt.Errorf("find.where: %w", err)
			}
			where = list
		}
		var include, exclude []string
		var err error
		if v, ok := find["include"]; ok {
			if include, err = toStringList(v); err != nil {
				return nil, fmt.Errorf("find.include: %w", err)
			}
		}
		if v, ok := find["exclude"]; ok {
			if exclude, err = toStringList(v); err != nil {
				return nil, fmt.Errorf("find.exclude: %w", err)
			}
		}

		var packages []string
		for i, w := range where {
			found, err := FindPackages(filepath.Join(root, filepath.FromSlash(w)), include, exclude)
			if err != nil {
				return nil, err
			}
			packages = append(packages, found...)
			mapRoot(desc, w, i == 0, found)
		}
		return packages, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// mapRoot records where packages found under a find root live. The first
// root takes the "" mapping when nothing claims it, later roots map each
// top-level package they contributed.
func mapRoot(desc *models.Descriptor, where string, first bool, found []string) {
	where = path.Clean(filepath.ToSlash(where))
	root, claimed := desc.PackageDir[""]
	root = path.Clean(root)
	if where == root {
		return
	}
	if desc.PackageDir == nil {
		desc.PackageDir = map[string]string{}
	}
	if first && !claimed {
		desc.PackageDir[""] = where
		return
	}
	for _, pkg := range found {
		if strings.Contains(pkg, ".") {
			continue
		}
		if _, ok := desc.PackageDir[pkg]; !ok {
			desc.PackageDir[pkg] = path.Join(where, pkg)
		}
	}
}
