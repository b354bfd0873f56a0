package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/distgen/internal/descriptor"
	"github.com/ralt/distgen/internal/models"
	"github.com/sirupsen/logrus"
)

// SourceFile is a file that ends up in a distribution
type SourceFile struct {
	Path        string // Location on disk
	ProjectPath string // Slash path relative to the project root, used in sdists
	ModulePath  string // Slash path relative to the import root, used in wheels and eggs
}

// Sources groups the files collected for a build
type Sources struct {
	Modules  []SourceFile // Package modules and package data
	Licenses []SourceFile
	Readmes  []SourceFile
	Extra    []SourceFile // Descriptor files (setup.py, pyproject.toml, setup.cfg)
}

var defaultLicensePatterns = []string{"LICEN[CS]E*", "COPYING*", "NOTICE*", "AUTHORS*"}

var readmeNames = []string{"README", "README.txt", "README.rst", "README.md"}

// CollectSources gathers the modules of every listed package, package data,
// license files and readme
func CollectSources(ctx context.Context, desc *models.Descriptor) (*Sources, error) {
	src := &Sources{}
	seen := make(map[string]bool)

	add := func(list *[]SourceFile, f SourceFile) {
		if seen[f.ProjectPath] {
			return
		}
		seen[f.ProjectPath] = true
		*list = append(*list, f)
	}

	for _, pkg := range desc.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dir := descriptor.PackagePath(desc, pkg)
		modulePrefix := strings.ReplaceAll(pkg, ".", "/")

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", pkg, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".py" {
				continue
			}
			f, err := newSourceFile(desc.Root, filepath.Join(dir, e.Name()), modulePrefix+"/"+e.Name())
			if err != nil {
				return nil, err
			}
			add(&src.Modules, f)
		}

		for _, pattern := range packageDataPatterns(desc, pkg) {
			matches, err := filepath.Glob(filepath.Join(dir, filepath.FromSlash(pattern)))
			if err != nil {
				return nil, fmt.Errorf("package_data %s: %w", pattern, err)
			}
			for _, m := range matches {
				info, err := os.Stat(m)
				if err != nil || info.IsDir() || skipFile(m) {
					continue
				}
				rel, err := filepath.Rel(dir, m)
				if err != nil {
					return nil, err
				}
				f, err := newSourceFile(desc.Root, m, modulePrefix+"/"+filepath.ToSlash(rel))
				if err != nil {
					return nil, err
				}
				logrus.Debugf("Including package data %s", f.ModulePath)
				add(&src.Modules, f)
			}
		}
	}

	licensePatterns := desc.LicenseFiles
	if len(licensePatterns) == 0 {
		licensePatterns = defaultLicensePatterns
	}
	for _, pattern := range licensePatterns {
		matches, err := filepath.Glob(filepath.Join(desc.Root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("license file pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			f, err := newSourceFile(desc.Root, m, "")
			if err != nil {
				return nil, err
			}
			add(&src.Licenses, f)
		}
	}

	for _, name := range readmeNames {
		p := filepath.Join(desc.Root, name)
		if _, err := os.Stat(p); err == nil {
			f, err := newSourceFile(desc.Root, p, "")
			if err != nil {
				return nil, err
			}
			add(&src.Readmes, f)
		}
	}

	for _, name := range []string{"setup.py", "pyproject.toml", "setup.cfg", "MANIFEST.in"} {
		p := filepath.Join(desc.Root, name)
		if _, err := os.Stat(p); err == nil {
			f, err := newSourceFile(desc.Root, p, "")
			if err != nil {
				return nil, err
			}
			add(&src.Extra, f)
		}
	}

	for _, list := range [][]SourceFile{src.Modules, src.Licenses, src.Readmes, src.Extra} {
		sort.Slice(list, func(i, j int) bool {
			return list[i].ProjectPath < list[j].ProjectPath
		})
	}

	logrus.Debugf("Collected %d modules, %d license files for %s", len(src.Modules), len(src.Licenses), desc.Name)
	return src, nil
}

// packageDataPatterns returns the globs for pkg, including the "" wildcard entry
func packageDataPatterns(desc *models.Descriptor, pkg string) []string {
	var patterns []string
	patterns = append(patterns, desc.PackageData[""]...)
	patterns = append(patterns, desc.PackageData[pkg]...)
	return patterns
}

func newSourceFile(root, path, modulePath string) (SourceFile, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return SourceFile{}, err
	}
	return SourceFile{
		Path:        path,
		ProjectPath: filepath.ToSlash(rel),
		ModulePath:  modulePath,
	}, nil
}

func skipFile(path string) bool {
	return strings.HasSuffix(path, ".pyc") || strings.Contains(filepath.ToSlash(path), "__pycache__/")
}
