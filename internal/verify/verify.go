// Package verify checks that a built distribution carries exactly the
// metadata of the descriptor it was built from.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"deps.dev/util/pypi"
	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/descriptor"
	"github.com/ralt/distgen/internal/metadata"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// Declared is the name and version found inside an artifact
type Declared struct {
	Name    string
	Version string
}

// Artifact verifies the distribution at path against desc
func Artifact(ctx context.Context, path string, desc *models.Descriptor) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	kind := KindOf(path, info.IsDir())
	logrus.Debugf("Verifying %s %s", kind, path)

	var declared *Declared
	var names []string
	layout := importLayout

	switch kind {
	case models.KindSdist:
		declared, names, err = checkSdist(ctx, path, desc)
		layout = sourceLayout(desc)
	case models.KindWheel:
		declared, names, err = checkWheel(ctx, path, info.Size(), desc)
	case models.KindEgg:
		declared, names, err = checkEgg(path, info.IsDir(), desc)
	default:
		return fmt.Errorf("%s is not a recognised distribution", filepath.Base(path))
	}
	if err != nil {
		return err
	}

	if pypi.CanonPackageName(declared.Name) != pypi.CanonPackageName(desc.Name) {
		return fmt.Errorf("declared name %q does not match descriptor name %q", declared.Name, desc.Name)
	}
	if declared.Version != desc.Version {
		return fmt.Errorf("declared version %q does not match descriptor version %q", declared.Version, desc.Version)
	}

	return checkNamespaces(names, desc, layout)
}

// KindOf classifies a distribution by its name
func KindOf(path string, isDir bool) models.ArtifactKind {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".whl"):
		return models.KindWheel
	case strings.HasSuffix(base, ".egg"):
		return models.KindEgg
	case isDir:
		return models.KindUnknown
	}
	if _, ok := archive.FormatFromName(base); ok {
		return models.KindSdist
	}
	return models.KindUnknown
}

func checkSdist(ctx context.Context, path string, desc *models.Descriptor) (*Declared, []string, error) {
	base := filepath.Base(path)
	format, _ := archive.FormatFromName(base)

	if want := utils.DistBase(desc.Name, desc.Version) + format.Extension(); base != want {
		return nil, nil, fmt.Errorf("sdist file name %s does not match expected %s", base, want)
	}

	names, err := archive.List(path)
	if err != nil {
		return nil, nil, err
	}

	top := strings.TrimSuffix(base, format.Extension())
	if format != archive.FormatGzTar && format != archive.FormatZip {
		declared, err := readPkgInfo(path, top)
		if err != nil {
			return nil, nil, err
		}
		return declared, stripTop(names), nil
	}

	_, fileVersion, err := pypi.SdistVersion(pypi.CanonPackageName(desc.Name), base)
	if err != nil {
		return nil, nil, fmt.Errorf("sdist file name %s: %w", base, err)
	}
	if fileVersion != utils.EscapeVersion(desc.Version) {
		return nil, nil, fmt.Errorf("sdist file name %s carries version %q, want %q", base, fileVersion, desc.Version)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	md, err := pypi.SdistMetadata(ctx, base, f)
	if err == nil {
		return &Declared{Name: md.Name, Version: md.Version}, stripTop(names), nil
	}

	// SdistMetadata gives up on any setup.py mentioning install_requires,
	// including in a comment. PKG-INFO still carries name and version.
	logrus.Debugf("%s: %v, reading PKG-INFO instead", base, err)
	declared, err := readPkgInfo(path, top)
	if err != nil {
		return nil, nil, fmt.Errorf("reading sdist metadata: %w", err)
	}
	return declared, stripTop(names), nil
}

func checkWheel(ctx context.Context, path string, size int64, desc *models.Descriptor) (*Declared, []string, error) {
	base := filepath.Base(path)
	info, err := pypi.ParseWheelName(base)
	if err != nil {
		return nil, nil, fmt.Errorf("wheel file name %s: %w", base, err)
	}
	if pypi.CanonPackageName(info.Name) != pypi.CanonPackageName(desc.Name) {
		return nil, nil, fmt.Errorf("wheel file name %s carries name %q, want %q", base, info.Name, desc.Name)
	}
	if info.Version != utils.EscapeVersion(desc.Version) {
		return nil, nil, fmt.Errorf("wheel file name %s carries version %q, want %q", base, info.Version, desc.Version)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	md, err := pypi.WheelMetadata(ctx, f, size)
	if err != nil {
		return nil, nil, fmt.Errorf("reading wheel metadata: %w", err)
	}

	names, err := archive.List(path)
	if err != nil {
		return nil, nil, err
	}

	return &Declared{Name: md.Name, Version: md.Version}, names, nil
}

func checkEgg(path string, isDir bool, desc *models.Descriptor) (*Declared, []string, error) {
	base := filepath.Base(path)
	prefix := utils.DistBase(desc.Name, desc.Version) + "-py"
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, ".egg") || len(base) <= len(prefix)+len(".egg") {
		return nil, nil, fmt.Errorf("egg file name %s does not match expected %s{X.Y}.egg", base, prefix)
	}

	var names []string
	var pkgInfo []byte

	if isDir {
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(path, p)
			if err != nil {
				return err
			}
			names = append(names, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
		pkgInfo, err = os.ReadFile(filepath.Join(path, "EGG-INFO", "PKG-INFO"))
		if err != nil {
			return nil, nil, err
		}
	} else {
		var err error
		if names, err = archive.List(path); err != nil {
			return nil, nil, err
		}
		if pkgInfo, err = archive.ReadFile(path, "EGG-INFO/PKG-INFO"); err != nil {
			return nil, nil, err
		}
	}

	// zip_safe=False must never produce a zip
	if zipSafe, declared := desc.ZipSafeDeclared(); declared && !zipSafe {
		if !isDir {
			return nil, nil, fmt.Errorf("egg %s is zipped but the package is not zip safe", base)
		}
		if !contains(names, "EGG-INFO/not-zip-safe") {
			return nil, nil, fmt.Errorf("egg %s lacks EGG-INFO/not-zip-safe", base)
		}
	}

	md, err := metadata.Parse(bytes.NewReader(pkgInfo))
	if err != nil {
		return nil, nil, err
	}
	return &Declared{Name: md.Name, Version: md.Version}, names, nil
}

// readPkgInfo parses the PKG-INFO at the top of an sdist
func readPkgInfo(path, top string) (*Declared, error) {
	data, err := archive.ReadFile(path, top+"/PKG-INFO")
	if err != nil {
		return nil, err
	}
	md, err := metadata.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Declared{Name: md.Name, Version: md.Version}, nil
}

// stripTop drops the "{name}-{version}/" directory
func stripTop(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		i := strings.Index(n, "/")
		if i < 0 {
			continue
		}
		out = append(out, n[i+1:])
	}
	return out
}

// importLayout is where a package's __init__.py sits in wheels and eggs
func importLayout(pkg string) string {
	return path.Join(strings.ReplaceAll(pkg, ".", "/"), "__init__.py")
}

// sourceLayout places packages as the sdist ships them, below their
// package_dir roots
func sourceLayout(desc *models.Descriptor) func(string) string {
	return func(pkg string) string {
		rel, err := filepath.Rel(desc.Root, descriptor.PackagePath(desc, pkg))
		if err != nil {
			return importLayout(pkg)
		}
		return path.Join(filepath.ToSlash(rel), "__init__.py")
	}
}

// checkNamespaces requires every declared package to have its __init__.py
func checkNamespaces(names []string, desc *models.Descriptor, layout func(string) string) error {
	var missing []string
	for _, pkg := range desc.Packages {
		if !contains(names, layout(pkg)) {
			missing = append(missing, pkg)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("packages missing from distribution: %s", strings.Join(missing, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
