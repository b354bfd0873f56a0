package descriptor

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ralt/distgen/internal/models"
)

// FindPackages returns every importable package below where, as dotted names.
// A directory is a package when it holds __init__.py and its parent is a
// package too (or is where itself). Patterns use shell globbing on the dotted
// name, so "tests.*" excludes everything below tests.
func FindPackages(where string, include, exclude []string) ([]string, error) {
	var found []string

	var walk func(dir, prefix string) error
	walk = func(dir, prefix string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == "__pycache__" {
				continue
			}
			if !isIdentifier(e.Name()) {
				continue
			}
			sub := filepath.Join(dir, e.Name())
			if _, err := os.Stat(filepath.Join(sub, "__init__.py")); err != nil {
				continue
			}
			name := e.Name()
			if prefix != "" {
				name = prefix + "." + name
			}
			if matchesAny(name, include, true) && !matchesAny(name, exclude, false) {
				found = append(found, name)
			}
			if err := walk(sub, name); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(where, ""); err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

func matchesAny(name string, patterns []string, emptyMatches bool) bool {
	if len(patterns) == 0 {
		return emptyMatches
	}
	for _, p := range patterns {
		// path.Match treats "/" specially, dotted names never contain one
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// PackagePath returns the directory holding a dotted package, honouring
// package_dir. The longest matching package_dir prefix wins.
func PackagePath(desc *models.Descriptor, pkg string) string {
	parts := strings.Split(pkg, ".")
	for i := len(parts); i >= 0; i-- {
		prefix := strings.Join(parts[:i], ".")
		dir, ok := desc.PackageDir[prefix]
		if !ok {
			continue
		}
		rest := parts[i:]
		return filepath.Join(append([]string{desc.Root, filepath.FromSlash(dir)}, rest...)...)
	}
	return filepath.Join(append([]string{desc.Root}, parts...)...)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
