package models

// Descriptor is the metadata record a maintainer authors for a distributable
// Python package. It is loaded once and never mutated afterwards.
type Descriptor struct {
	// Core metadata
	Name        string
	Version     string
	Description string
	URL         string
	Author      string
	AuthorEmail string
	License     string // Reference to the license, e.g. "See LICENSE.md"

	// Long description rendered as the metadata body
	LongDescription            string
	LongDescriptionContentType string

	// Contents
	Packages     []string            // Module namespaces included in the distribution
	PackageDir   map[string]string   // Namespace prefix to directory, "" is the root
	PackageData  map[string][]string // Namespace to glob patterns of data files
	LicenseFiles []string

	// Requirements
	InstallRequires []string
	PythonRequires  string

	Classifiers []string
	Keywords    []string

	// ZipSafe is nil when the descriptor does not declare it
	ZipSafe *bool

	// Provenance
	SourcePath string // Descriptor file the record was read from
	Root       string // Directory package paths are resolved against
}

// ZipSafeDeclared reports whether zip_safe was set and its value
func (d *Descriptor) ZipSafeDeclared() (value bool, declared bool) {
	if d.ZipSafe == nil {
		return false, false
	}
	return *d.ZipSafe, true
}

// TopLevel returns the distinct top-level namespaces of the listed packages
func (d *Descriptor) TopLevel() []string {
	seen := make(map[string]bool)
	var top []string
	for _, pkg := range d.Packages {
		name := pkg
		for i := 0; i < len(pkg); i++ {
			if pkg[i] == '.' {
				name = pkg[:i]
				break
			}
		}
		if !seen[name] {
			seen[name] = true
			top = append(top, name)
		}
	}
	return top
}

// Bool returns a pointer to b, used for optional flags such as ZipSafe
func Bool(b bool) *bool {
	return &b
}
