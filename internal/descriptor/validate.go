package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"deps.dev/util/pypi"
	"deps.dev/util/semver"
	"github.com/ralt/distgen/internal/models"
	"github.com/sirupsen/logrus"
)

// validName is the PEP 508 project name rule
var validName = regexp.MustCompile(`(?i)^([A-Z0-9]|[A-Z0-9][A-Z0-9._-]*[A-Z0-9])$`)

// Validate checks desc and returns every problem found. A nil result means the
// descriptor can be built.
func Validate(desc *models.Descriptor) []error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch {
	case desc.Name == "":
		add("name is required")
	case !validName.MatchString(desc.Name):
		add("name %q is not a valid distribution name", desc.Name)
	}

	switch {
	case desc.Version == "":
		add("version is required")
	case strings.ContainsAny(desc.Version, " \t\r\n"):
		add("version %q contains whitespace", desc.Version)
	default:
		if _, err := semver.PyPI.Parse(desc.Version); err != nil {
			logrus.Warnf("Version %q is not PEP 440 compliant; installers may sort it unexpectedly", desc.Version)
		}
	}

	if desc.AuthorEmail != "" && !strings.Contains(desc.AuthorEmail, "@") {
		add("author_email %q is not an email address", desc.AuthorEmail)
	}

	errs = append(errs, validatePackages(desc)...)

	for _, req := range desc.InstallRequires {
		dep, err := pypi.ParseDependency(req)
		if err != nil {
			add("install_requires entry %q: %v", req, err)
			continue
		}
		if dep.Constraint != "" {
			if _, err := semver.PyPI.ParseConstraint(dep.Constraint); err != nil {
				add("install_requires entry %q: %v", req, err)
			}
		}
	}

	if desc.PythonRequires != "" {
		if _, err := semver.PyPI.ParseConstraint(desc.PythonRequires); err != nil {
			add("python_requires %q: %v", desc.PythonRequires, err)
		}
	}

	for _, lf := range desc.LicenseFiles {
		matches, err := filepath.Glob(filepath.Join(desc.Root, lf))
		if err != nil || len(matches) == 0 {
			add("license file %q not found", lf)
		}
	}

	return errs
}

func validatePackages(desc *models.Descriptor) []error {
	var errs []error

	if len(desc.Packages) == 0 {
		return []error{fmt.Errorf("packages must list at least one package")}
	}

	listed := make(map[string]bool, len(desc.Packages))
	for _, pkg := range desc.Packages {
		if listed[pkg] {
			errs = append(errs, fmt.Errorf("package %q listed twice", pkg))
		}
		listed[pkg] = true
	}

	for _, pkg := range desc.Packages {
		valid := true
		for _, part := range strings.Split(pkg, ".") {
			if !isIdentifier(part) {
				errs = append(errs, fmt.Errorf("package %q is not a valid module path", pkg))
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		if i := strings.LastIndex(pkg, "."); i > 0 && !listed[pkg[:i]] {
			errs = append(errs, fmt.Errorf("package %q is listed without its parent %q", pkg, pkg[:i]))
		}

		dir := PackagePath(desc, pkg)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("package %q: directory %s does not exist", pkg, dir))
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, "__init__.py")); err != nil {
			errs = append(errs, fmt.Errorf("package %q: %s has no __init__.py", pkg, dir))
		}
	}

	return errs
}
