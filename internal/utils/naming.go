package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	separatorRuns = regexp.MustCompile(`[-_.]+`)
	unsafeVersion = regexp.MustCompile(`[^A-Za-z0-9.+!_]+`)
)

// EscapeName turns a project name into the form used in distribution file
// names: runs of "-", "_" and "." collapse to a single underscore.
func EscapeName(name string) string {
	return separatorRuns.ReplaceAllString(name, "_")
}

// EscapeVersion makes a version usable as a file name component. Dashes would
// be read as a field separator and become underscores; the version is not
// otherwise normalised.
func EscapeVersion(version string) string {
	version = strings.ReplaceAll(strings.TrimSpace(version), "-", "_")
	return unsafeVersion.ReplaceAllString(version, "_")
}

// DistBase returns "{name}-{version}", the stem shared by sdists and the
// directory at the top of an sdist.
func DistBase(name, version string) string {
	return fmt.Sprintf("%s-%s", EscapeName(name), EscapeVersion(version))
}

// WheelFilename returns the wheel file name for a pure Python build
func WheelFilename(name, version, pythonTag string) string {
	return fmt.Sprintf("%s-%s-none-any.whl", DistBase(name, version), pythonTag)
}

// DistInfoDir returns the name of the wheel metadata directory
func DistInfoDir(name, version string) string {
	return DistBase(name, version) + ".dist-info"
}

// EggFilename returns the egg name for the given Python version, e.g. "3.12"
func EggFilename(name, version, pyVersion string) string {
	return fmt.Sprintf("%s-py%s.egg", DistBase(name, version), pyVersion)
}

// EggInfoDir returns the name of the metadata directory in an sdist
func EggInfoDir(name string) string {
	return EscapeName(name) + ".egg-info"
}
