// Package descriptor loads and validates Python package descriptors.
package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/distgen/internal/models"
	"github.com/sirupsen/logrus"
)

// Load reads a descriptor from a setup.py, a pyproject.toml, or a directory
// containing one of them. pyproject.toml is preferred when it has a
// [project] table.
func Load(path string) (*models.Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &models.DistGenError{
			Type: models.ErrFileOp,
			Err:  fmt.Errorf("failed to stat descriptor: %w", err),
		}
	}

	if info.IsDir() {
		path, err = resolveDir(path)
		if err != nil {
			return nil, err
		}
	}

	logrus.Debugf("Loading descriptor: %s", path)

	var desc *models.Descriptor
	if strings.HasSuffix(path, ".toml") {
		desc, err = LoadPyproject(path)
	} else {
		desc, err = LoadSetupPy(path)
	}
	if err != nil {
		return nil, &models.DistGenError{
			Type:    models.ErrDescriptorParse,
			Package: path,
			Err:     err,
		}
	}

	return desc, nil
}

func resolveDir(dir string) (string, error) {
	pyprojectPath := filepath.Join(dir, "pyproject.toml")
	setupPath := filepath.Join(dir, "setup.py")

	if data, err := os.ReadFile(pyprojectPath); err == nil && strings.Contains(string(data), "[project]") {
		return pyprojectPath, nil
	}
	if _, err := os.Stat(setupPath); err == nil {
		return setupPath, nil
	}

	return "", &models.DistGenError{
		Type: models.ErrFileOp,
		Err:  fmt.Errorf("no setup.py or pyproject.toml with a [project] table in %s", dir),
	}
}
