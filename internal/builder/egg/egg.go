package egg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/builder"
	"github.com/ralt/distgen/internal/metadata"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// Builder implements the builder.Builder interface for eggs. Whether the egg
// is a zip file or a directory follows the descriptor's zip_safe flag.
type Builder struct{}

// NewBuilder creates a new egg builder
func NewBuilder() builder.Builder {
	return &Builder{}
}

// Build creates {name}-{version}-py{X.Y}.egg
func (b *Builder) Build(ctx context.Context, config *models.BuildConfig, desc *models.Descriptor) (*models.Artifact, error) {
	pyVersion := config.EggPythonVer
	if pyVersion == "" {
		pyVersion = "3"
	}

	sources, err := builder.CollectSources(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to collect sources: %w", err)
	}
	eff := builder.Effective(desc, sources)

	zipSafe, declared := desc.ZipSafeDeclared()
	if !declared {
		var reasons []string
		zipSafe, reasons = AnalyzeZipSafe(sources.Modules)
		for _, r := range reasons {
			logrus.Warnf("%s: module may not be zip safe", r)
		}
		logrus.Infof("zip_safe not declared, analysis says zip safe = %v", zipSafe)
	}

	entries, err := Entries(eff, sources, zipSafe)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(config.OutputDir, utils.EggFilename(desc.Name, desc.Version, pyVersion))
	mtime := builder.Mtime(config)

	if zipSafe {
		logrus.Infof("Writing zipped egg %s (%d files)", filepath.Base(dst), len(entries))
		if err := archive.WriteFile(dst, archive.FormatZip, mtime, entries); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		return builder.NewArtifact(models.KindEgg, desc, dst)
	}

	logrus.Infof("Writing unzipped egg %s (%d files), package is not zip safe", filepath.Base(dst), len(entries))
	if err := writeDir(dst, mtime, entries); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return &models.Artifact{
		Kind:           models.KindEgg,
		Name:           desc.Name,
		Version:        desc.Version,
		Path:           dst,
		Filename:       filepath.Base(dst),
		IsDir:          true,
		RequiresPython: desc.PythonRequires,
	}, nil
}

// Entries returns the egg contents: package modules at the root and the
// egg-info files under EGG-INFO/
func Entries(desc *models.Descriptor, sources *builder.Sources, zipSafe bool) ([]archive.Entry, error) {
	var entries []archive.Entry
	var listed []string

	for _, f := range sources.Modules {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, archive.Entry{Name: f.ModulePath, Data: data, Mode: info.Mode()})
		listed = append(listed, f.ProjectPath)
	}
	for _, group := range [][]builder.SourceFile{sources.Extra, sources.Readmes, sources.Licenses} {
		for _, f := range group {
			listed = append(listed, f.ProjectPath)
		}
	}

	flag := zipSafe
	for name, data := range metadata.EggInfo(desc, utils.EggInfoDir(desc.Name), listed, &flag) {
		entries = append(entries, archive.Entry{Name: "EGG-INFO/" + name, Data: data})
	}

	return entries, nil
}

// writeDir materialises entries as a directory at dst, replacing an older
// build. The tree is assembled next to dst and renamed into place.
func writeDir(dst string, mtime time.Time, entries []archive.Entry) error {
	parent := filepath.Dir(dst)
	if err := utils.EnsureDir(parent); err != nil {
		return err
	}

	tmp, err := os.MkdirTemp(parent, ".distgen-egg-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for _, e := range entries {
		path := filepath.Join(tmp, filepath.FromSlash(e.Name))
		mode := os.FileMode(0644)
		if e.Mode&0111 != 0 {
			mode = 0755
		}
		if err := utils.WriteFile(path, e.Data, mode); err != nil {
			return err
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			return err
		}
	}
	if err := os.Chmod(tmp, 0755); err != nil {
		return err
	}

	if info, err := os.Lstat(dst); err == nil {
		if !info.IsDir() {
			// A zipped egg from an earlier build with zip_safe=True
			if err := os.Remove(dst); err != nil {
				return err
			}
		} else if err := os.RemoveAll(dst); err != nil {
			return err
		}
	}

	return os.Rename(tmp, dst)
}

// Kind returns the artifact kind this builder produces
func (b *Builder) Kind() models.ArtifactKind {
	return models.KindEgg
}
