package sdist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/builder"
	"github.com/ralt/distgen/internal/metadata"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// eggInfoBlock is appended to setup.cfg so the unpacked sdist rebuilds
// without a development tag
const eggInfoBlock = "[egg_info]\ntag_build = \ntag_date = 0\n\n"

// Builder implements the builder.Builder interface for source distributions
type Builder struct{}

// NewBuilder creates a new sdist builder
func NewBuilder() builder.Builder {
	return &Builder{}
}

// Filename returns the sdist file name for desc in the given archive format
func Filename(desc *models.Descriptor, format archive.Format) string {
	return utils.DistBase(desc.Name, desc.Version) + format.Extension()
}

// Build creates {name}-{version}.tar.gz (or the configured format)
func (b *Builder) Build(ctx context.Context, config *models.BuildConfig, desc *models.Descriptor) (*models.Artifact, error) {
	format := archive.FormatGzTar
	if config.SdistFormat != "" {
		f, err := archive.ParseFormat(config.SdistFormat)
		if err != nil {
			return nil, err
		}
		format = f
	}

	sources, err := builder.CollectSources(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to collect sources: %w", err)
	}
	eff := builder.Effective(desc, sources)

	entries, err := Entries(eff, sources)
	if err != nil {
		return nil, err
	}

	dst := filepath.Join(config.OutputDir, Filename(desc, format))
	logrus.Infof("Writing source distribution %s (%d files)", filepath.Base(dst), len(entries))

	if err := archive.WriteFile(dst, format, builder.Mtime(config), entries); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	return builder.NewArtifact(models.KindSdist, desc, dst)
}

// Entries returns the archive entries of the sdist, all below the
// "{name}-{version}/" top directory
func Entries(desc *models.Descriptor, sources *builder.Sources) ([]archive.Entry, error) {
	top := utils.DistBase(desc.Name, desc.Version)
	eggInfoDir := utils.EggInfoDir(desc.Name)

	var entries []archive.Entry
	var listed []string
	hasSetupCfg := false

	for _, group := range [][]builder.SourceFile{sources.Extra, sources.Readmes, sources.Licenses, sources.Modules} {
		for _, f := range group {
			data, err := os.ReadFile(f.Path)
			if err != nil {
				return nil, err
			}
			info, err := os.Stat(f.Path)
			if err != nil {
				return nil, err
			}

			if f.ProjectPath == "setup.cfg" {
				hasSetupCfg = true
				if !strings.Contains(string(data), "[egg_info]") {
					data = append(data, []byte("\n"+eggInfoBlock)...)
				}
			}

			entries = append(entries, archive.Entry{
				Name: top + "/" + f.ProjectPath,
				Data: data,
				Mode: info.Mode(),
			})
			listed = append(listed, f.ProjectPath)
		}
	}

	if !hasSetupCfg {
		entries = append(entries, archive.Entry{Name: top + "/setup.cfg", Data: []byte(eggInfoBlock)})
	}

	// egg-info directory, placed next to the import root as setuptools does
	eggInfoPrefix := eggInfoDir
	if dir, ok := desc.PackageDir[""]; ok && dir != "" && dir != "." {
		eggInfoPrefix = strings.Trim(filepath.ToSlash(dir), "/") + "/" + eggInfoDir
	}
	for name, data := range metadata.EggInfo(desc, eggInfoPrefix, listed, desc.ZipSafe) {
		entries = append(entries, archive.Entry{
			Name: top + "/" + eggInfoPrefix + "/" + name,
			Data: data,
		})
	}

	entries = append(entries, archive.Entry{
		Name: top + "/PKG-INFO",
		Data: metadata.Render(desc),
	})

	return entries, nil
}

// Kind returns the artifact kind this builder produces
func (b *Builder) Kind() models.ArtifactKind {
	return models.KindSdist
}
