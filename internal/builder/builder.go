// Package builder defines the interface shared by the distribution builders
// and the helpers they use to collect sources.
package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// Builder interface for distribution builders
type Builder interface {
	// Build produces one distribution unit from desc in config.OutputDir
	Build(ctx context.Context, config *models.BuildConfig, desc *models.Descriptor) (*models.Artifact, error)

	// Kind returns the artifact kind this builder produces
	Kind() models.ArtifactKind
}

// Mtime returns the timestamp recorded in archives. SOURCE_DATE_EPOCH style
// configuration makes builds reproducible; otherwise the current time is used.
func Mtime(config *models.BuildConfig) time.Time {
	if config.SourceDateEpoch > 0 {
		return time.Unix(config.SourceDateEpoch, 0).UTC()
	}
	return time.Now().UTC()
}

// NewArtifact describes a built file, computing its checksums
func NewArtifact(kind models.ArtifactKind, desc *models.Descriptor, path string) (*models.Artifact, error) {
	art := &models.Artifact{
		Kind:           kind,
		Name:           desc.Name,
		Version:        desc.Version,
		Path:           path,
		Filename:       filepath.Base(path),
		RequiresPython: desc.PythonRequires,
	}

	checksums, err := utils.CalculateChecksums(path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}
	art.Size = checksums.Size
	art.MD5Sum = checksums.MD5
	art.SHA256Sum = checksums.SHA256

	return art, nil
}

// Effective returns a copy of desc with license files filled in from the
// sources when the descriptor does not name any. The input is not modified.
func Effective(desc *models.Descriptor, sources *Sources) *models.Descriptor {
	eff := *desc
	if len(eff.LicenseFiles) == 0 {
		for _, lf := range sources.Licenses {
			eff.LicenseFiles = append(eff.LicenseFiles, lf.ProjectPath)
		}
	}
	return &eff
}

// Run builds desc with each builder in order and returns the artifacts.
// The first failure stops the run.
func Run(ctx context.Context, config *models.BuildConfig, desc *models.Descriptor, builders []Builder) ([]models.Artifact, error) {
	artifacts := make([]models.Artifact, 0, len(builders))
	for _, b := range builders {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}

		logrus.Infof("Building %s for %s %s...", b.Kind(), desc.Name, desc.Version)
		art, err := b.Build(ctx, config, desc)
		if err != nil {
			return artifacts, models.NewError(models.ErrBuild, desc.Name, fmt.Errorf("%s: %w", b.Kind(), err))
		}
		logrus.Infof("Built %s", art.Path)
		artifacts = append(artifacts, *art)
	}
	return artifacts, nil
}
