// Package index publishes a directory of distributions as a static simple
// repository that pip can install from.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"deps.dev/util/pypi"
	"deps.dev/util/semver"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/scanner"
	"github.com/ralt/distgen/internal/signer"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	packagesDir = "packages"
	simpleDir   = "simple"

	// PublicKeyFile holds the armored signing key at the repository root
	PublicKeyFile = "KEY.asc"
)

// Project groups the published files of one project
type Project struct {
	Name      string // Canonical name
	Artifacts []models.Artifact
}

// Generator writes simple repositories
type Generator struct {
	signer signer.Signer
}

// NewGenerator creates a new index generator. s may be nil for an unsigned
// repository.
func NewGenerator(s signer.Signer) *Generator {
	return &Generator{
		signer: s,
	}
}

// Generate copies artifacts into the repository and writes the project pages
func (g *Generator) Generate(ctx context.Context, config *models.IndexConfig, artifacts []models.Artifact) error {
	logrus.Info("Generating simple index...")

	poolDir := filepath.Join(config.OutputDir, packagesDir)
	if err := utils.EnsureDir(poolDir); err != nil {
		return err
	}

	var existing []models.Artifact
	if config.Incremental {
		var err error
		existing, err = LoadExisting(ctx, poolDir)
		if err != nil {
			return fmt.Errorf("failed to load existing packages: %w", err)
		}
		if conflicts := utils.DetectConflicts(existing, artifacts); len(conflicts) > 0 {
			names := make([]string, 0, len(conflicts))
			for _, c := range conflicts {
				names = append(names, c.Filename)
			}
			return fmt.Errorf("files already published with different contents: %s", strings.Join(names, ", "))
		}
		logrus.Infof("Keeping %d existing files", len(existing))
	}

	published := make([]models.Artifact, 0, len(artifacts))
	for i := range artifacts {
		art := artifacts[i]
		if art.IsDir {
			logrus.Warnf("Skipping %s: unzipped eggs cannot be indexed", art.Filename)
			continue
		}

		if err := g.publish(&art, poolDir); err != nil {
			return err
		}
		published = append(published, art)
	}

	projects := Group(merge(existing, published))

	if err := g.writePages(config, projects); err != nil {
		return err
	}

	if g.signer != nil {
		key, err := g.signer.GetPublicKey()
		if err != nil {
			return fmt.Errorf("failed to export public key: %w", err)
		}
		if err := utils.WriteFile(filepath.Join(config.OutputDir, PublicKeyFile), key, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", PublicKeyFile, err)
		}
	} else {
		logrus.Warn("No signer configured, repository will be unsigned")
	}

	logrus.Infof("Simple index generated with %d projects", len(projects))
	return nil
}

// publish copies art and its signature into poolDir, signing it when a signer
// is configured and no signature exists yet. art is updated to point at the
// copy.
func (g *Generator) publish(art *models.Artifact, poolDir string) error {
	dst := filepath.Join(poolDir, art.Filename)

	copyNeeded, err := utils.ShouldCopyArtifact(art, dst)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", art.Filename, err)
	}
	if copyNeeded {
		logrus.Debugf("Copying %s", art.Filename)
		if err := utils.CopyFile(art.Path, dst); err != nil {
			return fmt.Errorf("failed to copy %s: %w", art.Path, err)
		}
	} else {
		logrus.Debugf("%s is up to date", art.Filename)
	}

	sig := art.SignaturePath
	art.Path = dst
	art.SignaturePath = ""

	switch {
	case sig != "":
		sigDst := dst + signer.SignatureExt
		if filepath.Clean(sig) != filepath.Clean(sigDst) {
			if err := utils.CopyFile(sig, sigDst); err != nil {
				return fmt.Errorf("failed to copy %s: %w", sig, err)
			}
		}
		art.SignaturePath = sigDst
	case g.signer != nil:
		if err := signer.SignArtifact(g.signer, art); err != nil {
			return err
		}
	}
	return nil
}

// LoadExisting returns the distributions already published in poolDir
func LoadExisting(ctx context.Context, poolDir string) ([]models.Artifact, error) {
	if _, err := os.Stat(poolDir); os.IsNotExist(err) {
		return nil, nil
	}

	scanned, err := scanner.NewFileSystemScanner().Scan(ctx, poolDir)
	if err != nil {
		return nil, err
	}

	var artifacts []models.Artifact
	for _, s := range scanned {
		if s.IsDir {
			continue
		}
		art, err := ParseArtifact(s)
		if err != nil {
			logrus.Warnf("Ignoring %s: %v", s.Path, err)
			continue
		}
		artifacts = append(artifacts, *art)
	}
	return artifacts, nil
}

// merge overlays published on existing by file name
func merge(existing, published []models.Artifact) []models.Artifact {
	byName := make(map[string]models.Artifact, len(existing)+len(published))
	for _, art := range existing {
		byName[utils.ArtifactIdentity(art)] = art
	}
	for _, art := range published {
		byName[utils.ArtifactIdentity(art)] = art
	}

	out := make([]models.Artifact, 0, len(byName))
	for _, art := range byName {
		out = append(out, art)
	}
	return out
}

// Group collects artifacts by canonical project name. Projects are sorted by
// name and files by version, then by file name. Versions PEP 440 cannot parse
// sort after the ones it can, in string order.
func Group(artifacts []models.Artifact) []Project {
	byProject := make(map[string][]models.Artifact)
	for _, art := range artifacts {
		name := pypi.CanonPackageName(art.Name)
		byProject[name] = append(byProject[name], art)
	}

	projects := make([]Project, 0, len(byProject))
	for name, arts := range byProject {
		slices.SortFunc(arts, compareArtifacts)
		projects = append(projects, Project{Name: name, Artifacts: arts})
	}
	slices.SortFunc(projects, func(a, b Project) int {
		return strings.Compare(a.Name, b.Name)
	})
	return projects
}

func compareArtifacts(a, b models.Artifact) int {
	if c := compareVersions(a.Version, b.Version); c != 0 {
		return c
	}
	return strings.Compare(a.Filename, b.Filename)
}

func compareVersions(a, b string) int {
	va, errA := semver.PyPI.Parse(a)
	vb, errB := semver.PyPI.Parse(b)
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
