package index

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/metadata"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/scanner"
	"github.com/ralt/distgen/internal/utils"
)

// Metadata file locations inside each kind of distribution
var (
	sdistMetadata = regexp.MustCompile(`^[^/]+/PKG-INFO$`)
	wheelMetadata = regexp.MustCompile(`^[^/]+\.dist-info/METADATA$`)
	eggMetadata   = regexp.MustCompile(`^EGG-INFO/PKG-INFO$`)
)

var errNoMetadata = errors.New("no core metadata found")

// ParseArtifact reads the core metadata embedded in a scanned distribution
// and returns it as an Artifact with checksums filled in
func ParseArtifact(scanned scanner.ScannedArtifact) (*models.Artifact, error) {
	if scanned.IsDir {
		return nil, fmt.Errorf("%s is a directory", scanned.Path)
	}

	var pattern *regexp.Regexp
	switch scanned.Kind {
	case models.KindSdist:
		pattern = sdistMetadata
	case models.KindWheel:
		pattern = wheelMetadata
	case models.KindEgg:
		pattern = eggMetadata
	default:
		return nil, fmt.Errorf("unsupported distribution kind: %s", scanned.Kind)
	}

	var raw []byte
	err := archive.Walk(scanned.Path, func(name string, r io.Reader) error {
		if raw != nil || !pattern.MatchString(name) {
			return nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		raw = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", scanned.Path, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%s: %w", scanned.Path, errNoMetadata)
	}

	md, err := metadata.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metadata of %s: %w", scanned.Path, err)
	}
	if md.Name == "" || md.Version == "" {
		return nil, fmt.Errorf("%s: metadata lacks name or version", scanned.Path)
	}

	checksums, err := utils.CalculateChecksums(scanned.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksums: %w", err)
	}

	art := &models.Artifact{
		Kind:           scanned.Kind,
		Name:           md.Name,
		Version:        md.Version,
		Path:           scanned.Path,
		Filename:       filepath.Base(scanned.Path),
		Size:           checksums.Size,
		MD5Sum:         checksums.MD5,
		SHA256Sum:      checksums.SHA256,
		RequiresPython: md.RequiresPython,
		SignaturePath:  scanned.SignaturePath,
	}
	if art.SignaturePath == "" {
		if _, err := os.Stat(scanned.Path + ".asc"); err == nil {
			art.SignaturePath = scanned.Path + ".asc"
		}
	}
	return art, nil
}
