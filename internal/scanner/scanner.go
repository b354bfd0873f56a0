package scanner

import (
	"context"

	"github.com/ralt/distgen/internal/models"
)

// ScannedArtifact represents a distribution found during scanning
type ScannedArtifact struct {
	Path          string
	Kind          models.ArtifactKind
	Size          int64
	IsDir         bool
	SignaturePath string // Detached signature next to the file, if any
}

// Scanner interface for finding distributions
type Scanner interface {
	// Scan recursively scans a directory for distributions
	Scan(ctx context.Context, dir string) ([]ScannedArtifact, error)

	// DetectKind determines the distribution kind of a file
	DetectKind(path string) (models.ArtifactKind, error)
}
