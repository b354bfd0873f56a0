package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralt/distgen/internal/models"
	"github.com/sirupsen/logrus"
)

// FileSystemScanner implements Scanner interface for filesystem scanning
type FileSystemScanner struct{}

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner() *FileSystemScanner {
	return &FileSystemScanner{}
}

// Scan recursively scans a directory for distributions. Hidden entries are
// skipped, and unzipped eggs are reported without descending into them.
func (s *FileSystemScanner) Scan(ctx context.Context, dir string) ([]ScannedArtifact, error) {
	var artifacts []ScannedArtifact

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != dir && IsEggDir(path) {
				logrus.Debugf("Found unzipped egg: %s", path)
				artifacts = append(artifacts, ScannedArtifact{
					Path:  path,
					Kind:  models.KindEgg,
					IsDir: true,
				})
				return filepath.SkipDir
			}
			return nil
		}

		kind, err := s.DetectKind(path)
		if err != nil {
			logrus.Warnf("Failed to detect type for %s: %v", path, err)
			return nil
		}

		// Skip unknown types
		if kind == models.KindUnknown {
			return nil
		}

		logrus.Debugf("Found %s: %s", kind, path)

		scanned := ScannedArtifact{
			Path: path,
			Kind: kind,
			Size: info.Size(),
		}
		if _, err := os.Stat(path + ".asc"); err == nil {
			scanned.SignaturePath = path + ".asc"
		}
		artifacts = append(artifacts, scanned)

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Infof("Found %d distributions in %s", len(artifacts), dir)
	return artifacts, nil
}

// DetectKind determines the distribution kind of a file
func (s *FileSystemScanner) DetectKind(path string) (models.ArtifactKind, error) {
	return DetectKind(path)
}
