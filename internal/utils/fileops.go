package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ralt/distgen/internal/models"
)

// CopyFile copies a file from src to dst
func CopyFile(src, dst string) error {
	// Create destination directory if it doesn't exist
	dstDir := filepath.Dir(dst)
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return err
	}

	// Open source file
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	// Create destination file
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	// Copy contents
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	// Sync to disk
	return dstFile.Sync()
}

// WriteFile writes data to a file, creating directories as needed
func WriteFile(path string, data []byte, perm os.FileMode) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, perm)
}

// EnsureDir ensures a directory exists, creating it if necessary
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ShouldCopyArtifact determines if a distribution file needs to be copied to
// dstPath. A copy is needed when the destination is missing or differs in
// size or sha256 from the source.
func ShouldCopyArtifact(art *models.Artifact, dstPath string) (bool, error) {
	srcPath := filepath.Clean(art.Path)
	dstPath = filepath.Clean(dstPath)

	// Same path = no copy needed
	if srcPath == dstPath {
		return false, nil
	}

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, fmt.Errorf("cannot stat source: %w", err)
	}

	dstInfo, err := os.Stat(dstPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("cannot stat destination: %w", err)
	}

	// Different sizes = need copy
	if srcInfo.Size() != dstInfo.Size() {
		return true, nil
	}

	// Same size - compare checksums if available
	if art.SHA256Sum != "" {
		dstChecksums, err := CalculateChecksums(dstPath)
		if err != nil {
			// Can't calculate checksums, copy to be safe
			return true, nil
		}
		if art.SHA256Sum != dstChecksums.SHA256 {
			return true, nil
		}
	}

	return false, nil
}
