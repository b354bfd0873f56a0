package signer

import (
	"fmt"
	"os"

	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/utils"
	"github.com/sirupsen/logrus"
)

// SignatureExt is appended to a distribution file name for its signature
const SignatureExt = ".asc"

// Signer interface for signing distribution files
type Signer interface {
	// SignDetached creates an armored detached signature
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}

// SignArtifact writes {artifact}.asc next to the artifact and records its
// path. Unzipped eggs are directories and cannot be signed.
func SignArtifact(s Signer, art *models.Artifact) error {
	if art.IsDir {
		logrus.Warnf("Skipping signature for %s: directories cannot be signed", art.Filename)
		return nil
	}

	data, err := os.ReadFile(art.Path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", art.Path, err)
	}

	sig, err := s.SignDetached(data)
	if err != nil {
		return fmt.Errorf("failed to sign %s: %w", art.Filename, err)
	}

	sigPath := art.Path + SignatureExt
	if err := utils.WriteFile(sigPath, sig, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sigPath, err)
	}

	art.SignaturePath = sigPath
	logrus.Infof("Signed %s", art.Filename)
	return nil
}

// VerifyArtifact checks the {path}.asc signature next to a distribution
// file against keyRing
func VerifyArtifact(keyRing []byte, path string) error {
	sig, err := os.ReadFile(path + SignatureExt)
	if err != nil {
		return fmt.Errorf("no signature: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return VerifyDetached(keyRing, data, sig)
}
