package signer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ralt/distgen/internal/models"
)

func newTestEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("distgen test", "", "test@example.com", nil)
	if err != nil {
		t.Fatalf("NewEntity failed: %v", err)
	}
	return entity
}

func TestSignArtifact(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "steemdebugnode-0.1.tar.gz")
	data := []byte("not really a tarball")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s := NewGPGSignerFromEntity(newTestEntity(t))
	art := &models.Artifact{Path: path, Filename: filepath.Base(path)}

	if err := SignArtifact(s, art); err != nil {
		t.Fatalf("SignArtifact failed: %v", err)
	}
	if art.SignaturePath != path+".asc" {
		t.Errorf("SignaturePath = %q", art.SignaturePath)
	}

	sig, err := os.ReadFile(art.SignaturePath)
	if err != nil {
		t.Fatalf("signature not written: %v", err)
	}
	pub, err := s.GetPublicKey()
	if err != nil {
		t.Fatalf("GetPublicKey failed: %v", err)
	}

	if err := VerifyDetached(pub, data, sig); err != nil {
		t.Errorf("VerifyDetached failed: %v", err)
	}
	if err := VerifyDetached(pub, []byte("tampered"), sig); err == nil {
		t.Error("VerifyDetached accepted tampered data")
	}
}

func TestSignArtifactSkipsDirectories(t *testing.T) {
	s := NewGPGSignerFromEntity(newTestEntity(t))
	art := &models.Artifact{Path: t.TempDir(), Filename: "steemdebugnode-0.1-py3.12.egg", IsDir: true}

	if err := SignArtifact(s, art); err != nil {
		t.Fatalf("SignArtifact failed: %v", err)
	}
	if art.SignaturePath != "" {
		t.Errorf("directory egg should not get a signature, got %s", art.SignaturePath)
	}
}

func TestNewGPGSignerFromFile(t *testing.T) {
	entity := newTestEntity(t)
	keyPath := filepath.Join(t.TempDir(), "key.asc")

	f, err := os.Create(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	w, err := armor.Encode(f, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()
	f.Close()

	s, err := NewGPGSigner(keyPath, "")
	if err != nil {
		t.Fatalf("NewGPGSigner failed: %v", err)
	}
	if s.KeyID() != entity.PrimaryKey.KeyIdString() {
		t.Errorf("KeyID = %s, want %s", s.KeyID(), entity.PrimaryKey.KeyIdString())
	}

	if _, err := NewGPGSigner("", ""); err == nil {
		t.Error("expected error for empty key path")
	}
}

func TestVerifyArtifact(t *testing.T) {
	entity := newTestEntity(t)
	s := NewGPGSignerFromEntity(entity)
	path := filepath.Join(t.TempDir(), "steemdebugnode-0.1-py3-none-any.whl")
	if err := os.WriteFile(path, []byte("wheel bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := VerifyArtifact(nil, path); err == nil || !strings.Contains(err.Error(), "no signature") {
		t.Errorf("expected missing signature error, got %v", err)
	}

	if err := SignArtifact(s, &models.Artifact{Path: path, Filename: filepath.Base(path)}); err != nil {
		t.Fatalf("SignArtifact failed: %v", err)
	}

	// A binary private key ring carries the public half too
	var binary bytes.Buffer
	if err := entity.SerializePrivate(&binary, nil); err != nil {
		t.Fatal(err)
	}
	if err := VerifyArtifact(binary.Bytes(), path); err != nil {
		t.Errorf("VerifyArtifact failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("other bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := VerifyArtifact(binary.Bytes(), path); err == nil {
		t.Error("VerifyArtifact accepted modified data")
	}
}
