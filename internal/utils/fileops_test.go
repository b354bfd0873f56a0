package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ralt/distgen/internal/models"
)

func TestShouldCopyArtifact(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "dist", "steemdebugnode-0.1.tar.gz")
	if err := WriteFile(src, []byte("sdist contents"), 0644); err != nil {
		t.Fatal(err)
	}
	checksums, err := CalculateChecksums(src)
	if err != nil {
		t.Fatalf("CalculateChecksums failed: %v", err)
	}
	art := &models.Artifact{Path: src, SHA256Sum: checksums.SHA256}

	dst := filepath.Join(tmpDir, "repo", "packages", "steemdebugnode-0.1.tar.gz")

	// Missing destination
	if copyNeeded, err := ShouldCopyArtifact(art, dst); err != nil || !copyNeeded {
		t.Errorf("missing destination: copy = %v, err = %v", copyNeeded, err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	if copyNeeded, err := ShouldCopyArtifact(art, dst); err != nil || copyNeeded {
		t.Errorf("identical destination: copy = %v, err = %v", copyNeeded, err)
	}

	// Same size, different contents
	if err := os.WriteFile(dst, []byte("sdist CONTENTS"), 0644); err != nil {
		t.Fatal(err)
	}
	if copyNeeded, err := ShouldCopyArtifact(art, dst); err != nil || !copyNeeded {
		t.Errorf("changed destination: copy = %v, err = %v", copyNeeded, err)
	}

	// Source and destination are the same file
	if copyNeeded, err := ShouldCopyArtifact(art, src); err != nil || copyNeeded {
		t.Errorf("same path: copy = %v, err = %v", copyNeeded, err)
	}

	// Missing source
	missing := &models.Artifact{Path: filepath.Join(tmpDir, "nope.whl")}
	if _, err := ShouldCopyArtifact(missing, dst); err == nil {
		t.Error("missing source should fail")
	}
}
