package utils

import (
	"github.com/ralt/distgen/internal/models"
)

// ArtifactIdentity returns the key under which a file is published. Index
// servers treat the file name as the identity of an upload.
func ArtifactIdentity(art models.Artifact) string {
	return art.Filename
}

// DetectConflicts returns artifacts from newArtifacts whose file name already
// exists in existing with different contents. Re-publishing an identical file
// is not a conflict.
func DetectConflicts(existing, newArtifacts []models.Artifact) []models.Artifact {
	existingMap := make(map[string]string)
	for _, art := range existing {
		existingMap[ArtifactIdentity(art)] = art.SHA256Sum
	}

	var conflicts []models.Artifact
	for _, art := range newArtifacts {
		sum, ok := existingMap[ArtifactIdentity(art)]
		if ok && sum != art.SHA256Sum {
			conflicts = append(conflicts, art)
		}
	}
	return conflicts
}
