package models

// ArtifactKind identifies the type of distribution unit
type ArtifactKind int

const (
	KindUnknown ArtifactKind = iota
	KindSdist
	KindWheel
	KindEgg
)

// String returns the string representation of ArtifactKind
func (k ArtifactKind) String() string {
	switch k {
	case KindSdist:
		return "sdist"
	case KindWheel:
		return "wheel"
	case KindEgg:
		return "egg"
	default:
		return "unknown"
	}
}

// ParseArtifactKind maps a format name used on the command line to a kind
func ParseArtifactKind(s string) ArtifactKind {
	switch s {
	case "sdist":
		return KindSdist
	case "wheel", "bdist_wheel", "whl":
		return KindWheel
	case "egg", "bdist_egg":
		return KindEgg
	default:
		return KindUnknown
	}
}

// Artifact is a built distribution unit
type Artifact struct {
	Kind     ArtifactKind
	Name     string // Project name as declared
	Version  string
	Path     string // Location on disk
	Filename string // Base name of Path
	IsDir    bool   // Unzipped egg

	// File information, empty for directories
	Size      int64
	MD5Sum    string
	SHA256Sum string

	RequiresPython string
	SignaturePath  string
}
