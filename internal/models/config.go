package models

// BuildConfig contains configuration for building distributions
type BuildConfig struct {
	// Input/Output
	DescriptorPath string
	OutputDir      string

	// Formats to build, in order
	Formats     []ArtifactKind
	SdistFormat string // gztar, xztar, zsttar, tar or zip

	// Tags
	PythonTag     string // Wheel python tag, e.g. "py3"
	EggPythonVer  string // Egg python version, e.g. "3.12"
	GeneratorName string // Recorded in WHEEL

	// SourceDateEpoch fixes archive timestamps when non-zero
	SourceDateEpoch int64

	// Signing
	GPGKeyPath    string
	GPGPassphrase string

	// Skip the post-build metadata check
	NoVerify bool
}

// IndexConfig contains configuration for simple index generation
type IndexConfig struct {
	// Input/Output
	InputDir  string
	OutputDir string

	// BaseURL is prepended to package links when set, otherwise links are relative
	BaseURL string

	// Signing
	GPGKeyPath    string
	GPGPassphrase string

	// Incremental mode
	Incremental bool // Add new files to an existing index without removing existing ones
}
