package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ralt/distgen/internal/archive"
	"github.com/ralt/distgen/internal/builder"
	"github.com/ralt/distgen/internal/builder/egg"
	"github.com/ralt/distgen/internal/builder/sdist"
	"github.com/ralt/distgen/internal/builder/wheel"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/signer"
	"github.com/ralt/distgen/internal/verify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	var config models.BuildConfig
	var formats []string

	cmd := &cobra.Command{
		Use:   "build [descriptor]",
		Short: "Build distributions",
		Long: `Validates the descriptor, builds the requested distributions,
verifies each one against the descriptor and optionally signs them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config.DescriptorPath = descriptorArg(args)
			if err := parseFormats(&config, formats); err != nil {
				return err
			}
			if !cmd.Flags().Changed("source-date-epoch") {
				if err := sourceDateEpochFromEnv(&config); err != nil {
					return err
				}
			}
			if err := validateBuildConfig(&config); err != nil {
				return err
			}

			logrus.Debugf("Configuration: %+v", config)

			artifacts, err := runBuild(cmd.Context(), &config)
			if err != nil {
				return err
			}
			for _, art := range artifacts {
				fmt.Fprintln(cmd.OutOrStdout(), art.Path)
			}
			return nil
		},
	}

	// Output flags
	cmd.Flags().StringVarP(&config.OutputDir, "output-dir", "o", "dist", "Output directory")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"sdist", "wheel", "egg"}, "Distributions to build (sdist, wheel, egg)")
	cmd.Flags().StringVar(&config.SdistFormat, "sdist-format", string(archive.FormatGzTar), "Source distribution archive (gztar, xztar, zsttar, tar, zip)")

	// Tag flags
	cmd.Flags().StringVar(&config.PythonTag, "python-tag", "py3", "Wheel python tag")
	cmd.Flags().StringVar(&config.EggPythonVer, "egg-python", "3", "Python version in the egg file name")

	// Reproducibility
	cmd.Flags().Int64Var(&config.SourceDateEpoch, "source-date-epoch", 0, "Timestamp for archive entries (defaults to $SOURCE_DATE_EPOCH)")

	// GPG signing flags
	cmd.Flags().StringVarP(&config.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key")
	cmd.Flags().StringVarP(&config.GPGPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")

	cmd.Flags().BoolVar(&config.NoVerify, "no-verify", false, "Skip verifying built distributions")

	return cmd
}

func parseFormats(config *models.BuildConfig, formats []string) error {
	config.Formats = config.Formats[:0]
	seen := make(map[models.ArtifactKind]bool)
	for _, f := range formats {
		kind := models.ParseArtifactKind(strings.TrimSpace(f))
		if kind == models.KindUnknown {
			return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("unknown format %q", f))
		}
		if !seen[kind] {
			seen[kind] = true
			config.Formats = append(config.Formats, kind)
		}
	}
	return nil
}

func sourceDateEpochFromEnv(config *models.BuildConfig) error {
	env := os.Getenv("SOURCE_DATE_EPOCH")
	if env == "" {
		return nil
	}
	epoch, err := strconv.ParseInt(env, 10, 64)
	if err != nil {
		return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("invalid SOURCE_DATE_EPOCH %q: %w", env, err))
	}
	config.SourceDateEpoch = epoch
	return nil
}

func validateBuildConfig(config *models.BuildConfig) error {
	if config.OutputDir == "" {
		return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("output-dir is required"))
	}

	if len(config.Formats) == 0 {
		return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("at least one format is required"))
	}

	if config.SdistFormat == "" {
		config.SdistFormat = string(archive.FormatGzTar)
	}
	if _, err := archive.ParseFormat(config.SdistFormat); err != nil {
		return models.NewError(models.ErrInvalidConfig, "", err)
	}

	if config.SourceDateEpoch < 0 {
		return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("source-date-epoch must not be negative"))
	}

	// Set defaults if not specified
	if config.PythonTag == "" {
		config.PythonTag = "py3"
	}
	if config.EggPythonVer == "" {
		config.EggPythonVer = "3"
	}
	if config.GeneratorName == "" {
		config.GeneratorName = fmt.Sprintf("distgen (%s)", Version)
	}

	return nil
}

// newBuilders returns a builder for each requested format, in order
func newBuilders(config *models.BuildConfig) []builder.Builder {
	builders := make([]builder.Builder, 0, len(config.Formats))
	for _, kind := range config.Formats {
		switch kind {
		case models.KindSdist:
			builders = append(builders, sdist.NewBuilder())
		case models.KindWheel:
			builders = append(builders, wheel.NewBuilder(config.GeneratorName))
		case models.KindEgg:
			builders = append(builders, egg.NewBuilder())
		}
	}
	return builders
}

func runBuild(ctx context.Context, config *models.BuildConfig) ([]models.Artifact, error) {
	// Step 1: Load and validate
	desc, err := loadAndValidate(config.DescriptorPath)
	if err != nil {
		return nil, err
	}

	// Step 2: Initialize signer before building so a bad key fails fast
	var gpgSigner signer.Signer
	if config.GPGKeyPath != "" {
		s, err := signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return nil, models.NewError(models.ErrSigning, desc.Name, fmt.Errorf("failed to initialize GPG signer: %w", err))
		}
		logrus.Infof("GPG signer initialized (key %s)", s.KeyID())
		gpgSigner = s
	}

	// Step 3: Build
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, models.NewError(models.ErrFileOp, desc.Name, err)
	}
	artifacts, err := builder.Run(ctx, config, desc, newBuilders(config))
	if err != nil {
		return nil, err
	}

	// Step 4: Verify
	if !config.NoVerify {
		for _, art := range artifacts {
			if err := verify.Artifact(ctx, art.Path, desc); err != nil {
				return nil, models.NewError(models.ErrVerify, desc.Name, fmt.Errorf("%s: %w", art.Filename, err))
			}
			logrus.Infof("Verified %s", art.Filename)
		}
	}

	// Step 5: Sign
	if gpgSigner != nil {
		for i := range artifacts {
			if err := signer.SignArtifact(gpgSigner, &artifacts[i]); err != nil {
				return nil, models.NewError(models.ErrSigning, desc.Name, err)
			}
		}
	}

	logrus.Infof("Built %d distributions of %s %s in %s", len(artifacts), desc.Name, desc.Version, config.OutputDir)
	return artifacts, nil
}
