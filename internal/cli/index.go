package cli

import (
	"context"
	"fmt"

	"github.com/ralt/distgen/internal/index"
	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/scanner"
	"github.com/ralt/distgen/internal/signer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	var config models.IndexConfig

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Generate a simple package index",
		Long: `Scans the input directory for distributions and generates a
static simple repository (HTML and JSON pages) that pip can install
from with --index-url.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIndexConfig(&config); err != nil {
				return err
			}

			logrus.Info("Starting index generation...")
			logrus.Debugf("Configuration: %+v", config)

			return runIndex(cmd.Context(), &config)
		},
	}

	// Input/Output flags
	cmd.Flags().StringVarP(&config.InputDir, "input-dir", "i", "dist", "Input directory to scan")
	cmd.Flags().StringVarP(&config.OutputDir, "output-dir", "o", "./repo", "Output directory")
	cmd.Flags().StringVar(&config.BaseURL, "base-url", "", "Absolute URL the repository is served from (links are relative otherwise)")

	// GPG signing flags
	cmd.Flags().StringVarP(&config.GPGKeyPath, "gpg-key", "k", "", "Path to GPG private key")
	cmd.Flags().StringVarP(&config.GPGPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")

	cmd.Flags().BoolVar(&config.Incremental, "incremental", false, "Keep files already published in the output directory")

	return cmd
}

func validateIndexConfig(config *models.IndexConfig) error {
	if config.InputDir == "" {
		return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("input-dir is required"))
	}

	if config.OutputDir == "" {
		return models.NewError(models.ErrInvalidConfig, "", fmt.Errorf("output-dir is required"))
	}

	return nil
}

func runIndex(ctx context.Context, config *models.IndexConfig) error {
	// Step 1: Scan for distributions
	logrus.Infof("Scanning directory: %s", config.InputDir)
	scanned, err := scanner.NewFileSystemScanner().Scan(ctx, config.InputDir)
	if err != nil {
		return models.NewError(models.ErrFileOp, "", fmt.Errorf("failed to scan directory: %w", err))
	}

	if len(scanned) == 0 && !config.Incremental {
		logrus.Warn("No distributions found in input directory")
		return nil
	}

	// Step 2: Read metadata
	var artifacts []models.Artifact
	for _, s := range scanned {
		if s.IsDir {
			logrus.Warnf("Skipping %s: unzipped eggs cannot be indexed", s.Path)
			continue
		}

		logrus.Debugf("Parsing %s: %s", s.Kind, s.Path)
		art, err := index.ParseArtifact(s)
		if err != nil {
			logrus.Warnf("Failed to parse %s: %v", s.Path, err)
			continue
		}
		artifacts = append(artifacts, *art)
	}

	// Step 3: Initialize signer
	var gpgSigner signer.Signer
	if config.GPGKeyPath != "" {
		s, err := signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase)
		if err != nil {
			return models.NewError(models.ErrSigning, "", fmt.Errorf("failed to initialize GPG signer: %w", err))
		}
		logrus.Infof("GPG signer initialized (key %s)", s.KeyID())
		gpgSigner = s
	}

	// Step 4: Generate
	if err := index.NewGenerator(gpgSigner).Generate(ctx, config, artifacts); err != nil {
		return models.NewError(models.ErrIndexGen, "", err)
	}

	logrus.Info("Index generation completed successfully!")
	logrus.Infof("Output directory: %s", config.OutputDir)
	return nil
}
