package cli

import (
	"fmt"
	"os"

	"github.com/ralt/distgen/internal/models"
	"github.com/ralt/distgen/internal/signer"
	"github.com/ralt/distgen/internal/verify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var descriptorPath, keyPath string

	cmd := &cobra.Command{
		Use:   "verify [descriptor] ARTIFACT...",
		Short: "Check distributions against their descriptor",
		Long: `Checks that each distribution declares exactly the name and
version of the descriptor and contains every declared package.

With --gpg-key, the .asc signature next to each distribution file must
also verify against that key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && !isArtifact(args[0]) {
				descriptorPath, args = args[0], args[1:]
			}

			desc, err := loadAndValidate(descriptorPath)
			if err != nil {
				return err
			}

			var keyRing []byte
			if keyPath != "" {
				if keyRing, err = os.ReadFile(keyPath); err != nil {
					return models.NewError(models.ErrSigning, desc.Name, err)
				}
			}

			failed := 0
			for _, path := range args {
				if err := verify.Artifact(cmd.Context(), path, desc); err != nil {
					logrus.Errorf("%s: %v", path, err)
					failed++
					continue
				}
				if keyRing != nil {
					if err := checkSignature(keyRing, path); err != nil {
						logrus.Errorf("%s: %v", path, err)
						failed++
						continue
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", path)
			}

			if failed > 0 {
				return models.NewError(models.ErrVerify, desc.Name, fmt.Errorf("%d of %d distributions failed verification", failed, len(args)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&descriptorPath, "descriptor", "d", ".", "Descriptor file or project directory")
	cmd.Flags().StringVarP(&keyPath, "gpg-key", "k", "", "GPG public (or private) key to check signatures against")

	return cmd
}

func isArtifact(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return verify.KindOf(path, info.IsDir()) != models.KindUnknown
}

// checkSignature verifies the .asc next to a distribution file. Unzipped
// eggs are directories and never signed.
func checkSignature(keyRing []byte, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		logrus.Debugf("Skipping signature check for directory %s", path)
		return nil
	}
	return signer.VerifyArtifact(keyRing, path)
}
