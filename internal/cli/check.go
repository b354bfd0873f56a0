package cli

import (
	"errors"
	"fmt"

	"github.com/ralt/distgen/internal/descriptor"
	"github.com/ralt/distgen/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [descriptor]",
		Short: "Validate a package descriptor",
		Long: `Loads setup.py or pyproject.toml and reports every problem that
would prevent building it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadAndValidate(descriptorArg(args))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: OK\n", desc.Name, desc.Version)
			return nil
		},
	}
}

// loadAndValidate loads the descriptor at path and logs every validation
// problem before failing
func loadAndValidate(path string) (*models.Descriptor, error) {
	logrus.Infof("Loading descriptor: %s", path)
	desc, err := descriptor.Load(path)
	if err != nil {
		return nil, err
	}

	problems := descriptor.Validate(desc)
	if len(problems) == 0 {
		return desc, nil
	}

	for _, p := range problems {
		logrus.Errorf("%s: %v", desc.SourcePath, p)
	}
	return nil, models.NewError(models.ErrInvalidDescriptor, desc.Name,
		fmt.Errorf("%d problems found: %w", len(problems), errors.Join(problems...)))
}
