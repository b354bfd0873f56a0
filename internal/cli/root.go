package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version of distgen, recorded in built wheels
const Version = "0.1.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "distgen",
		Short: "Build and publish Python distributions from a package descriptor",
		Long: `Distgen reads the setup() metadata of a setup.py or the [project]
table of a pyproject.toml and builds the distributions a packaging
tool would produce from it.

Supported distribution types:
  - Source distributions (.tar.gz, .tar.xz, .tar.zst, .tar, .zip)
  - Wheels (.whl)
  - Eggs (zipped, or unzipped when the package is not zip safe)

Built distributions can be verified, signed, and published as a
static simple index.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewVerifyCmd())
	rootCmd.AddCommand(NewIndexCmd())

	return rootCmd
}

// descriptorArg returns the descriptor path given on the command line, or the
// current directory
func descriptorArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
