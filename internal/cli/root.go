package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aptrepo",
		Short: "Build flat Debian repositories from .deb packages",
		Long: `Aptrepo reads .deb packages and writes a flat APT repository:
a Packages index with its compressed forms, a Release manifest and,
when a key is given, the Release.gpg and InRelease signatures.

The result is a static directory that can be served as a website and
referenced from sources.list as "deb <url> ./".`,
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
	rootCmd.AddCommand(NewCreateCmd())
	rootCmd.AddCommand(NewDigestCmd())

	return rootCmd
}
