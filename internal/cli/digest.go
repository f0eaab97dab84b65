package cli

import (
	"fmt"

	"github.com/ralt/aptrepo/internal/utils"
	"github.com/spf13/cobra"
)

// NewDigestCmd creates the digest command
func NewDigestCmd() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "digest [flags] FILE...",
		Short: "Print file digests",
		Long: fmt.Sprintf(`Prints the hex digest of each file in the format used by sha256sum.

Supported algorithms: %v`, utils.AlgorithmNames()),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reject unknown names before touching any file
			if _, err := utils.LookupAlgorithm(algorithm); err != nil {
				return err
			}

			for _, path := range args {
				sum, err := utils.Digest(algorithm, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "SHA256", "Digest algorithm")

	return cmd
}
