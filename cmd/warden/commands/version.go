package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardenscan/warden/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "warden %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)

			return nil
		},
	}
}
