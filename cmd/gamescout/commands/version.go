package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// These will be set by build flags
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gamescout version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "built: %s\n", date)
		},
	}

	return cmd
}
