package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jwtly10/shadertpl"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "shadertpl version %s\n", shadertpl.VERSION)
			fmt.Fprintf(out, "  Go:        %s\n", runtime.Version())
			return nil
		},
	}
}
