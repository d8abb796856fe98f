package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, a.version)
			if a.verbose {
				fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
				fmt.Fprintf(out, "  catalog: %s\n", a.cfg.Catalog)
			}
		},
	}
}
