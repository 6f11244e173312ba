package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(app *viewer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, app.version)
		},
	}
}
