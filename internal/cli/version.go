package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/tnr"

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tnr version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonMode {
				return a.report(cmd.OutOrStdout(), map[string]string{"version": Version, "module": modulePath}, "")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tnr v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
