package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petalnet/petalnet-go/internal/buildinfo"
)

// Command creates the command that prints build metadata.
func Command(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of PetalNet-Go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "PetalNet-Go %s (built %s)\n", build.GetVersion(), build.GetBuildDate())
			return err
		},
	}
}
