package catalog

import (
	"github.com/spf13/cobra"

	"github.com/petalnet/petalnet-go/internal/analysis"
	"github.com/petalnet/petalnet-go/internal/buildinfo"
	"github.com/petalnet/petalnet-go/internal/conf"
)

// Command creates the command that prints every species with its catalog photo.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print every species with a catalog photo",
		Long:  "Search one photo per species the way the gallery page does. Requires an image search access key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := analysis.Setup(cmd.Context(), settings, build, analysis.Options{})
			if err != nil {
				return err
			}
			defer services.Close()

			entries := services.Images.Catalog(cmd.Context(), services.Labels.Names())
			return analysis.WriteCatalog(cmd.OutOrStdout(), entries)
		},
	}
}
