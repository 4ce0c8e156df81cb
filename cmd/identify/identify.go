package identify

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petalnet/petalnet-go/internal/analysis"
	"github.com/petalnet/petalnet-go/internal/buildinfo"
	"github.com/petalnet/petalnet-go/internal/conf"
)

// Command creates the command that identifies a single photo offline.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify [photo]",
		Short: "Identify the flower in a photo",
		Long:  "Run the full identification pipeline on one PNG, JPEG or WebP file and print the top predictions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := analysis.Setup(cmd.Context(), settings, build, analysis.Options{})
			if err != nil {
				return err
			}
			defer services.Close()

			return analysis.FileAnalysis(cmd.Context(), services.Identifier, args[0], cmd.OutOrStdout())
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the identify command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().IntVar(&settings.Enrichment.RelatedImages, "related", viper.GetInt("enrichment.relatedimages"), "Number of related photos to list")
	cmd.Flags().DurationVar(&settings.Enrichment.Pause, "pause", viper.GetDuration("enrichment.pause"), "Pause between description lookups")

	return conf.BindFlags(cmd, map[string]string{
		"enrichment.relatedimages": "related",
		"enrichment.pause":         "pause",
	})
}
