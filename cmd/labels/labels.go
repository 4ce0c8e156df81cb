package labels

import (
	"github.com/spf13/cobra"

	"github.com/petalnet/petalnet-go/internal/analysis"
	"github.com/petalnet/petalnet-go/internal/conf"
	"github.com/petalnet/petalnet-go/internal/labels"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// Command creates the command that prints the class index to name table.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Print the class index to species table",
		Long:  "Load the label file the way the classifier sees it and print one line per output index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// an unusable file still prints the synthetic table
			resolver, _ := labels.Load(settings.Model.LabelPath, settings.Model.ClassCount, logger.Global().Module("labels"))
			return analysis.WriteLabels(cmd.OutOrStdout(), resolver)
		},
	}
}
