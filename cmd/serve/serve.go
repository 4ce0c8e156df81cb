package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petalnet/petalnet-go/internal/analysis"
	"github.com/petalnet/petalnet-go/internal/buildinfo"
	"github.com/petalnet/petalnet-go/internal/conf"
)

// Command creates the command that runs the web interface.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Long:  "Start the web server that accepts flower photos and shows the identified species.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := analysis.Setup(ctx, settings, build, analysis.Options{History: true, Publish: true})
			if err != nil {
				return err
			}
			defer services.Close()

			return analysis.Serve(ctx, services)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVarP(&settings.WebServer.Listen, "listen", "l", viper.GetString("webserver.listen"), "Listen address and port of the web server")
	cmd.Flags().StringVar(&settings.WebServer.UploadDir, "uploaddir", viper.GetString("webserver.uploaddir"), "Directory uploaded photos are stored in")
	cmd.Flags().IntVar(&settings.WebServer.MaxUploadMB, "maxupload", viper.GetInt("webserver.maxuploadmb"), "Upload size limit in MB")
	cmd.Flags().BoolVar(&settings.Output.SQLite.Enabled, "history", viper.GetBool("output.sqlite.enabled"), "Record identifications in the SQLite history")

	return conf.BindFlags(cmd, map[string]string{
		"webserver.listen":      "listen",
		"webserver.uploaddir":   "uploaddir",
		"webserver.maxuploadmb": "maxupload",
		"output.sqlite.enabled": "history",
	})
}
