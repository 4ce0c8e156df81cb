// Package cmd assembles the petalnet command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petalnet/petalnet-go/cmd/catalog"
	"github.com/petalnet/petalnet-go/cmd/identify"
	"github.com/petalnet/petalnet-go/cmd/labels"
	"github.com/petalnet/petalnet-go/cmd/serve"
	"github.com/petalnet/petalnet-go/cmd/version"
	"github.com/petalnet/petalnet-go/internal/buildinfo"
	"github.com/petalnet/petalnet-go/internal/conf"
	"github.com/petalnet/petalnet-go/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "petalnet",
		Short:         "PetalNet-Go flower identification",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	versionCmd := version.Command(build)
	rootCmd.AddCommand(
		serve.Command(settings, build),
		identify.Command(settings, build),
		labels.Command(settings),
		catalog.Command(settings, build),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(settings)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = logger.Global().Close()
	}

	return rootCmd
}

// initialize validates the flag-adjusted settings and installs the global logger.
func initialize(settings *conf.Settings) error {
	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	if settings.Main.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")
	flags.StringVar(&settings.Model.Path, "model", viper.GetString("model.path"), "Path to the classifier checkpoint (.tflite)")
	flags.StringVar(&settings.Model.LabelPath, "labels", viper.GetString("model.labelpath"), "Path to the JSON label file")
	flags.StringVar(&settings.Model.Layout, "layout", viper.GetString("model.layout"), "Input tensor layout: nhwc or nchw")
	flags.IntVar(&settings.Model.Threads, "threads", viper.GetInt("model.threads"), "Interpreter threads, 0 uses every CPU")

	return conf.BindFlags(rootCmd, map[string]string{
		"main.debug":      "debug",
		"model.path":      "model",
		"model.labelpath": "labels",
		"model.layout":    "layout",
		"model.threads":   "threads",
	})
}
