package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdsound-go/cmd/classify"
	"github.com/tphakala/birdsound-go/cmd/serve"
	"github.com/tphakala/birdsound-go/cmd/species"
	"github.com/tphakala/birdsound-go/cmd/version"
	"github.com/tphakala/birdsound-go/internal/buildinfo"
	"github.com/tphakala/birdsound-go/internal/conf"
	"github.com/tphakala/birdsound-go/internal/errors"
	"github.com/tphakala/birdsound-go/internal/logger"
	"github.com/tphakala/birdsound-go/internal/telemetry"
)

// telemetryFlushTimeout bounds the wait for queued Sentry events on exit.
const telemetryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(info *buildinfo.Context) *cobra.Command {
	// filled by PersistentPreRunE before any subcommand runs
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "birdsound",
		Short:         "Bird sound species classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	versionCmd := version.Command(info)
	subcommands := []*cobra.Command{
		classify.Command(settings),
		species.Command(settings),
		serve.Command(settings, info),
		versionCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version needs no configuration
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded

		return initialize(settings)
	}

	return rootCmd
}

// flush drains queued telemetry events and buffered log output.
var flush = func() {
	telemetry.Flush(telemetryFlushTimeout)
	_ = logger.Global().Flush()
}

// Execute runs root and flushes telemetry and logs, also when the command
// fails. cobra skips PersistentPostRun on error.
func Execute(root *cobra.Command) error {
	defer flush()
	return root.Execute()
}

// initialize sets up logging and telemetry from the loaded settings.
func initialize(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(cl)

	if err := telemetry.InitSentry(settings); err != nil {
		logger.Global().Module("main").Warn("sentry initialization failed, continuing without telemetry",
			logger.Error(err))
	}

	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to the config file")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("model", "", "Path to the model artifact (.tflite or .onnx)")
	flags.String("backend", "", "Model runtime: auto, tflite or onnx")
	flags.String("labels", "", "Path to the class index to label JSON map")
	flags.String("catalog", "", "Path to the species catalog YAML")
	flags.String("illustrations", "", "Directory holding species images")

	bindings := map[string]string{
		"debug":              "debug",
		"model.path":         "model",
		"model.backend":      "backend",
		"labels.path":        "labels",
		"species.catalog":    "catalog",
		"illustrations.path": "illustrations",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}

	return nil
}

// FormatError renders a command failure for the terminal, naming the
// classification failure kind when there is one.
func FormatError(err error) string {
	if kind := errors.KindOf(err); kind != "" {
		return fmt.Sprintf("Error [%s]: %v", kind, err)
	}
	return fmt.Sprintf("Error: %v", err)
}
