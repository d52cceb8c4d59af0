package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/birdsound-go/internal/analysis"
	"github.com/tphakala/birdsound-go/internal/buildinfo"
	"github.com/tphakala/birdsound-go/internal/conf"
)

// Command creates the serve command running the HTTP classification service.
func Command(settings *conf.Settings, info buildinfo.BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP classification service",
		Long:  "Serve clip classification, the species list and illustrations over HTTP until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			service, err := analysis.NewService(ctx, settings, info, afero.NewOsFs())
			if err != nil {
				return err
			}
			return service.Run(ctx)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("host", "", "Interface to bind, empty for all")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Int("max-concurrent", 0, "Classifications running at once")
	cmd.Flags().Bool("mqtt", false, "Publish predictions to the configured MQTT broker")

	bindings := map[string]string{
		"webserver.host":          "host",
		"webserver.port":          "port",
		"webserver.maxconcurrent": "max-concurrent",
		"mqtt.enabled":            "mqtt",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
