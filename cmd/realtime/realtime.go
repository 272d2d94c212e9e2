package realtime

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nutriscan/arnutri-go/internal/conf"
	"github.com/nutriscan/arnutri-go/internal/session"
)

// Command creates the command that runs the full scanner session.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Run the scanner session",
		Long:  "Start the product resolution pipeline, panel tracking, and the HTTP API, and serve until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.Realtime(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the realtime command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the HTTP API")
	cmd.Flags().StringVar(&settings.Display.Mode, "display", viper.GetString("display.mode"), "Panel display mode (\"ar\" or \"screen\")")
	cmd.Flags().BoolVar(&settings.Scanner.Vision.Enabled, "vision", viper.GetBool("scanner.vision.enabled"), "Offer the visual recognition mode")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
