package main

import (
	"fmt"
	"net"

	"github.com/aretw0/openstars"
	"github.com/aretw0/openstars/internal/cli"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts Star behind a JSON HTTP API.

Sessions are created with POST /sessions and followed live through the
Server-Sent Events stream at /sessions/{id}/events. Prometheus metrics are
exposed at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		app, err := cli.Build(sc, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				logger.Warn("Shutdown finished with errors", "err", err)
			}
		}()

		ln, err := net.Listen("tcp", cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
		}

		if err := cli.Serve(sc, ln, cli.NewAPIHandler(app, openstars.Version, logger), logger); err != nil {
			return err
		}
		if sig := sc.Signal(); sig != nil {
			logger.Info("Stopped by signal", "signal", sig.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides config)")
}
