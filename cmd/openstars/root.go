package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/openstars/internal/config"
	"github.com/aretw0/openstars/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "openstars",
	Short: "OpenStars runs Star, a guided-dialogue superconnector",
	Long: `OpenStars runs Star, a concierge that walks founders, investors, researchers
and talent through a short guided conversation and introduces them to
relevant profiles.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides config)")
}

// loadConfig reads the config file named by --config plus the environment
// and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		cfg.Log.Format = f
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(level, logging.WithFormat(format))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
