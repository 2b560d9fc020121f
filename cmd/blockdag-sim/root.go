package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"blockdag-sim/internal/config"
	"blockdag-sim/internal/logging"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "blockdag-sim",
	Short: "BlockDAG node fleet simulator",
	Long: "blockdag-sim simulates the telemetry of a small BlockDAG node fleet, evaluates alert " +
		"rules against it and exports samples and alert transitions.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(scenariosCmd)
}

// loadConfig reads the dotenv file and the configuration, then installs the
// process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(log)
	return cfg, log, nil
}
