package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfx/advisor/config"
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "An FX analysis bot with an external inference engine",
	Long: `Advisor watches an FX trading account and produces trade recommendations.

It provides tools for:
  - Running one-shot analysis passes against the real or a simulated account
  - Scheduling periodic background analysis
  - Invoking an external inference engine with a bounded timeout
  - Falling back to local transaction-history analysis when the engine fails
  - Posting result summaries to a messaging webhook`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var (
	cfgPath string
	envPath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "path to .env file (default ./.env if present)")
}

// loadConfig resolves configuration for a subcommand: config file when
// given, otherwise defaults plus environment.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		cfg, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadEnv(envPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
