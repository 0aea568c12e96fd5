package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantfx/advisor/inference"
	"github.com/quantfx/advisor/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot with the periodic trigger",
	Long: `Start the bot and keep it running.

Analysis passes fire at the configured interval until the process receives
SIGINT or SIGTERM. A pass already in flight at shutdown runs to completion.

Example:
  advisor run --config advisor.yaml`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, ok := inference.ParseMode(cfg.Periodic.Mode)
	if !ok {
		return fmt.Errorf("unknown periodic mode %q", cfg.Periodic.Mode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(a.orchestrator, a.notifier, a.log,
		cfg.Periodic.Interval.Std(), mode, cfg.Periodic.Enabled)

	a.log.Info("advisor started",
		"mode", mode, "interval", cfg.Periodic.Interval, "periodic", cfg.Periodic.Enabled)

	err = s.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info("advisor stopped")
	return nil
}
