package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantfx/advisor/inference"
	"github.com/quantfx/advisor/notify"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Run a single analysis pass",
	Long: `Run one analysis pass and print the result.

The pass resolves account data, invokes the inference engine (or the local
fallback analyzer when the engine is unavailable), and persists the result
under the mode's output root.

Examples:
  advisor infer --mode real
  advisor infer --mode sim --notify`,
	RunE: runInfer,
}

var (
	inferMode   string
	inferNotify bool
)

func init() {
	rootCmd.AddCommand(inferCmd)

	inferCmd.Flags().StringVarP(&inferMode, "mode", "m", "real", `analysis mode: "real" or "sim"`)
	inferCmd.Flags().BoolVar(&inferNotify, "notify", false, "post the result to the configured webhook")
}

func runInfer(cmd *cobra.Command, args []string) error {
	mode, ok := inference.ParseMode(inferMode)
	if !ok {
		return fmt.Errorf("unknown mode %q", inferMode)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	res, err := a.orchestrator.Run(ctx, mode, inference.TriggerManual)
	if err != nil {
		var perr *inference.PersistenceError
		if errors.As(err, &perr) {
			// The analysis itself succeeded. Show it, then fail.
			printResult(perr.Result)
			fmt.Fprintf(os.Stderr, "warning: result not persisted: %v\n", perr.Err)
			return err
		}
		return err
	}

	printResult(res)

	if inferNotify {
		if err := postResult(ctx, a, res); err != nil {
			fmt.Fprintf(os.Stderr, "warning: notification failed: %v\n", err)
		}
	}
	return nil
}

func printResult(res *inference.Result) {
	fmt.Printf("Request:        %s\n", res.RequestID)
	fmt.Printf("Mode:           %s\n", res.SourceMode)
	fmt.Printf("Generated by:   %s\n", res.GeneratedBy)
	fmt.Printf("Recommendation: %s %s\n", res.Recommendation.Direction, res.Recommendation.Pair)
	if res.Recommendation.Direction != inference.Hold {
		fmt.Printf("Size:           %s of balance (%s units)\n",
			res.Recommendation.SizeFraction.String(), res.Recommendation.Amount.StringFixed(2))
	}
	fmt.Printf("Confidence:     %.0f%%\n", res.Confidence*100)
	if res.Location != "" {
		fmt.Printf("Stored at:      %s\n", res.Location)
	}
}

// postResult posts the summary with the persisted transcript attached.
func postResult(ctx context.Context, a *app, res *inference.Result) error {
	summary := notify.Summary(res)
	if res.Location == "" {
		return a.notifier.Post(ctx, summary)
	}
	transcript, err := os.ReadFile(filepath.Join(res.Location, "transcript.txt"))
	if err != nil {
		return a.notifier.Post(ctx, summary)
	}
	return a.notifier.PostFile(ctx, summary, "transcript.txt", transcript)
}
