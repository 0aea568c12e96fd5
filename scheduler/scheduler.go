// Package scheduler drives periodic inference passes off a wall-clock
// ticker. It owns no analysis logic: each tick hands off to the
// orchestrator and reports the outcome.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/quantfx/advisor/inference"
	"github.com/quantfx/advisor/notify"
)

// Runner is the slice of the orchestrator the scheduler needs.
type Runner interface {
	Run(ctx context.Context, mode inference.Mode, trigger inference.Trigger) (*inference.Result, error)
}

// Scheduler fires inference passes at a fixed interval in a fixed mode.
type Scheduler struct {
	runner   Runner
	notifier notify.Notifier
	log      *slog.Logger

	interval time.Duration
	mode     inference.Mode
	enabled  bool
}

// New builds a scheduler. When enabled is false Run returns immediately,
// so callers can start it unconditionally.
func New(runner Runner, notifier notify.Notifier, log *slog.Logger, interval time.Duration, mode inference.Mode, enabled bool) *Scheduler {
	if notifier == nil {
		notifier = notify.Log{Logger: log}
	}
	return &Scheduler{
		runner:   runner,
		notifier: notifier,
		log:      log,
		interval: interval,
		mode:     mode,
		enabled:  enabled,
	}
}

// Run blocks until ctx is cancelled. A tick that lands while a pass is in
// flight is dropped by the orchestrator's lock, not queued; the next tick
// is the retry. Cancellation stops future ticks but a pass already started
// runs to completion before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.enabled {
		s.log.Info("periodic trigger disabled")
		return nil
	}

	s.log.Info("periodic trigger started", "interval", s.interval, "mode", s.mode)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("periodic trigger stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled pass. The pass itself gets a background context
// so shutdown never kills it mid-flight; only scheduling honors ctx.
func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.runner.Run(context.WithoutCancel(ctx), s.mode, inference.TriggerPeriodic)

	switch {
	case err == nil:
		s.log.Info("scheduled pass complete",
			"request", res.RequestID, "origin", res.GeneratedBy, "confidence", res.Confidence)
		s.report(ctx, res)
	case errors.Is(err, inference.ErrLockBusy):
		// A previous pass is still running. Skipping is the contract.
		s.log.Info("scheduled pass skipped, previous pass still running")
	default:
		s.log.Error("scheduled pass failed", "error", err)
		if nerr := s.notifier.Post(ctx, fmt.Sprintf("Scheduled %s analysis failed: %v", s.mode, err)); nerr != nil {
			s.log.Warn("failure notification not delivered", "error", nerr)
		}
	}
}

// report posts the pass summary, with the persisted transcript attached
// when one exists.
func (s *Scheduler) report(ctx context.Context, res *inference.Result) {
	summary := notify.Summary(res)

	var err error
	if res.Location != "" {
		if transcript, rerr := os.ReadFile(filepath.Join(res.Location, "transcript.txt")); rerr == nil {
			err = s.notifier.PostFile(ctx, summary, "transcript.txt", transcript)
		} else {
			err = s.notifier.Post(ctx, summary)
		}
	} else {
		err = s.notifier.Post(ctx, summary)
	}
	if err != nil {
		s.log.Warn("result notification not delivered", "error", err)
	}
}
