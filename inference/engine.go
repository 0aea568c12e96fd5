// inference/engine.go
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/quantfx/advisor/market"
)

// EngineResult is what a successful engine invocation yields: the parsed
// analysis output plus the full transcript for the audit artifact.
type EngineResult struct {
	Output     RawOutput
	Transcript string
}

// Engine is one invocable handle on the external analysis engine.
type Engine interface {
	// Invoke runs the engine against the snapshot under the given timeout.
	// Failures are one of ErrEngineTimeout or ErrEngineCrashed (possibly
	// wrapped); none are retried here.
	Invoke(ctx context.Context, snap *market.Snapshot) (*EngineResult, error)
}

// Locator resolves the engine's presence. Resolution happens once per pass
// and is never cached, so installing or removing the engine between passes
// is honored without a restart.
type Locator interface {
	// Locate returns an invocable engine, or ErrEngineNotInstalled when
	// the engine is absent at the configured location.
	Locate() (Engine, error)
}

// ExecLocator locates the engine as an executable at a fixed path.
type ExecLocator struct {
	Path    string
	Timeout time.Duration
}

func (l ExecLocator) Locate() (Engine, error) {
	info, err := os.Stat(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotInstalled, l.Path)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrEngineNotInstalled, l.Path)
	}
	return &execEngine{path: l.Path, timeout: l.Timeout}, nil
}

// execEngine runs the engine as a subprocess: snapshot JSON on stdin, one
// JSON analysis document on stdout. The combined output is kept as the
// transcript.
type execEngine struct {
	path    string
	timeout time.Duration
}

func (e *execEngine) Invoke(ctx context.Context, snap *market.Snapshot) (*EngineResult, error) {
	input, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.path)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	transcript := buildTranscript(stdout.Bytes(), stderr.Bytes())

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrEngineTimeout, e.timeout)
		}
		// Cancelled from outside, not an engine fault.
		return nil, fmt.Errorf("engine invocation cancelled: %w", ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("%w: exit status %d", ErrEngineCrashed, exitErr.ExitCode())
		}
		return nil, fmt.Errorf("%w: %v", ErrEngineCrashed, runErr)
	}

	var out RawOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: parse output: %v", ErrEngineCrashed, err)
	}
	if err := validateOutput(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineCrashed, err)
	}

	return &EngineResult{Output: out, Transcript: transcript}, nil
}

func validateOutput(out RawOutput) error {
	switch out.Direction {
	case Buy, Sell, Hold:
	default:
		return fmt.Errorf("unknown action %q", out.Direction)
	}
	if out.Direction != Hold && !out.Pair.Valid() {
		return fmt.Errorf("invalid pair %q", out.Pair)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range", out.Confidence)
	}
	if out.SizeFraction.IsNegative() {
		return fmt.Errorf("negative size fraction %s", out.SizeFraction)
	}
	return nil
}

func buildTranscript(stdout, stderr []byte) string {
	var b bytes.Buffer
	b.WriteString("--- stdout ---\n")
	b.Write(stdout)
	if len(stderr) > 0 {
		b.WriteString("\n--- stderr ---\n")
		b.Write(stderr)
	}
	return b.String()
}
