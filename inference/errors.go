// inference/errors.go
package inference

import (
	"errors"
	"fmt"
)

// Errors returned to callers. Engine errors never escape a pass: every
// engine failure routes to the fallback analyzer instead.
var (
	// ErrLockBusy means another pass holds the execution lease. The caller
	// retries later; nothing was changed.
	ErrLockBusy = errors.New("an inference pass is already running")

	// ErrDataUnavailable means real mode was requested but no transaction
	// history exists yet. There is no degraded answer for "no data".
	ErrDataUnavailable = errors.New("no trading data available yet")

	// ErrRealModeDisabled means real-mode analysis is switched off in the
	// configuration.
	ErrRealModeDisabled = errors.New("real-data inference is disabled")
)

// Engine failure reasons, internal to the orchestrator.
var (
	ErrEngineNotInstalled = errors.New("analysis engine not installed")
	ErrEngineTimeout      = errors.New("analysis engine timed out")
	ErrEngineCrashed      = errors.New("analysis engine crashed or produced malformed output")
)

// IsEngineFailure reports whether err is one of the recoverable engine
// failures that route to the fallback analyzer.
func IsEngineFailure(err error) bool {
	return errors.Is(err, ErrEngineNotInstalled) ||
		errors.Is(err, ErrEngineTimeout) ||
		errors.Is(err, ErrEngineCrashed)
}

// PersistenceError reports that a result was computed but could not be
// written. The in-memory result rides along so the caller can still notify
// the user.
type PersistenceError struct {
	Result *Result
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("result computed but not persisted: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
