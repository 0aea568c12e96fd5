package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/advisor/inference"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	results []*inference.Result
	errs    []error
}

// Run replays the configured result/error sequence, repeating the last
// entry once exhausted.
func (f *fakeRunner) Run(ctx context.Context, mode inference.Mode, trigger inference.Trigger) (*inference.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.errs) {
		i = len(f.errs) - 1
	}
	if f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.results[i], nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu    sync.Mutex
	posts []string
}

func (r *recordingNotifier) Post(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, text)
	return nil
}

func (r *recordingNotifier) PostFile(ctx context.Context, text, filename string, contents []byte) error {
	return r.Post(ctx, text)
}

func (r *recordingNotifier) posted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.posts...)
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func okResult() *inference.Result {
	return &inference.Result{
		RequestID:   "sim-01TEST",
		SourceMode:  inference.ModeSimulated,
		Confidence:  0.4,
		GeneratedBy: inference.ByFallback,
	}
}

func TestSchedulerDisabledReturnsImmediately(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{errs: []error{nil}, results: []*inference.Result{okResult()}}
	s := New(runner, nil, testLogger(), time.Millisecond, inference.ModeSimulated, false)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disabled scheduler must not block")
	}
	assert.Zero(t, runner.count())
}

func TestSchedulerTicksAndNotifies(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{errs: []error{nil}, results: []*inference.Result{okResult()}}
	notifier := &recordingNotifier{}
	s := New(runner, notifier, testLogger(), 10*time.Millisecond, inference.ModeSimulated, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.count() >= 2 }, 5*time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	posts := notifier.posted()
	require.NotEmpty(t, posts)
	assert.Contains(t, posts[0], "sim-01TEST")
}

func TestSchedulerSkipsWhenBusy(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		errs:    []error{inference.ErrLockBusy, nil},
		results: []*inference.Result{nil, okResult()},
	}
	notifier := &recordingNotifier{}
	s := New(runner, notifier, testLogger(), 10*time.Millisecond, inference.ModeSimulated, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.count() >= 2 }, 5*time.Second, time.Millisecond)
	cancel()
	<-done

	// The busy tick is silent; only the successful pass is reported.
	for _, p := range notifier.posted() {
		assert.NotContains(t, p, "failed")
	}
}

func TestSchedulerNotifiesOnFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("ledger unreadable")
	runner := &fakeRunner{errs: []error{boom}, results: []*inference.Result{nil}}
	notifier := &recordingNotifier{}
	s := New(runner, notifier, testLogger(), 10*time.Millisecond, inference.ModeReal, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(notifier.posted()) >= 1 }, 5*time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Contains(t, notifier.posted()[0], "ledger unreadable")
}
