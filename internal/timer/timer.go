// Package timer measures wall-clock durations of named, repeated operations.
package timer

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"facecam/internal/logger"
)

// ErrInvalidState is returned when Start, Stop or Elapsed is called in the wrong state.
var ErrInvalidState = errors.New("timer: invalid state")

var unnamed atomic.Int64

// Timer remembers every run, the total time and the run count.
type Timer struct {
	label   string
	now     func() time.Time
	log     logger.Log
	mu      sync.Mutex
	started time.Time
	running bool
	total   time.Duration
	history []time.Duration
}

type Option func(*Timer)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithLogger makes Stop log every run.
func WithLogger(log logger.Log) Option {
	return func(t *Timer) { t.log = log }
}

// SummaryOptions suppresses parts of Summary.
type SummaryOptions struct {
	HideRuns    bool
	HideAverage bool
}

func New(label string, opts ...Option) *Timer {
	if label == "" {
		label = fmt.Sprintf("Timer-%d", unnamed.Add(1))
	}
	t := &Timer{label: label, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Timer) Label() string {
	return t.label
}

func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("%w: timer %q is already running", ErrInvalidState, t.label)
	}
	t.started = t.now()
	t.running = true
	return nil
}

// Stop records the run and returns its duration.
func (t *Timer) Stop() (time.Duration, error) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return 0, fmt.Errorf("%w: timer %q is not running", ErrInvalidState, t.label)
	}
	d := t.now().Sub(t.started)
	t.running = false
	t.total += d
	t.history = append(t.history, d)
	runs := len(t.history)
	t.mu.Unlock()

	if t.log != nil {
		t.log.Info("[T:%s] Run %d: %.4f seconds", t.label, runs, d.Seconds())
	}
	return d, nil
}

// Elapsed returns the time since Start without stopping.
func (t *Timer) Elapsed() (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0, fmt.Errorf("%w: timer %q is not running", ErrInvalidState, t.label)
	}
	return t.now().Sub(t.started), nil
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Runs() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.history)
}

func (t *Timer) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// History returns a copy of all recorded run durations, oldest first.
func (t *Timer) History() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.history...)
}

// Average is 0 when nothing has been recorded.
func (t *Timer) Average() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.average()
}

func (t *Timer) average() time.Duration {
	if len(t.history) == 0 {
		return 0
	}
	return t.total / time.Duration(len(t.history))
}

func (t *Timer) Summary(opts SummaryOptions) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "=== Timer Summary: %s ===\n", t.label)
	if !opts.HideRuns {
		fmt.Fprintf(&b, "Runs: %d\n", len(t.history))
	}
	fmt.Fprintf(&b, "Time: %.4f sec\n", t.total.Seconds())
	if !opts.HideAverage {
		fmt.Fprintf(&b, "Average time: %.4f sec\n", t.average().Seconds())
	}
	return b.String()
}
