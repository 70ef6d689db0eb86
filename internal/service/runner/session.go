package runner

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"facecam/internal/service/ai"
	"facecam/internal/timer"

	"github.com/google/uuid"
)

type StopReason int32

const (
	ReasonNone StopReason = iota
	ReasonCancelled
	ReasonBudget
	ReasonContext
)

func (r StopReason) String() string {
	switch r {
	case ReasonCancelled:
		return "cancelled"
	case ReasonBudget:
		return "budget"
	case ReasonContext:
		return "context"
	}
	return "none"
}

func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *StopReason) UnmarshalText(text []byte) error {
	for _, reason := range []StopReason{ReasonNone, ReasonCancelled, ReasonBudget, ReasonContext} {
		if reason.String() == string(text) {
			*r = reason
			return nil
		}
	}
	return fmt.Errorf("unknown stop reason %q", text)
}

// session is the state of one start-to-stop run. Counters are written only by
// the loop goroutine and read atomically by Status.
type session struct {
	id       uuid.UUID
	strategy ai.Strategy
	params   Params
	sink     Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mustStop atomic.Bool
	reason   atomic.Int32
	done     chan struct{}

	frames       atomic.Int64
	analyses     atomic.Int64
	readFailures atomic.Int64

	total    *timer.Timer
	analysis *timer.Timer

	summary Summary // set before done is closed
}

// requestStop is polled by the loop at the top of every per-source iteration.
// The first reason recorded wins.
func (s *session) requestStop(reason StopReason) {
	s.setReason(reason)
	s.mustStop.Store(true)
}

func (s *session) setReason(reason StopReason) {
	s.reason.CompareAndSwap(int32(ReasonNone), int32(reason))
}

func (s *session) state() State {
	select {
	case <-s.done:
		return Idle
	default:
	}
	if s.mustStop.Load() {
		return Stopping
	}
	return Running
}

func (s *session) buildSummary(elapsed time.Duration) Summary {
	sum := Summary{
		SessionID:       s.id.String(),
		Strategy:        s.strategy.Name(),
		Devices:         append([]string(nil), s.params.Devices...),
		FrameCounter:    s.frames.Load(),
		AnalysisCounter: s.analyses.Load(),
		ReadFailures:    s.readFailures.Load(),
		Elapsed:         elapsed,
		ElapsedSeconds:  elapsed.Seconds(),
		StopReason:      StopReason(s.reason.Load()),
		TotalTimer:      s.total.Summary(timer.SummaryOptions{HideRuns: true, HideAverage: true}),
		AnalysisTimer:   s.analysis.Summary(timer.SummaryOptions{}),
	}
	if elapsed > 0 {
		sum.EstimatedFPS = float64(sum.FrameCounter) / elapsed.Seconds()
	}
	return sum
}

// Summary is emitted exactly once when a session stops.
type Summary struct {
	SessionID       string        `json:"session_id"`
	Strategy        string        `json:"strategy"`
	Devices         []string      `json:"devices"`
	FrameCounter    int64         `json:"frame_counter"`
	AnalysisCounter int64         `json:"analysis_counter"`
	ReadFailures    int64         `json:"read_failures"`
	Elapsed         time.Duration `json:"-"`
	ElapsedSeconds  float64       `json:"elapsed_seconds"`
	EstimatedFPS    float64       `json:"estimated_fps"`
	StopReason      StopReason    `json:"stop_reason"`
	TotalTimer      string        `json:"total_timer"`
	AnalysisTimer   string        `json:"analysis_timer"`
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "==== %s MODEL\n", strings.ToUpper(s.Strategy))
	b.WriteString("== Performance Summary\n")
	fmt.Fprintf(&b, "Processed Frames: %d\n", s.FrameCounter)
	fmt.Fprintf(&b, "Analysed Frames: %d\n", s.AnalysisCounter)
	fmt.Fprintf(&b, "Estimated FPS: %.2f\n", s.EstimatedFPS)
	b.WriteString("\n")
	b.WriteString(s.TotalTimer)
	b.WriteString("\n")
	b.WriteString(s.AnalysisTimer)
	return b.String()
}
