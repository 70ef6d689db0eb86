// Package runner drives the sampling loop: read frames round-robin from every
// camera, hand every Nth frame to a strategy and record what it finds.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/service/ai"
	"facecam/internal/service/camera"
	"facecam/internal/service/storage"
	"facecam/internal/timer"

	"github.com/google/uuid"
)

var (
	ErrNoDevices       = errors.New("no camera devices configured")
	ErrInvalidInterval = errors.New("sampling interval must be at least 1 frame")
)

type State int32

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// Params configures one session.
type Params struct {
	Framerate   int
	SampleEvery int
	Devices     []string
	MaxDuration time.Duration // 0 runs until cancelled
}

func DefaultParams() Params {
	return Params{Framerate: 24, SampleEvery: 24, Devices: []string{"0"}}
}

func (p Params) validate() error {
	if len(p.Devices) == 0 {
		return ErrNoDevices
	}
	if p.SampleEvery < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInterval, p.SampleEvery)
	}
	return nil
}

// Recorder persists one observation. *storage.Sink implements it.
type Recorder interface {
	Record(obs model.Observation) storage.RecordResult
}

// SinkFunc picks the recorder for a strategy name.
type SinkFunc func(strategy string) Recorder

type Option func(*Runner)

// WithProgress sets the callback that receives session start, per-analysis
// digests, read failures and the final summary. It is called from the loop
// goroutine and must not block.
func WithProgress(fn func(text string)) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithClock replaces time.Now for observation timestamps and timers.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner owns at most one active session at a time.
type Runner struct {
	opener   camera.Opener
	sinks    SinkFunc
	logger   logger.Log
	metrics  *Metrics
	progress func(string)
	now      func() time.Time

	mu      sync.Mutex // serializes Start and Cancel
	current atomic.Pointer[session]

	lastMu sync.Mutex
	last   *Summary
}

func New(opener camera.Opener, sinks SinkFunc, logger logger.Log, metrics *Metrics, opts ...Option) *Runner {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	r := &Runner{
		opener:  opener,
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) State() State {
	s := r.current.Load()
	if s == nil {
		return Idle
	}
	return s.state()
}

// Start opens every device and launches the loop. A running session is
// cancelled and waited for first. If any device fails to open, the ones
// already opened are closed and no session starts.
func (r *Runner) Start(strategy ai.Strategy, params Params) error {
	_, err := r.start(context.Background(), strategy, params)
	return err
}

func (r *Runner) start(ctx context.Context, strategy ai.Strategy, params Params) (*session, error) {
	if err := params.validate(); err != nil {
		r.logger.Error("Run model error: %v", err)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev := r.current.Load(); prev != nil && r.State() != Idle {
		r.logger.Info("Session %s still running, stopping it first", prev.id)
		r.stopSession(prev, ReasonCancelled)
	}

	sources, err := r.openAll(params)
	if err != nil {
		r.logger.Error("Run model error: %v", err)
		r.emit(fmt.Sprintf("Run Model Error: %v", err))
		return nil, err
	}

	s := r.newSession(ctx, strategy, params)
	r.current.Store(s)
	r.metrics.SessionsStarted.WithLabelValues(strategy.Name()).Inc()

	go r.loop(s, sources)
	return s, nil
}

func (r *Runner) openAll(params Params) ([]camera.Source, error) {
	sources := make([]camera.Source, 0, len(params.Devices))
	for _, id := range params.Devices {
		src, err := r.opener.Open(id, params.Framerate)
		if err != nil {
			closeAll(sources, r.logger)
			return nil, fmt.Errorf("could not open camera %s: %w", id, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// Cancel asks the active session to stop and waits until the runner is idle.
// It is a no-op when nothing runs.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.current.Load(); s != nil {
		r.stopSession(s, ReasonCancelled)
	}
}

func (r *Runner) stopSession(s *session, reason StopReason) {
	s.requestStop(reason)
	<-s.done
}

// Wait blocks until the current session ends and returns its summary.
// ok is false when no session was ever started.
func (r *Runner) Wait() (Summary, bool) {
	s := r.current.Load()
	if s == nil {
		return Summary{}, false
	}
	<-s.done
	return s.summary, true
}

// Run starts a session and blocks until it ends. Cancelling ctx stops the
// session the same way Cancel does.
func (r *Runner) Run(ctx context.Context, strategy ai.Strategy, params Params) (Summary, error) {
	s, err := r.start(ctx, strategy, params)
	if err != nil {
		return Summary{}, err
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.requestStop(ReasonContext)
		<-s.done
	}
	return s.summary, nil
}

// Last returns the summary of the most recently finished session.
func (r *Runner) Last() (Summary, bool) {
	r.lastMu.Lock()
	defer r.lastMu.Unlock()
	if r.last == nil {
		return Summary{}, false
	}
	return *r.last, true
}

// Status is a point-in-time view of the runner, safe to take while the loop runs.
type Status struct {
	State           string   `json:"state"`
	SessionID       string   `json:"session_id,omitempty"`
	Strategy        string   `json:"strategy,omitempty"`
	Devices         []string `json:"devices,omitempty"`
	FrameCounter    int64    `json:"frame_counter"`
	AnalysisCounter int64    `json:"analysis_counter"`
	ReadFailures    int64    `json:"read_failures"`
	ElapsedSeconds  float64  `json:"elapsed_seconds"`
}

func (r *Runner) Status() Status {
	st := Status{State: r.State().String()}
	s := r.current.Load()
	if s == nil {
		return st
	}
	st.SessionID = s.id.String()
	st.Strategy = s.strategy.Name()
	st.Devices = append([]string(nil), s.params.Devices...)
	st.FrameCounter = s.frames.Load()
	st.AnalysisCounter = s.analyses.Load()
	st.ReadFailures = s.readFailures.Load()
	elapsed, err := s.total.Elapsed()
	if err != nil {
		elapsed = s.total.Total()
	}
	st.ElapsedSeconds = elapsed.Seconds()
	return st
}

func (r *Runner) loop(s *session, sources []camera.Source) {
	defer close(s.done)
	defer s.cancel()

	r.emit(fmt.Sprintf("Running %s model on camera(s) %s, analyzing every %d frame(s)",
		s.strategy.Name(), strings.Join(s.params.Devices, ", "), s.params.SampleEvery))
	r.logger.Info("Session %s started (%s, devices %v)", s.id, s.strategy.Name(), s.params.Devices)

	if err := s.total.Start(); err != nil {
		r.logger.Warning("Session timer: %v", err)
	}

rounds:
	for {
		for _, src := range sources {
			if s.mustStop.Load() {
				break rounds
			}
			r.step(s, src)
		}

		if s.params.MaxDuration > 0 {
			if elapsed, err := s.total.Elapsed(); err == nil && elapsed >= s.params.MaxDuration {
				s.setReason(ReasonBudget)
				msg := fmt.Sprintf("%s elapsed, stopping analysis.", s.params.MaxDuration)
				r.emit(msg)
				r.logger.Info("%s", msg)
				break
			}
		}
	}

	closeAll(sources, r.logger)
	elapsed, err := s.total.Stop()
	if err != nil {
		r.logger.Warning("Session timer: %v", err)
	}

	s.summary = s.buildSummary(elapsed)
	r.lastMu.Lock()
	last := s.summary
	r.last = &last
	r.lastMu.Unlock()

	text := s.summary.String()
	r.emit(text)
	r.logger.Info("Session %s finished (%s)\n%s", s.id, s.summary.StopReason, text)
}

// step reads one frame from src and analyzes it if it is a sampled frame.
func (r *Runner) step(s *session, src camera.Source) {
	frame, err := src.Read()
	if err != nil {
		s.readFailures.Add(1)
		r.metrics.ReadFailures.WithLabelValues(src.ID()).Inc()
		msg := fmt.Sprintf("Run Model Error: Could not read frame from camera %s.", src.ID())
		r.logger.Warning("%s %v", msg, err)
		r.emit(msg)
		return
	}
	defer frame.Close()

	n := s.frames.Add(1)
	r.metrics.FramesRead.Inc()
	if n%int64(s.params.SampleEvery) != 0 {
		return
	}

	r.emit(fmt.Sprintf("Processing frame %d", n))
	r.analyze(s, frame)
}

func (r *Runner) analyze(s *session, frame camera.Frame) {
	name := s.strategy.Name()
	r.metrics.AnalysesAttempted.WithLabelValues(name).Inc()

	if err := s.analysis.Start(); err != nil {
		r.logger.Warning("Analysis timer: %v", err)
	}
	result := s.strategy.Analyze(s.ctx, frame)
	if d, err := s.analysis.Stop(); err == nil {
		r.metrics.AnalysisDuration.WithLabelValues(name).Observe(d.Seconds())
	}

	face, ok := result.First()
	if !ok {
		return
	}
	s.analyses.Add(1)
	r.metrics.AnalysesWithResult.WithLabelValues(name).Inc()

	obs := model.NewObservation(r.now(), face.Age, face.DominantGender, face.DominantRace)
	if s.sink != nil {
		res := s.sink.Record(obs)
		if res.LogErr != nil {
			r.metrics.PersistenceFailures.WithLabelValues("log").Inc()
		}
		if res.DBErr != nil {
			r.metrics.PersistenceFailures.WithLabelValues("database").Inc()
		}
	}

	digest := obs.Digest()
	r.logger.Info("%s", digest)
	r.emit(digest)
}

func (r *Runner) emit(text string) {
	if r.progress != nil {
		r.progress(text)
	}
}

func (r *Runner) newSession(ctx context.Context, strategy ai.Strategy, params Params) *session {
	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		id:       uuid.New(),
		strategy: strategy,
		params:   params,
		ctx:      ctx,
		cancel:   cancel,
		total:    timer.New("Total", timer.WithClock(r.now)),
		analysis: timer.New("Analysis", timer.WithClock(r.now), timer.WithLogger(r.logger)),
		done:     make(chan struct{}),
	}
	if r.sinks != nil {
		s.sink = r.sinks(strategy.Name())
	}
	return s
}

func closeAll(sources []camera.Source, log logger.Log) {
	for _, src := range sources {
		if err := src.Close(); err != nil {
			log.Warning("Close camera %s error: %v", src.ID(), err)
		}
	}
}
