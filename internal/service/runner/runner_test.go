package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/service/ai"
	"facecam/internal/service/camera"
	"facecam/internal/service/storage"
	"facecam/internal/timer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// rig is a fake camera bank. Sources share one successful-read sequence,
// which matches the runner's frame counter because the loop is single threaded.
type rig struct {
	mu           sync.Mutex
	seq          int64
	stopAfter    int64 // request a stop on this successful read; 0 never
	failOpen     map[string]bool
	failRead     map[string]bool
	opened       []*fakeSource
	framesClosed atomic.Int64
	runner       *Runner
}

func newRig() *rig {
	return &rig{failOpen: map[string]bool{}, failRead: map[string]bool{}}
}

func (g *rig) Open(id string, framerate int) (camera.Source, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failOpen[id] {
		return nil, fmt.Errorf("%w: %s", camera.ErrUnavailable, id)
	}
	src := &fakeSource{id: id, rig: g}
	g.opened = append(g.opened, src)
	return src, nil
}

func (g *rig) sources() []*fakeSource {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*fakeSource(nil), g.opened...)
}

func (g *rig) frames() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

type fakeSource struct {
	id     string
	rig    *rig
	reads  atomic.Int64
	closed atomic.Bool
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) Read() (camera.Frame, error) {
	s.reads.Add(1)
	g := s.rig
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRead[s.id] {
		return nil, fmt.Errorf("%w from camera %s", camera.ErrNoFrame, s.id)
	}
	g.seq++
	if g.stopAfter > 0 && g.seq == g.stopAfter {
		g.runner.current.Load().requestStop(ReasonCancelled)
	}
	return &fakeFrame{seq: g.seq, closed: &g.framesClosed}, nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeFrame struct {
	seq    int64
	closed *atomic.Int64
}

func (f *fakeFrame) Close() error {
	f.closed.Add(1)
	return nil
}

type fakeStrategy struct {
	mu     sync.Mutex
	seen   []int64
	result func(call int) ai.Result
}

func (s *fakeStrategy) Name() string { return "hybrid" }

func (s *fakeStrategy) Analyze(_ context.Context, frame camera.Frame) ai.Result {
	s.mu.Lock()
	s.seen = append(s.seen, frame.(*fakeFrame).seq)
	call := len(s.seen)
	s.mu.Unlock()

	if s.result != nil {
		return s.result(call)
	}
	return faceResult(30, "Man", "white")
}

func (s *fakeStrategy) calls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seen...)
}

func faceResult(age int, gender, race string) ai.Result {
	return ai.Result{
		Outcome: ai.OutcomeFaces,
		Faces:   []ai.Attributes{{Age: model.IntPtr(age), DominantGender: gender, DominantRace: race}},
	}
}

type fakeRecorder struct {
	mu     sync.Mutex
	obs    []model.Observation
	result storage.RecordResult
}

func (r *fakeRecorder) Record(obs model.Observation) storage.RecordResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, obs)
	return r.result
}

func (r *fakeRecorder) recorded() []model.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Observation(nil), r.obs...)
}

type progressLog struct {
	mu       sync.Mutex
	messages []string
}

func (p *progressLog) add(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

func (p *progressLog) summaries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if strings.Contains(m, "== Performance Summary") {
			n++
		}
	}
	return n
}

func (p *progressLog) contains(text string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.messages {
		if strings.Contains(m, text) {
			return true
		}
	}
	return false
}

type fixture struct {
	rig      *rig
	recorder *fakeRecorder
	progress *progressLog
	metrics  *Metrics
	runner   *Runner
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	f := &fixture{
		rig:      newRig(),
		recorder: &fakeRecorder{},
		progress: &progressLog{},
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}
	opts = append([]Option{WithProgress(f.progress.add)}, opts...)
	f.runner = New(f.rig, func(string) Recorder { return f.recorder }, logger.NewTestLogger(t), f.metrics, opts...)
	f.rig.runner = f.runner
	return f
}

func params(every int, devices ...string) Params {
	return Params{Framerate: 24, SampleEvery: every, Devices: devices}
}

func TestRunner_SamplesEveryNthFrame(t *testing.T) {
	for _, n := range []int{1, 2, 5, 7, 24} {
		t.Run(fmt.Sprintf("every %d", n), func(t *testing.T) {
			f := newFixture(t)
			f.rig.stopAfter = 50
			strategy := &fakeStrategy{}

			require.NoError(t, f.runner.Start(strategy, params(n, "0")))
			summary, ok := f.runner.Wait()
			require.True(t, ok)

			require.EqualValues(t, 50, summary.FrameCounter)
			calls := strategy.calls()
			require.Len(t, calls, 50/n)
			for _, seq := range calls {
				require.Zero(t, seq%int64(n), "frame %d analyzed", seq)
			}
			require.EqualValues(t, 50/n, summary.AnalysisCounter)
			require.EqualValues(t, 50, f.rig.framesClosed.Load())
		})
	}
}

func TestRunner_CountsOnlyNonEmptyResults(t *testing.T) {
	f := newFixture(t)
	f.rig.stopAfter = 40
	strategy := &fakeStrategy{result: func(call int) ai.Result {
		switch call % 3 {
		case 0:
			return ai.Result{Outcome: ai.OutcomeNoFace}
		case 1:
			return ai.Result{Outcome: ai.OutcomeFailed, Err: errors.New("analyzer down")}
		}
		return faceResult(41, "Woman", "asian")
	}}

	require.NoError(t, f.runner.Start(strategy, params(2, "0")))
	summary, _ := f.runner.Wait()

	require.Len(t, strategy.calls(), 20)
	require.EqualValues(t, 7, summary.AnalysisCounter)
	require.LessOrEqual(t, summary.AnalysisCounter, summary.FrameCounter)

	recorded := f.recorder.recorded()
	require.Len(t, recorded, 7)
	for _, obs := range recorded {
		require.Equal(t, model.KnownAge(41), obs.Age)
		require.Equal(t, "Woman", obs.Gender)
		require.Equal(t, "asian", obs.Race)
	}
	require.True(t, f.progress.contains("Analysis result: Age - 41, Gender - Woman, Race - asian"))

	require.Equal(t, 20.0, testutil.ToFloat64(f.metrics.AnalysesAttempted.WithLabelValues("hybrid")))
	require.Equal(t, 7.0, testutil.ToFloat64(f.metrics.AnalysesWithResult.WithLabelValues("hybrid")))
	require.Equal(t, 40.0, testutil.ToFloat64(f.metrics.FramesRead))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SessionsStarted.WithLabelValues("hybrid")))
}

func TestRunner_StopFlagEndsWithinOneRound(t *testing.T) {
	f := newFixture(t)
	f.rig.stopAfter = 10

	require.NoError(t, f.runner.Start(&fakeStrategy{}, params(5, "0", "1", "2")))
	summary, ok := f.runner.Wait()
	require.True(t, ok)

	// The flag is raised during read 10 and no source is read afterwards.
	require.EqualValues(t, 10, f.rig.frames())
	var reads int64
	for _, src := range f.rig.sources() {
		reads += src.reads.Load()
		require.True(t, src.closed.Load())
	}
	require.EqualValues(t, 10, reads)

	require.Equal(t, Idle, f.runner.State())
	require.Equal(t, ReasonCancelled, summary.StopReason)
	require.Equal(t, 1, f.progress.summaries())
}

func TestRunner_CancelFromOutside(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Start(&fakeStrategy{}, params(3, "0", "1")))
	require.Eventually(t, func() bool { return f.rig.frames() > 20 }, 5*time.Second, time.Millisecond)
	require.Equal(t, Running, f.runner.State())

	f.runner.Cancel()
	require.Equal(t, Idle, f.runner.State())

	summary, ok := f.runner.Last()
	require.True(t, ok)
	require.Equal(t, ReasonCancelled, summary.StopReason)
	require.Equal(t, f.rig.frames(), summary.FrameCounter)
	require.NotEmpty(t, summary.SessionID)
	require.Contains(t, summary.String(), "Processed Frames: ")
	require.Contains(t, summary.String(), "=== Timer Summary: Analysis ===")

	// Cancelling an idle runner is harmless and emits nothing new.
	f.runner.Cancel()
	require.Equal(t, 1, f.progress.summaries())
}

func TestRunner_FailingSourceDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.rig.failRead["1"] = true
	f.rig.stopAfter = 30

	require.NoError(t, f.runner.Start(&fakeStrategy{}, params(5, "0", "1", "2")))
	summary, _ := f.runner.Wait()

	// Read 30 is the last source of round 15.
	require.EqualValues(t, 30, summary.FrameCounter)
	require.EqualValues(t, 15, summary.ReadFailures)
	require.EqualValues(t, 6, summary.AnalysisCounter)
	for _, src := range f.rig.sources() {
		require.EqualValues(t, 15, src.reads.Load(), "camera %s", src.id)
	}
	require.Equal(t, 15.0, testutil.ToFloat64(f.metrics.ReadFailures.WithLabelValues("1")))
	require.True(t, f.progress.contains("Could not read frame from camera 1"))
}

func TestRunner_StartFailures(t *testing.T) {
	f := newFixture(t)
	f.rig.failOpen["2"] = true

	err := f.runner.Start(&fakeStrategy{}, params(5, "0", "1", "2"))
	require.ErrorIs(t, err, camera.ErrUnavailable)
	require.Len(t, f.rig.sources(), 2)
	for _, src := range f.rig.sources() {
		require.True(t, src.closed.Load())
		require.Zero(t, src.reads.Load())
	}
	require.Equal(t, Idle, f.runner.State())
	_, ok := f.runner.Wait()
	require.False(t, ok)

	require.ErrorIs(t, f.runner.Start(&fakeStrategy{}, params(5)), ErrNoDevices)
	require.ErrorIs(t, f.runner.Start(&fakeStrategy{}, params(0, "0")), ErrInvalidInterval)
	require.Zero(t, f.progress.summaries())
	require.Zero(t, testutil.ToFloat64(f.metrics.SessionsStarted.WithLabelValues("hybrid")))
}

func TestRunner_StartWhileRunningReplacesSession(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Start(&fakeStrategy{}, params(5, "0")))
	require.Eventually(t, func() bool { return f.rig.frames() > 0 }, 5*time.Second, time.Millisecond)
	first := f.runner.Status().SessionID

	require.NoError(t, f.runner.Start(&fakeStrategy{}, params(5, "0")))
	sources := f.rig.sources()
	require.Len(t, sources, 2)
	require.True(t, sources[0].closed.Load())

	status := f.runner.Status()
	require.Equal(t, "running", status.State)
	require.NotEqual(t, first, status.SessionID)
	require.Equal(t, 1, f.progress.summaries())

	f.runner.Cancel()
	require.True(t, sources[1].closed.Load())
	require.Equal(t, 2, f.progress.summaries())
}

func TestRunner_BudgetStopsSession(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), step: 100 * time.Millisecond}
	f := newFixture(t, WithClock(clock.Now))

	p := params(4, "0", "1")
	p.MaxDuration = 2 * time.Second
	summary, err := f.runner.Run(context.Background(), &fakeStrategy{}, p)
	require.NoError(t, err)

	require.Equal(t, ReasonBudget, summary.StopReason)
	require.GreaterOrEqual(t, summary.Elapsed, 2*time.Second)
	require.Zero(t, summary.FrameCounter%2, "budget is only checked after a full round")
	require.Greater(t, summary.EstimatedFPS, 0.0)
	require.True(t, f.progress.contains("stopping analysis"))
	require.Equal(t, Idle, f.runner.State())
}

func TestRunner_RunStopsOnContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for f.rig.frames() < 10 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	summary, err := f.runner.Run(ctx, &fakeStrategy{}, params(2, "0"))
	require.NoError(t, err)
	require.Equal(t, ReasonContext, summary.StopReason)
	require.GreaterOrEqual(t, summary.FrameCounter, int64(10))
	require.Equal(t, 1, f.progress.summaries())
}

func TestRunner_PersistenceFailuresAreCounted(t *testing.T) {
	f := newFixture(t)
	f.rig.stopAfter = 6
	f.recorder.result = storage.RecordResult{DBErr: errors.New("database is locked")}

	require.NoError(t, f.runner.Start(&fakeStrategy{}, params(3, "0")))
	summary, _ := f.runner.Wait()

	require.EqualValues(t, 2, summary.AnalysisCounter)
	require.Len(t, f.recorder.recorded(), 2)
	require.Equal(t, 2.0, testutil.ToFloat64(f.metrics.PersistenceFailures.WithLabelValues("database")))
	require.Zero(t, testutil.ToFloat64(f.metrics.PersistenceFailures.WithLabelValues("log")))
}

func TestRunner_LogsEveryAnalysisRun(t *testing.T) {
	var out bytes.Buffer
	g := newRig()
	g.stopAfter = 9
	rn := New(g, nil, logger.NewWriterLogger(&out), NewMetrics(prometheus.NewRegistry()))
	g.runner = rn

	require.NoError(t, rn.Start(&fakeStrategy{}, params(3, "0")))
	_, ok := rn.Wait()
	require.True(t, ok)

	logged := out.String()
	for run := 1; run <= 3; run++ {
		require.Contains(t, logged, fmt.Sprintf("[T:Analysis] Run %d: ", run))
	}
	require.NotContains(t, logged, "[T:Analysis] Run 4: ")
	require.NotContains(t, logged, "[T:Total] Run")
}

func TestSummary_EstimatedFPS(t *testing.T) {
	s := &session{
		strategy: &fakeStrategy{},
		total:    timer.New("Total"),
		analysis: timer.New("Analysis"),
		done:     make(chan struct{}),
	}
	s.frames.Store(48)

	require.Equal(t, 0.0, s.buildSummary(0).EstimatedFPS)
	require.InDelta(t, 24.0, s.buildSummary(2*time.Second).EstimatedFPS, 1e-9)
	require.Contains(t, s.buildSummary(time.Second).String(), "Estimated FPS: 48.00")
}

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}
