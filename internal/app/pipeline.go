package app

import (
	"fmt"

	"facecam/internal/config"
	"facecam/internal/logger"
	"facecam/internal/repository/sqlite"
	"facecam/internal/service/ai"
	aiopencv "facecam/internal/service/ai/opencv"
	camopencv "facecam/internal/service/camera/opencv"
	"facecam/internal/service/runner"
	"facecam/internal/service/storage"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline is everything a sampling session needs, without the HTTP surface.
type Pipeline struct {
	Repo       *sqlite.ObservationRepository
	Logs       map[string]*storage.JSONLog
	Strategies map[string]ai.Strategy
	Runner     *runner.Runner

	detector *aiopencv.CascadeDetector
}

// NewPipeline builds the runner with both strategies. The hybrid strategy is
// left out when the cascade cannot be loaded.
func NewPipeline(cfg *config.Config, log *logger.Logger, reg prometheus.Registerer, progress func(string)) (*Pipeline, error) {
	repo := sqlite.NewObservationRepository(sqlite.New(cfg.DatabasePath))
	if err := repo.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	analyzer := ai.NewDeepFaceClient(cfg.AnalyzerURL, cfg.AnalyzerDetectorBackend, cfg.AnalyzerTimeout,
		ai.WithEnforceDetection(cfg.AnalyzerEnforceDetection))

	p := &Pipeline{
		Repo:       repo,
		Logs:       make(map[string]*storage.JSONLog),
		Strategies: make(map[string]ai.Strategy),
	}
	p.Strategies["unified"] = ai.NewUnified(aiopencv.JPEGEncoder{}, analyzer, log)

	detector, err := aiopencv.NewCascadeDetector(cfg.CascadePath, cfg.CascadeScaleFactor, cfg.CascadeMinNeighbors, log)
	if err != nil {
		log.Warning("Hybrid strategy disabled: %v", err)
	} else {
		p.detector = detector
		p.Strategies["hybrid"] = ai.NewHybrid(detector, analyzer, log)
	}

	sinks := make(map[string]*storage.Sink)
	for _, name := range []string{"hybrid", "unified"} {
		jsonLog := storage.NewJSONLog(cfg.AnalysisLogPath(name))
		p.Logs[name] = jsonLog
		sinks[name] = storage.NewSink(jsonLog, repo, log)
	}

	opts := []runner.Option{}
	if progress != nil {
		opts = append(opts, runner.WithProgress(progress))
	}
	p.Runner = runner.New(camopencv.NewOpener(log), func(strategy string) runner.Recorder {
		if sink, ok := sinks[strategy]; ok {
			return sink
		}
		return nil
	}, log, runner.NewMetrics(reg), opts...)

	return p, nil
}

// DefaultParams are the session parameters from the configuration.
func DefaultParams(cfg *config.Config) runner.Params {
	return runner.Params{
		Framerate:   cfg.Framerate,
		SampleEvery: cfg.SampleEvery,
		Devices:     cfg.CameraDevices,
		MaxDuration: cfg.MaxDuration,
	}
}

// JSONLogs lists the per-strategy logs in a stable order.
func (p *Pipeline) JSONLogs() []*storage.JSONLog {
	logs := make([]*storage.JSONLog, 0, len(p.Logs))
	for _, name := range []string{"hybrid", "unified"} {
		if l, ok := p.Logs[name]; ok {
			logs = append(logs, l)
		}
	}
	return logs
}

// Close stops any running session and releases native resources.
func (p *Pipeline) Close() error {
	p.Runner.Cancel()
	if p.detector != nil {
		return p.detector.Close()
	}
	return nil
}
