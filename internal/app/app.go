package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"facecam/internal/config"
	"facecam/internal/logger"
	"facecam/internal/route"
	"facecam/internal/service/websocket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const progressQueueSize = 256

type App struct {
	config   *config.Config
	logger   *logger.Logger
	registry *prometheus.Registry
	hub      *websocket.HubService
	pipeline *Pipeline
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := websocket.NewHubService(progressQueueSize, log)

	pipeline, err := NewPipeline(cfg, log, registry, hub.Broadcast)
	if err != nil {
		return nil, err
	}

	return &App{
		config:   cfg,
		logger:   log,
		registry: registry,
		hub:      hub,
		pipeline: pipeline,
	}, nil
}

// Run serves the control surface until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run(ctx)

	router := route.SetupRoutes(route.Deps{
		Config:     a.config,
		Logger:     a.logger,
		Runner:     a.pipeline.Runner,
		Strategies: a.pipeline.Strategies,
		Defaults:   DefaultParams(a.config),
		Repo:       a.pipeline.Repo,
		Logs:       a.pipeline.JSONLogs(),
		Hub:        a.hub,
		Gatherer:   a.registry,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	fmt.Printf("🚀 Face Sampling Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🗄️  Database: %s\n", a.config.DatabasePath)
	fmt.Printf("📁 Analysis logs: %s\n", a.config.AnalysisDirectory)
	fmt.Printf("🤖 Analyzer: %s\n", a.config.AnalyzerURL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.pipeline.Close()
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	if closeErr := a.pipeline.Close(); closeErr != nil {
		a.logger.Warning("Close pipeline: %v", closeErr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
