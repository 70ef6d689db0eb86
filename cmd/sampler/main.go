// sampler runs one sampling session from the command line and prints its summary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"facecam/internal/app"
	"facecam/internal/config"
	"facecam/internal/logger"

	"github.com/akamensky/argparse"
)

func main() {
	cfg := config.Load()

	parser := argparse.NewParser("sampler", "Sample camera frames and record face demographics")
	strategy := parser.Selector("s", "strategy", []string{"hybrid", "unified"}, &argparse.Options{Help: "Analysis strategy", Default: "unified"})
	devices := parser.StringList("d", "device", &argparse.Options{Help: "Camera index, video file or stream URL (repeatable)"})
	every := parser.Int("n", "every", &argparse.Options{Help: "Analyze every Nth frame", Default: cfg.SampleEvery})
	framerate := parser.Int("f", "framerate", &argparse.Options{Help: "Requested capture framerate", Default: cfg.Framerate})
	budget := parser.String("b", "budget", &argparse.Options{Help: "Stop after this long, eg 20s (default: until interrupted)"})
	reset := parser.Flag("r", "reset", &argparse.Options{Help: "Reset the observation database before sampling"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(1)
	}

	params := app.DefaultParams(cfg)
	if len(*devices) > 0 {
		params.Devices = *devices
	}
	params.SampleEvery = *every
	params.Framerate = *framerate
	if *budget != "" {
		d, err := time.ParseDuration(*budget)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid budget %q: %v\n", *budget, err)
			os.Exit(1)
		}
		params.MaxDuration = d
	}

	log := logger.NewLogger(cfg)

	progress := func(text string) { fmt.Println(text) }
	pipeline, err := app.NewPipeline(cfg, log, nil, progress)
	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	if *reset {
		if err := pipeline.Repo.Reset(); err != nil {
			log.Error("Failed to reset database: %v", err)
			os.Exit(1)
		}
		if err := pipeline.Repo.Initialize(); err != nil {
			log.Error("Failed to initialize database: %v", err)
			os.Exit(1)
		}
	}

	s, ok := pipeline.Strategies[*strategy]
	if !ok {
		log.Error("Strategy %s is not available", *strategy)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := pipeline.Runner.Run(ctx, s, params)
	if err != nil {
		log.Error("Sampling failed: %v", err)
		os.Exit(1)
	}
	log.Info("Session %s stopped (%s)", summary.SessionID, summary.StopReason)
}
