package ai

import (
	"context"

	"facecam/internal/logger"
	"facecam/internal/service/camera"
)

// Unified sends the whole frame to the analyzer, which detects and classifies in one call.
type Unified struct {
	encoder  FrameEncoder
	analyzer Analyzer
	logger   logger.Log
}

func NewUnified(encoder FrameEncoder, analyzer Analyzer, logger logger.Log) *Unified {
	return &Unified{encoder: encoder, analyzer: analyzer, logger: logger}
}

func (u *Unified) Name() string {
	return "unified"
}

func (u *Unified) Analyze(ctx context.Context, frame camera.Frame) Result {
	img, err := u.encoder.Encode(frame)
	if err != nil {
		u.logger.Error("Analysis error: failed to encode frame: %v", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	attrs, err := u.analyzer.Analyze(ctx, img)
	if err != nil {
		u.logger.Error("Analysis error: %v", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	return faces(attrs)
}
