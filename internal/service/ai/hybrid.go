package ai

import (
	"context"

	"facecam/internal/logger"
	"facecam/internal/service/camera"
)

// Hybrid runs a cheap local face detector first and only sends the cropped
// face to the analyzer.
type Hybrid struct {
	detector FaceDetector
	analyzer Analyzer
	logger   logger.Log
}

func NewHybrid(detector FaceDetector, analyzer Analyzer, logger logger.Log) *Hybrid {
	return &Hybrid{detector: detector, analyzer: analyzer, logger: logger}
}

func (h *Hybrid) Name() string {
	return "hybrid"
}

func (h *Hybrid) Analyze(ctx context.Context, frame camera.Frame) Result {
	crop, region, found, err := h.detector.DetectFace(frame)
	if err != nil {
		h.logger.Error("Extraction error: %v", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	if !found {
		return Result{Outcome: OutcomeNoFace}
	}

	attrs, err := h.analyzer.Analyze(ctx, crop)
	if err != nil {
		h.logger.Error("Analysis error: %v", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}
	result := faces(attrs)
	if len(result.Faces) > 0 {
		// Analyzer regions are relative to the crop; report frame coordinates.
		face := &result.Faces[0]
		if face.Region.Empty() {
			face.Region = region
		} else {
			face.Region = face.Region.Add(region.Min)
		}
	}
	return result
}
