package ai

import (
	"context"
	"image"

	"facecam/internal/service/camera"
)

// Outcome tells apart the reasons a frame produced no faces. Callers that
// only need "anything to record?" use Result.Empty.
type Outcome int

const (
	OutcomeFaces Outcome = iota
	OutcomeNoFace
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFaces:
		return "faces"
	case OutcomeNoFace:
		return "no face"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Attributes is the raw demographic output for one face.
type Attributes struct {
	Age            *int
	DominantGender string
	DominantRace   string
	Region         image.Rectangle
}

// Result of analyzing one frame. Faces holds at most one entry: only the
// first detected face is carried forward.
type Result struct {
	Outcome Outcome
	Faces   []Attributes
	Err     error
}

func (r Result) Empty() bool {
	return len(r.Faces) == 0
}

// First returns the face to record, if any.
func (r Result) First() (Attributes, bool) {
	if len(r.Faces) == 0 {
		return Attributes{}, false
	}
	return r.Faces[0], true
}

// Strategy turns one frame into zero or more faces' worth of attributes.
// Implementations never fail the caller; errors end up in Result.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, frame camera.Frame) Result
}

// Analyzer is the heavy demographic model. It receives a JPEG image.
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte) ([]Attributes, error)
}

// FaceDetector is the light local detector used by the hybrid strategy.
// found is false when the frame contains no face-shaped region.
type FaceDetector interface {
	DetectFace(frame camera.Frame) (crop []byte, region image.Rectangle, found bool, err error)
}

// FrameEncoder turns a frame into JPEG bytes for the analyzer.
type FrameEncoder interface {
	Encode(frame camera.Frame) ([]byte, error)
}

func faces(attrs []Attributes) Result {
	if len(attrs) == 0 {
		return Result{Outcome: OutcomeNoFace}
	}
	return Result{Outcome: OutcomeFaces, Faces: []Attributes{attrs[0]}}
}
