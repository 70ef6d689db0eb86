// Package opencv holds the gocv-backed pieces of the analysis strategies.
package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"facecam/internal/logger"
	"facecam/internal/service/camera"

	"gocv.io/x/gocv"
)

// CascadeDetector finds frontal faces with a Haar cascade and returns the
// first one as a JPEG crop.
type CascadeDetector struct {
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	mutex        sync.Mutex
	logger       logger.Log
}

// NewCascadeDetector loads the cascade XML at path.
func NewCascadeDetector(path string, scaleFactor float64, minNeighbors int, logger logger.Log) (*CascadeDetector, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("cascade file not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade: %s", path)
	}

	logger.Info("Face cascade loaded from %s", path)
	return &CascadeDetector{
		classifier:   classifier,
		scaleFactor:  scaleFactor,
		minNeighbors: minNeighbors,
		logger:       logger,
	}, nil
}

func (d *CascadeDetector) DetectFace(frame camera.Frame) ([]byte, image.Rectangle, bool, error) {
	mat, err := asMat(frame)
	if err != nil {
		return nil, image.Rectangle{}, false, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(*mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, image.Rectangle{}, false, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	// CascadeClassifier is not safe for concurrent use.
	d.mutex.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.scaleFactor, d.minNeighbors, 0, image.Point{}, image.Point{})
	d.mutex.Unlock()

	if len(rects) == 0 {
		return nil, image.Rectangle{}, false, nil
	}

	rect := rects[0].Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows()))
	if rect.Empty() {
		return nil, image.Rectangle{}, false, nil
	}

	face := mat.Region(rect)
	defer face.Close()

	crop, err := encodeJPEG(face)
	if err != nil {
		return nil, image.Rectangle{}, false, err
	}
	return crop, rect, true, nil
}

func (d *CascadeDetector) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.classifier.Close()
}

func asMat(frame camera.Frame) (*gocv.Mat, error) {
	mat, ok := frame.(*gocv.Mat)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	if mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	return mat, nil
}
