package opencv

import (
	"fmt"
	"strconv"

	"facecam/internal/logger"
	"facecam/internal/service/camera"

	"gocv.io/x/gocv"
)

// Opener opens OpenCV capture devices. Numeric ids are local cameras;
// anything else is handed to OpenCV as a file name or stream URL.
type Opener struct {
	logger logger.Log
}

func NewOpener(logger logger.Log) *Opener {
	return &Opener{logger: logger}
}

// Source reads BGR frames into freshly allocated Mats.
type Source struct {
	id      string
	capture *gocv.VideoCapture
}

func (o *Opener) Open(deviceID string, framerate int) (camera.Source, error) {
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if index, convErr := strconv.Atoi(deviceID); convErr == nil {
		capture, err = gocv.VideoCaptureDevice(index)
	} else {
		capture, err = gocv.OpenVideoCapture(deviceID)
	}
	if err != nil {
		o.logger.Error("Open camera %s error: %v", deviceID, err)
		return nil, fmt.Errorf("%w: %s: %v", camera.ErrUnavailable, deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		o.logger.Error("Open camera %s error: could not open camera", deviceID)
		return nil, fmt.Errorf("%w: %s", camera.ErrUnavailable, deviceID)
	}

	if framerate > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(framerate))
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	o.logger.Info("Camera %s opened (%.0f fps reported)", deviceID, capture.Get(gocv.VideoCaptureFPS))
	return &Source{id: deviceID, capture: capture}, nil
}

func (s *Source) ID() string {
	return s.id
}

// Read returns a *gocv.Mat, or camera.ErrNoFrame when the device produced nothing.
func (s *Source) Read() (camera.Frame, error) {
	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w from camera %s", camera.ErrNoFrame, s.id)
	}
	return &mat, nil
}

func (s *Source) Close() error {
	return s.capture.Close()
}
