package opencv

import (
	"fmt"

	"facecam/internal/service/camera"

	"gocv.io/x/gocv"
)

// JPEGEncoder encodes whole frames for the unified strategy.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(frame camera.Frame) ([]byte, error) {
	mat, err := asMat(frame)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(*mat)
}

// encodeJPEG copies the encoded bytes out of the native buffer.
func encodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
