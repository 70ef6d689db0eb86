// Package camera abstracts "read the next frame from device N".
package camera

import "errors"

var (
	// ErrUnavailable means the device could not be opened.
	ErrUnavailable = errors.New("camera unavailable")
	// ErrNoFrame means a single read produced nothing. The source stays usable.
	ErrNoFrame = errors.New("no frame")
)

// Frame is an image owned by the caller of Source.Read, released with Close.
type Frame interface {
	Close() error
}

// Source is an open camera, video file or stream.
type Source interface {
	ID() string
	Read() (Frame, error)
	Close() error
}

// Opener opens sources by device identifier.
type Opener interface {
	Open(deviceID string, framerate int) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(deviceID string, framerate int) (Source, error)

func (f OpenerFunc) Open(deviceID string, framerate int) (Source, error) {
	return f(deviceID, framerate)
}
