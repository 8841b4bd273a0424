package capture

import (
	"errors"
	"image"
	"time"
)

// Default capture resolution requested from the camera.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraUnavailable is returned when no camera stream could be acquired.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrNoDevice means the requested camera device does not exist.
	ErrNoDevice = errors.New("no camera device")
	// ErrPermissionDenied means the device exists but cannot be opened.
	ErrPermissionDenied = errors.New("camera permission denied")
)

// Frame represents a captured camera frame.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Time
}

// Settings describes the stream a Source actually delivered.
type Settings struct {
	Device     int
	Width      int
	Height     int
	FacingMode string
}

// Source produces camera frames until stopped.
type Source interface {
	Start() error
	Stop()
	Frames() <-chan *Frame
	Settings() Settings
}
