package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// maxReadFailures is how many consecutive empty reads end the stream.
const maxReadFailures = 30

// GoCVSource implements Source using an OpenCV video capture device.
type GoCVSource struct {
	device int
	width  int
	height int
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	frameCh  chan *Frame
	stopCh   chan struct{}
	done     chan struct{}
	settings Settings
}

// NewGoCVSource creates a camera source for the given device index, asking
// the driver for width×height frames.
func NewGoCVSource(device, width, height int, logger *slog.Logger) (*GoCVSource, error) {
	if device < 0 {
		return nil, fmt.Errorf("device index must be >= 0, got %d", device)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid resolution %dx%d", width, height)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoCVSource{
		device:  device,
		width:   width,
		height:  height,
		logger:  logger.With(slog.String("component", "capture"), slog.Int("device", device)),
		frameCh: make(chan *Frame),
	}, nil
}

// Start opens the device and begins reading frames. Failures wrap
// ErrCameraUnavailable.
func (c *GoCVSource) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("already running")
	}

	if err := Probe(c.device); err != nil {
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	cam, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("%w: open device %d: %w", ErrCameraUnavailable, c.device, err)
	}
	if !cam.IsOpened() {
		cam.Close()
		return fmt.Errorf("%w: %w", ErrCameraUnavailable, ErrNoDevice)
	}
	cam.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(c.height))

	c.settings = Settings{
		Device:     c.device,
		Width:      int(cam.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(cam.Get(gocv.VideoCaptureFrameHeight)),
		FacingMode: "user",
	}
	c.frameCh = make(chan *Frame, 2)
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	c.running = true

	go c.loop(cam, c.frameCh, c.stopCh, c.done)
	return nil
}

// Stop ends the read loop and releases the device. It blocks until the
// device is closed.
func (c *GoCVSource) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.done
	c.mu.Unlock()
	<-done
}

func (c *GoCVSource) Frames() <-chan *Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frameCh
}

func (c *GoCVSource) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *GoCVSource) loop(cam *gocv.VideoCapture, frames chan<- *Frame, stop <-chan struct{}, done chan<- struct{}) {
	mat := gocv.NewMat()
	defer close(done)
	defer cam.Close()
	defer mat.Close()
	defer close(frames)

	failures := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := cam.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures >= maxReadFailures {
				c.logger.Error("camera stopped delivering frames", slog.Int("failures", failures))
				return
			}
			continue
		}
		failures = 0

		img, err := mat.ToImage()
		if err != nil {
			c.logger.Warn("convert frame", slog.Any("error", err))
			continue
		}
		f := &Frame{
			Image:     Bound(img, c.width, c.height),
			Timestamp: time.Now(),
		}
		select {
		case frames <- f:
		default:
		}
	}
}
