// Package session ties one camera source to one transform loop and exposes
// the combined state (camera status, toggle, metrics) to the UI layers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/junsooki/EdgeCam/internal/capture"
	"github.com/junsooki/EdgeCam/internal/pipeline"
	"github.com/junsooki/EdgeCam/internal/threshold"
)

var (
	// ErrCameraNotReady is returned when processing is requested without a
	// live camera stream.
	ErrCameraNotReady = errors.New("camera not ready")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// Notice messages shown to the user.
const (
	MsgCameraConnected = "Camera connected successfully"
	MsgCameraDenied    = "Camera access denied. Using demo mode."
	MsgCameraLost      = "Camera disconnected"
)

// Options configures a Session.
type Options struct {
	Scheduler pipeline.Scheduler
	Filter    threshold.Filter
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Session owns the camera stream, the three surfaces and the loop.
type Session struct {
	source    capture.Source
	video     *pipeline.Surface
	original  *pipeline.Surface
	processed *pipeline.Surface
	loop      *pipeline.Loop
	logger    *slog.Logger

	acquireMu sync.Mutex

	mu        sync.Mutex
	camera    CameraState
	camErr    error
	releasing bool
	pumpDone  chan struct{}
	closed    bool
	subs      map[int]func(Event)
	nextSub   int
}

// New creates a session in the loading state. Call Acquire to open the
// camera.
func New(src capture.Source, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = pipeline.NewTimerScheduler(pipeline.DefaultRefresh)
	}
	s := &Session{
		source:    src,
		video:     pipeline.NewSurface(),
		original:  pipeline.NewSurface(),
		processed: pipeline.NewSurface(),
		logger:    opts.Logger.With(slog.String("component", "session")),
		subs:      make(map[int]func(Event)),
	}
	s.loop = pipeline.NewLoop(pipeline.Config{
		Source:    s.video,
		Filter:    opts.Filter,
		Scheduler: opts.Scheduler,
		Original:  s.original,
		Processed: s.processed,
		Clock:     opts.Clock,
		Logger:    opts.Logger,
	})
	return s
}

// Original is the raw passthrough surface.
func (s *Session) Original() *pipeline.Surface { return s.original }

// Processed is the thresholded surface.
func (s *Session) Processed() *pipeline.Surface { return s.processed }

// Acquire opens the camera. On failure the session moves to
// CameraUnavailable, publishes an error notice and returns an error wrapping
// capture.ErrCameraUnavailable. Acquiring a ready camera is a no-op.
func (s *Session) Acquire(ctx context.Context) error {
	s.acquireMu.Lock()
	defer s.acquireMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.camera == CameraReady {
		s.mu.Unlock()
		return nil
	}
	s.camera = CameraLoading
	s.camErr = nil
	s.mu.Unlock()
	s.publish(nil)

	err := s.start(ctx)
	if err != nil {
		s.logger.Error("camera access error", slog.Any("error", err))
		s.mu.Lock()
		s.camera = CameraUnavailable
		s.camErr = err
		s.mu.Unlock()
		s.publish(&Notice{Level: NoticeError, Message: MsgCameraDenied})
		if errors.Is(err, capture.ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %w", capture.ErrCameraUnavailable, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		// Close ran while the camera was opening and had nothing to stop.
		s.mu.Unlock()
		s.source.Stop()
		return ErrClosed
	}
	s.camera = CameraReady
	s.releasing = false
	s.pumpDone = done
	s.mu.Unlock()
	go s.pump(s.source.Frames(), done)

	settings := s.source.Settings()
	s.logger.Info("camera stream initialized",
		slog.Int("device", settings.Device),
		slog.Int("width", settings.Width),
		slog.Int("height", settings.Height),
		slog.String("facing_mode", settings.FacingMode))

	s.publish(&Notice{Level: NoticeSuccess, Message: MsgCameraConnected})
	return nil
}

// start runs Source.Start, giving up when ctx ends. A source that finishes
// starting after ctx ended is stopped again.
func (s *Session) start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.source.Start() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		go func() {
			if err := <-errCh; err == nil {
				s.source.Stop()
			}
		}()
		return ctx.Err()
	}
}

// Retry re-attempts acquisition when the camera is unavailable.
func (s *Session) Retry(ctx context.Context) error {
	if s.State().Camera == CameraReady {
		return nil
	}
	return s.Acquire(ctx)
}

// pump attaches camera frames to the playback surface. An unexpected end of
// the stream marks the camera unavailable and pauses processing.
func (s *Session) pump(frames <-chan *capture.Frame, done chan struct{}) {
	defer close(done)
	for f := range frames {
		s.video.Set(f.Image)
	}

	s.mu.Lock()
	releasing := s.releasing
	s.mu.Unlock()
	if releasing {
		return
	}

	// Release the device before reporting it gone so a retry can reopen it.
	s.source.Stop()

	s.mu.Lock()
	if s.releasing {
		s.mu.Unlock()
		return
	}
	s.camera = CameraUnavailable
	s.camErr = fmt.Errorf("%w: stream ended", capture.ErrCameraUnavailable)
	s.mu.Unlock()

	s.logger.Warn("camera stream ended")
	s.loop.SetEnabled(false)
	s.video.Clear()
	s.publish(&Notice{Level: NoticeError, Message: MsgCameraLost})
}

// SetProcessing turns the transform loop on or off. Turning it on requires a
// ready camera.
func (s *Session) SetProcessing(on bool) error {
	s.mu.Lock()
	closed, camera := s.closed, s.camera
	s.mu.Unlock()

	if closed {
		if on {
			return ErrClosed
		}
		return nil
	}
	if on && camera != CameraReady {
		return ErrCameraNotReady
	}
	if err := s.loop.SetEnabled(on); err != nil {
		return err
	}
	s.publish(nil)
	return nil
}

// Toggle flips the processing state and returns the new value.
func (s *Session) Toggle() (bool, error) {
	on := !s.loop.Enabled()
	if err := s.SetProcessing(on); err != nil {
		return !on, err
	}
	return on, nil
}

// State returns a snapshot of the camera status, toggle and metrics.
func (s *Session) State() State {
	s.mu.Lock()
	st := State{Camera: s.camera}
	if s.camErr != nil {
		st.Error = s.camErr.Error()
	}
	s.mu.Unlock()

	snap := s.loop.Sampler().Snapshot()
	st.Processing = s.loop.Enabled()
	st.FPS = snap.FPS
	st.ProcessingMS = snap.ProcessingMS()
	st.Width, st.Height = s.video.Size()
	return st
}

// Subscribe registers fn for state changes and notices. The returned
// function removes the subscription.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) publish(n *Notice) {
	ev := Event{State: s.State(), Notice: n}
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Close stops the loop and releases the camera. It is safe to call more than
// once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.releasing = true
	ready := s.camera == CameraReady
	done := s.pumpDone
	s.mu.Unlock()

	s.loop.Close()
	if ready {
		s.source.Stop()
	}
	if done != nil {
		<-done
	}
	s.logger.Info("session closed")
}
