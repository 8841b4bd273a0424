// Package metrics samples the transform loop's frame rate and per-frame
// processing time. The figures are informational and never feed back into
// scheduling.
package metrics

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// SampleInterval is how often the frame counter is converted to a rate.
	SampleInterval = time.Second
	// LowFPS is the rate below which a sample is logged as a warning.
	LowFPS = 20
)

// Snapshot is the latest pair of reported figures.
type Snapshot struct {
	FPS            int
	ProcessingTime time.Duration
}

// ProcessingMS returns the processing time rounded to whole milliseconds.
func (s Snapshot) ProcessingMS() int {
	return int(math.Round(float64(s.ProcessingTime) / float64(time.Millisecond)))
}

// Sampler counts frames between one-second boundaries and records the
// duration of the most recent transform.
type Sampler struct {
	mu         sync.Mutex
	frames     int
	last       time.Time
	fps        int
	processing time.Duration

	onFPS        func(int)
	onProcessing func(time.Duration)
	logger       *slog.Logger
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithFPSCallback registers fn to receive each new frame-rate sample.
func WithFPSCallback(fn func(int)) Option {
	return func(s *Sampler) { s.onFPS = fn }
}

// WithProcessingCallback registers fn to receive every per-frame duration.
func WithProcessingCallback(fn func(time.Duration)) Option {
	return func(s *Sampler) { s.onProcessing = fn }
}

// WithLogger sets the logger used for low frame-rate warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// NewSampler creates a Sampler whose first sampling window opens at start.
func NewSampler(start time.Time, opts ...Option) *Sampler {
	s := &Sampler{last: start, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "metrics"))
	return s
}

// Reset clears the counter and opens a new window at now. The last reported
// figures are kept.
func (s *Sampler) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = 0
	s.last = now
}

// FrameDone counts one processed frame. When at least SampleInterval has
// elapsed since the window opened, it returns the rounded rate and true and
// opens a new window at now.
func (s *Sampler) FrameDone(now time.Time) (int, bool) {
	s.mu.Lock()
	s.frames++
	elapsed := now.Sub(s.last)
	if elapsed < SampleInterval {
		s.mu.Unlock()
		return 0, false
	}
	ms := float64(elapsed) / float64(time.Millisecond)
	fps := int(math.Round(float64(s.frames) * 1000 / ms))
	s.fps = fps
	s.frames = 0
	s.last = now
	cb := s.onFPS
	s.mu.Unlock()

	if fps < LowFPS {
		s.logger.Warn("low frame rate", slog.Int("fps", fps))
	}
	if cb != nil {
		cb(fps)
	}
	return fps, true
}

// Observe records the duration of the latest transform.
func (s *Sampler) Observe(d time.Duration) {
	s.mu.Lock()
	s.processing = d
	cb := s.onProcessing
	s.mu.Unlock()

	if cb != nil {
		cb(d)
	}
}

// Snapshot returns the most recently reported figures.
func (s *Sampler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{FPS: s.fps, ProcessingTime: s.processing}
}
