// Package pipeline runs the per-frame transform: on every scheduled refresh
// it copies the current camera frame to the original surface, thresholds a
// second copy into the processed surface and feeds the metrics sampler.
package pipeline

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/junsooki/EdgeCam/internal/metrics"
	"github.com/junsooki/EdgeCam/internal/threshold"
)

// ErrClosed is returned when enabling a loop that has been closed.
var ErrClosed = errors.New("loop closed")

// FrameSource provides the frame currently on the playback surface.
type FrameSource interface {
	CurrentFrame() *image.RGBA
}

// Config wires a Loop to its collaborators. Source, Scheduler, Original and
// Processed are required.
type Config struct {
	Source    FrameSource
	Filter    threshold.Filter
	Scheduler Scheduler
	Sampler   *metrics.Sampler
	Original  *Surface
	Processed *Surface
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Loop schedules one transform step per refresh while enabled. At most one
// callback is pending and at most one step runs at a time.
type Loop struct {
	src       FrameSource
	filter    threshold.Filter
	sched     Scheduler
	sampler   *metrics.Sampler
	original  *Surface
	processed *Surface
	now       func() time.Time
	logger    *slog.Logger

	stepMu sync.Mutex

	mu         sync.Mutex
	enabled    bool
	closed     bool
	gen        uint64
	pending    Handle
	hasPending bool
}

func NewLoop(cfg Config) *Loop {
	if cfg.Filter == nil {
		cfg.Filter = threshold.New(threshold.DefaultOffset)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sampler == nil {
		cfg.Sampler = metrics.NewSampler(cfg.Clock(), metrics.WithLogger(cfg.Logger))
	}
	return &Loop{
		src:       cfg.Source,
		filter:    cfg.Filter,
		sched:     cfg.Scheduler,
		sampler:   cfg.Sampler,
		original:  cfg.Original,
		processed: cfg.Processed,
		now:       cfg.Clock,
		logger:    cfg.Logger.With(slog.String("component", "loop")),
	}
}

// SetEnabled starts or stops the loop. Enabling schedules the first step;
// disabling cancels the pending one.
func (l *Loop) SetEnabled(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		if on {
			return ErrClosed
		}
		return nil
	}
	if on == l.enabled {
		return nil
	}
	l.enabled = on
	l.gen++
	if on {
		l.sampler.Reset(l.now())
		l.scheduleLocked(l.gen)
		l.logger.Info("processing started")
	} else {
		l.cancelLocked()
		l.logger.Info("processing paused")
	}
	return nil
}

// Enabled reports the toggle state.
func (l *Loop) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Sampler returns the loop's metrics sampler.
func (l *Loop) Sampler() *metrics.Sampler {
	return l.sampler
}

// Close disables the loop permanently and cancels any pending step.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.enabled = false
	l.gen++
	l.cancelLocked()
}

func (l *Loop) scheduleLocked(gen uint64) {
	l.pending = l.sched.Schedule(func() { l.step(gen) })
	l.hasPending = true
}

func (l *Loop) cancelLocked() {
	if !l.hasPending {
		return
	}
	l.sched.Cancel(l.pending)
	l.hasPending = false
}

func (l *Loop) current(gen uint64) bool {
	return l.enabled && !l.closed && l.gen == gen
}

func (l *Loop) step(gen uint64) {
	l.mu.Lock()
	if !l.current(gen) {
		l.mu.Unlock()
		return
	}
	l.hasPending = false
	l.mu.Unlock()

	l.stepMu.Lock()
	l.process()
	l.stepMu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current(gen) {
		l.scheduleLocked(gen)
	}
}

// process transforms the current frame. A refresh with no frame available
// yet is skipped without being counted.
func (l *Loop) process() {
	frame := l.src.CurrentFrame()
	if frame == nil {
		return
	}
	start := l.now()

	l.original.Set(clone(frame))

	out := clone(frame)
	l.filter.Apply(out)
	l.processed.Set(out)

	l.sampler.FrameDone(l.now())
	l.sampler.Observe(l.now().Sub(start))
}

func clone(src *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]byte, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst
}
