package pipeline

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/junsooki/EdgeCam/internal/metrics"
	"github.com/junsooki/EdgeCam/internal/threshold"
)

// countingScheduler records how often callbacks are scheduled and cancelled.
type countingScheduler struct {
	*QueueScheduler
	scheduled int
	cancelled int
	fns       map[Handle]func()
}

func newCountingScheduler() *countingScheduler {
	return &countingScheduler{QueueScheduler: NewQueueScheduler(), fns: make(map[Handle]func())}
}

func (s *countingScheduler) Schedule(fn func()) Handle {
	s.scheduled++
	h := s.QueueScheduler.Schedule(fn)
	s.fns[h] = fn
	return h
}

func (s *countingScheduler) Cancel(h Handle) {
	if _, ok := s.QueueScheduler.pending[h]; ok {
		s.cancelled++
	}
	s.QueueScheduler.Cancel(h)
}

// fakeClock advances by step on every read.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

type testRig struct {
	loop      *Loop
	sched     *countingScheduler
	video     *Surface
	original  *Surface
	processed *Surface
	clock     *fakeClock
}

func newRig() *testRig {
	r := &testRig{
		sched:     newCountingScheduler(),
		video:     NewSurface(),
		original:  NewSurface(),
		processed: NewSurface(),
		clock:     &fakeClock{t: time.Unix(0, 0), step: time.Millisecond},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r.loop = NewLoop(Config{
		Source:    r.video,
		Filter:    threshold.New(threshold.DefaultOffset),
		Scheduler: r.sched,
		Sampler:   metrics.NewSampler(r.clock.t, metrics.WithLogger(logger)),
		Original:  r.original,
		Processed: r.processed,
		Clock:     r.clock.Now,
		Logger:    logger,
	})
	return r
}

func grayFrame(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestToggleOffCancelsExactlyOnePending(t *testing.T) {
	r := newRig()
	if err := r.loop.SetEnabled(true); err != nil {
		t.Fatal(err)
	}
	if r.sched.Pending() != 1 || r.sched.scheduled != 1 {
		t.Fatalf("pending=%d scheduled=%d after enable", r.sched.Pending(), r.sched.scheduled)
	}

	r.loop.SetEnabled(false)
	if r.sched.cancelled != 1 {
		t.Errorf("cancelled = %d, want 1", r.sched.cancelled)
	}
	if r.sched.Pending() != 0 {
		t.Errorf("pending = %d after disable", r.sched.Pending())
	}

	r.sched.RunPending()
	if r.sched.scheduled != 1 {
		t.Errorf("scheduled = %d while disabled", r.sched.scheduled)
	}

	r.loop.SetEnabled(true)
	if r.sched.scheduled != 2 || r.sched.Pending() != 1 {
		t.Errorf("scheduled=%d pending=%d after re-enable", r.sched.scheduled, r.sched.Pending())
	}
}

func TestRepeatedTogglingLeavesNoResidualCallbacks(t *testing.T) {
	r := newRig()
	for i := 0; i < 50; i++ {
		r.loop.SetEnabled(true)
		r.loop.SetEnabled(true)
		r.loop.SetEnabled(false)
		r.loop.SetEnabled(false)
	}
	if n := r.sched.Pending(); n != 0 {
		t.Errorf("pending = %d", n)
	}
	if r.sched.scheduled != r.sched.cancelled {
		t.Errorf("scheduled=%d cancelled=%d", r.sched.scheduled, r.sched.cancelled)
	}
	if r.loop.Enabled() {
		t.Error("loop still enabled")
	}
}

func TestStepWithoutFrameReschedules(t *testing.T) {
	r := newRig()
	r.loop.SetEnabled(true)
	r.sched.RunPending()

	if img := r.original.CurrentFrame(); img != nil {
		t.Error("original surface written without a frame")
	}
	if r.sched.Pending() != 1 {
		t.Errorf("pending = %d, want 1", r.sched.Pending())
	}
}

func TestStepWritesBothSurfaces(t *testing.T) {
	r := newRig()
	frame := grayFrame(200)
	r.video.Set(frame)

	r.loop.SetEnabled(true)
	if n := r.sched.RunPending(); n != 1 {
		t.Fatalf("ran %d steps", n)
	}

	orig := r.original.CurrentFrame()
	if orig == nil || orig == frame {
		t.Fatal("original surface should hold a copy of the frame")
	}
	if c := orig.RGBAAt(1, 1); c != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("original pixel = %v", c)
	}
	proc := r.processed.CurrentFrame()
	if c := proc.RGBAAt(1, 1); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("processed pixel = %v", c)
	}
	if c := frame.RGBAAt(1, 1); c != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("source frame modified: %v", c)
	}
	if got := r.loop.Sampler().Snapshot().ProcessingTime; got <= 0 {
		t.Errorf("processing time = %v", got)
	}
	if r.sched.Pending() != 1 {
		t.Errorf("pending = %d after step", r.sched.Pending())
	}
}

func TestOneStepInFlight(t *testing.T) {
	r := newRig()
	r.video.Set(grayFrame(10))
	r.loop.SetEnabled(true)
	for i := 0; i < 5; i++ {
		if n := r.sched.RunPending(); n != 1 {
			t.Fatalf("refresh %d ran %d steps", i, n)
		}
		if p := r.sched.Pending(); p != 1 {
			t.Fatalf("refresh %d left %d pending", i, p)
		}
	}
}

func TestStaleCallbackIsIgnored(t *testing.T) {
	r := newRig()
	r.video.Set(grayFrame(10))
	r.loop.SetEnabled(true)
	var stale func()
	for _, fn := range r.sched.fns {
		stale = fn
	}
	r.loop.SetEnabled(false)
	r.loop.SetEnabled(true)

	stale()
	if img := r.processed.CurrentFrame(); img != nil {
		t.Error("stale callback processed a frame")
	}
	if r.sched.Pending() != 1 {
		t.Errorf("pending = %d, want 1", r.sched.Pending())
	}
}

func TestFrameRateReportedThroughLoop(t *testing.T) {
	r := newRig()
	r.clock.step = 0
	r.video.Set(grayFrame(10))
	r.loop.SetEnabled(true)

	start := r.clock.t
	for i := 1; i <= 30; i++ {
		r.clock.t = start.Add(time.Duration(i) * time.Second / 30)
		r.sched.RunPending()
	}
	if fps := r.loop.Sampler().Snapshot().FPS; fps != 30 {
		t.Errorf("fps = %d, want 30", fps)
	}
}

func TestCloseCancelsAndRejectsEnable(t *testing.T) {
	r := newRig()
	r.loop.SetEnabled(true)
	r.loop.Close()
	r.loop.Close()

	if r.sched.Pending() != 0 {
		t.Errorf("pending = %d after close", r.sched.Pending())
	}
	if err := r.loop.SetEnabled(true); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if err := r.loop.SetEnabled(false); err != nil {
		t.Errorf("disable after close: %v", err)
	}
}

func TestLoopWithTimerScheduler(t *testing.T) {
	sched := NewTimerScheduler(time.Millisecond)
	video, original, processed := NewSurface(), NewSurface(), NewSurface()
	loop := NewLoop(Config{
		Source:    video,
		Scheduler: sched,
		Original:  original,
		Processed: processed,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	video.Set(grayFrame(0))

	changed := processed.Changed()
	loop.SetEnabled(true)
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no processed frame")
	}
	loop.Close()

	deadline := time.Now().Add(time.Second)
	for sched.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pending = %d after close", sched.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}
