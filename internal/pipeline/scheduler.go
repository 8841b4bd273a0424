package pipeline

import (
	"sync"
	"time"
)

// DefaultRefresh is the refresh interval used when none is configured.
const DefaultRefresh = time.Second / 60

// Handle identifies a scheduled callback.
type Handle uint64

// Scheduler runs a callback once on the next display refresh.
type Scheduler interface {
	Schedule(fn func()) Handle
	Cancel(h Handle)
}

// TimerScheduler emulates a display refresh with timers firing every
// interval.
type TimerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	next    Handle
	pending map[Handle]*time.Timer
}

// NewTimerScheduler creates a scheduler refreshing every interval.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultRefresh
	}
	return &TimerScheduler{
		interval: interval,
		pending:  make(map[Handle]*time.Timer),
	}
}

func (s *TimerScheduler) Schedule(fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next
	s.pending[h] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, ok := s.pending[h]
		delete(s.pending, h)
		s.mu.Unlock()
		if ok {
			fn()
		}
	})
	return h
}

func (s *TimerScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[h]; ok {
		t.Stop()
		delete(s.pending, h)
	}
}

// Pending returns the number of callbacks waiting to fire.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// QueueScheduler holds callbacks until the owner's refresh hook calls
// RunPending. It suits render loops that already tick once per frame.
type QueueScheduler struct {
	mu      sync.Mutex
	next    Handle
	order   []Handle
	pending map[Handle]func()
}

func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{pending: make(map[Handle]func())}
}

func (s *QueueScheduler) Schedule(fn func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	s.order = append(s.order, s.next)
	return s.next
}

func (s *QueueScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// RunPending runs every callback scheduled before the call and returns how
// many ran. Callbacks scheduled while running wait for the next call.
func (s *QueueScheduler) RunPending() int {
	s.mu.Lock()
	order := s.order
	s.order = nil
	fns := make([]func(), 0, len(order))
	for _, h := range order {
		if fn, ok := s.pending[h]; ok {
			fns = append(fns, fn)
			delete(s.pending, h)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending returns the number of callbacks waiting to run.
func (s *QueueScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
