package pipeline

import (
	"image"
	"sync"
)

// Surface holds the latest image written to a display target. Readers poll
// Current or wait on Changed.
type Surface struct {
	mu      sync.Mutex
	img     *image.RGBA
	seq     uint64
	changed chan struct{}
}

func NewSurface() *Surface {
	return &Surface{changed: make(chan struct{})}
}

// Set replaces the surface content. The surface takes ownership of img.
func (s *Surface) Set(img *image.RGBA) {
	s.mu.Lock()
	s.img = img
	s.seq++
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Clear drops the current content.
func (s *Surface) Clear() {
	s.Set(nil)
}

// Current returns the latest image and its sequence number. The image must
// not be modified.
func (s *Surface) Current() (*image.RGBA, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, s.seq
}

// CurrentFrame returns the latest image, or nil before the first Set.
func (s *Surface) CurrentFrame() *image.RGBA {
	img, _ := s.Current()
	return img
}

// Changed returns a channel closed on the next Set.
func (s *Surface) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Size returns the dimensions of the current image.
func (s *Surface) Size() (int, int) {
	img := s.CurrentFrame()
	if img == nil {
		return 0, 0
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}
