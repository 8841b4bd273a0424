package pipeline

import (
	"image"
	"testing"
)

func TestSurfaceSetNotifies(t *testing.T) {
	s := NewSurface()
	if img, seq := s.Current(); img != nil || seq != 0 {
		t.Fatalf("new surface = %v,%d", img, seq)
	}

	changed := s.Changed()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	s.Set(img)

	select {
	case <-changed:
	default:
		t.Fatal("Changed not closed by Set")
	}
	if got, seq := s.Current(); got != img || seq != 1 {
		t.Errorf("current = %p,%d", got, seq)
	}
	if w, h := s.Size(); w != 8 || h != 6 {
		t.Errorf("size = %dx%d", w, h)
	}

	s.Clear()
	if s.CurrentFrame() != nil {
		t.Error("Clear kept the image")
	}
	if w, h := s.Size(); w != 0 || h != 0 {
		t.Errorf("size after clear = %dx%d", w, h)
	}
}
