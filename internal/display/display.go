// Package display shows the transform loop in a desktop window: the raw
// camera frame on the left, the thresholded one on the right.
package display

import (
	"context"
	"image"

	"github.com/junsooki/EdgeCam/internal/session"
)

// Display renders frames and handles user input.
type Display interface {
	Run() error
}

// FrameSource provides the latest image of a surface.
type FrameSource interface {
	CurrentFrame() *image.RGBA
}

// Controls is what the preview keys act on.
type Controls interface {
	Toggle() (bool, error)
	Retry(ctx context.Context) error
	State() session.State
}

// Pump runs callbacks that are due. The window calls it once per refresh.
type Pump interface {
	RunPending() int
}
