package capture

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Bound returns img as an *image.RGBA no larger than maxW×maxH, scaling it
// down with its aspect ratio preserved when the driver ignored the requested
// resolution. The result always has its origin at (0, 0).
func Bound(img image.Image, maxW, maxH int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() > maxW || b.Dy() > maxH {
		img = imaging.Fit(img, maxW, maxH, imaging.Linear)
		b = img.Bounds()
	}
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
