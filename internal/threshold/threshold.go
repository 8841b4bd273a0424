// Package threshold implements the brightness-threshold effect applied to
// camera frames. It is a stand-in for edge detection: each pixel becomes
// white or black depending on how far its luminosity sits from mid-gray.
package threshold

import (
	"image"
	"math"
)

const (
	// Midpoint is the mid-gray reference luminosity.
	Midpoint = 128
	// DefaultOffset is how far from Midpoint a pixel must be to turn white.
	DefaultOffset = 50
)

// Filter applies the threshold in place.
type Filter interface {
	Apply(img *image.RGBA)
}

// Luminosity returns the weighted brightness of an RGB sample.
func Luminosity(r, g, b uint8) float64 {
	// Explicit conversions keep each product rounded on its own (no FMA).
	return float64(float64(r)*0.299) + float64(float64(g)*0.587) + float64(float64(b)*0.114)
}

// Threshold whitens pixels whose luminosity differs from Midpoint by strictly
// more than Offset and blackens the rest. Alpha is left untouched.
type Threshold struct {
	Offset float64
}

// New returns a Threshold with the given offset. Non-positive offsets fall
// back to DefaultOffset.
func New(offset float64) *Threshold {
	if offset <= 0 {
		offset = DefaultOffset
	}
	return &Threshold{Offset: offset}
}

// Classify maps a luminosity value to 255 or 0. A value exactly Offset away
// from Midpoint is black.
func (t *Threshold) Classify(l float64) uint8 {
	if math.Abs(l-Midpoint) > t.Offset {
		return 255
	}
	return 0
}

func (t *Threshold) Apply(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			v := t.Classify(Luminosity(row[i], row[i+1], row[i+2]))
			row[i] = v
			row[i+1] = v
			row[i+2] = v
		}
	}
}
