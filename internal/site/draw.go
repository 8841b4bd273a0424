package site

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"math"

	"github.com/gogpu/gg"
)

const (
	backgroundHex = "#0b1120"
	primaryHex    = "#00bfff"
	mutedHex      = "#334155"
)

// Diagram dimensions.
const (
	DiagramWidth  = 1000
	DiagramHeight = 180
)

// RenderArchitecture draws the layer flow as colored boxes joined by arrows
// and writes it as PNG.
func RenderArchitecture(w io.Writer, layers []Layer) error {
	dc := gg.NewContext(DiagramWidth, DiagramHeight)
	defer dc.Close()
	dc.ClearWithColor(gg.Hex(backgroundHex))

	n := len(layers)
	if n == 0 {
		return dc.EncodePNG(w)
	}

	const margin, gap = 20.0, 36.0
	boxW := (DiagramWidth - 2*margin - gap*float64(n-1)) / float64(n)
	boxH := DiagramHeight - 2*margin
	for i, l := range layers {
		x := margin + float64(i)*(boxW+gap)

		dc.SetHexColor(mutedHex)
		dc.DrawRoundedRectangle(x, margin, boxW, boxH, 12)
		if err := dc.Fill(); err != nil {
			return err
		}

		color := l.Color
		if color == "" {
			color = primaryHex
		}
		dc.SetHexColor(color)
		dc.SetLineWidth(3)
		dc.DrawRoundedRectangle(x, margin, boxW, boxH, 12)
		if err := dc.Stroke(); err != nil {
			return err
		}
		dc.DrawCircle(x+boxW/2, margin+boxH/2, math.Min(boxW, boxH)/5)
		if err := dc.Fill(); err != nil {
			return err
		}

		if i < n-1 {
			if err := drawArrow(dc, x+boxW+4, x+boxW+gap-4, DiagramHeight/2); err != nil {
				return err
			}
		}
	}
	return dc.EncodePNG(w)
}

func drawArrow(dc *gg.Context, x1, x2, y float64) error {
	dc.SetHexColor(primaryHex)
	dc.SetLineWidth(2)
	dc.DrawLine(x1, y, x2-6, y)
	if err := dc.Stroke(); err != nil {
		return err
	}
	dc.MoveTo(x2, y)
	dc.LineTo(x2-8, y-6)
	dc.LineTo(x2-8, y+6)
	dc.ClosePath()
	return dc.Fill()
}

// Glyph selects the icon drawn on an idle surface.
type Glyph int

const (
	// GlyphCamera marks the raw feed while paused or unavailable.
	GlyphCamera Glyph = iota
	// GlyphCPU marks the processed output while paused.
	GlyphCPU
)

// Placeholder draws the idle frame for a surface.
func Placeholder(width, height int, glyph Glyph) (*image.RGBA, error) {
	if glyph != GlyphCamera && glyph != GlyphCPU {
		return nil, fmt.Errorf("unknown glyph %d", glyph)
	}
	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.Hex(backgroundHex))

	cx, cy := float64(width)/2, float64(height)/2
	size := math.Min(float64(width), float64(height)) / 4

	var err error
	switch glyph {
	case GlyphCamera:
		err = drawCamera(dc, cx, cy, size)
	case GlyphCPU:
		err = drawCPU(dc, cx, cy, size)
	}
	if err != nil {
		return nil, fmt.Errorf("draw placeholder: %w", err)
	}

	img := dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}

func drawCamera(dc *gg.Context, cx, cy, size float64) error {
	dc.SetHexColor(mutedHex)
	dc.DrawRoundedRectangle(cx-size, cy-size*0.6, size*1.5, size*1.2, size/8)
	if err := dc.Fill(); err != nil {
		return err
	}
	dc.MoveTo(cx+size*0.5, cy)
	dc.LineTo(cx+size, cy-size*0.45)
	dc.LineTo(cx+size, cy+size*0.45)
	dc.ClosePath()
	return dc.Fill()
}

func drawCPU(dc *gg.Context, cx, cy, size float64) error {
	dc.SetHexColor(primaryHex)
	dc.SetLineWidth(size / 10)
	dc.DrawRoundedRectangle(cx-size/2, cy-size/2, size, size, size/10)
	if err := dc.Stroke(); err != nil {
		return err
	}
	dc.DrawRectangle(cx-size/4, cy-size/4, size/2, size/2)
	if err := dc.Fill(); err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		off := -size/4 + float64(i)*size/4
		dc.DrawLine(cx+off, cy-size/2, cx+off, cy-size*0.75)
		dc.DrawLine(cx+off, cy+size/2, cx+off, cy+size*0.75)
		dc.DrawLine(cx-size/2, cy+off, cx-size*0.75, cy+off)
		dc.DrawLine(cx+size/2, cy+off, cx+size*0.75, cy+off)
	}
	return dc.Stroke()
}
