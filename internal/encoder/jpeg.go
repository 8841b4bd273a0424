package encoder

import (
	"bytes"
	"image"
	"image/jpeg"
)

// DefaultQuality is used for surfaces when no quality is configured.
const DefaultQuality = 80

// JPEGEncoder encodes frames as JPEG.
type JPEGEncoder struct {
	quality int
}

// NewJPEGEncoder creates a JPEG encoder with the given quality (1-100).
func NewJPEGEncoder(quality int) *JPEGEncoder {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	return &JPEGEncoder{quality: quality}
}

func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(64 * 1024) // a 640x480 frame is usually well under this
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *JPEGEncoder) ContentType() string {
	return "image/jpeg"
}

// Quality returns the clamped quality setting.
func (e *JPEGEncoder) Quality() int {
	return e.quality
}
