package encoder

import "image"

// Encoder encodes a surface image into bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	ContentType() string
}
