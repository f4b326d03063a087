package preview

import (
	"errors"
	"fmt"
	"image"
)

// ErrSizeMismatch is returned when a bulk-copy source does not hold exactly
// width×height bytes. Under the pool's discard-and-reallocate policy an
// acquired buffer always matches the requested dimensions, so hitting this
// error means the frame envelope itself is corrupt.
var ErrSizeMismatch = errors.New("framepreview: source size does not match buffer")

// ImageBuffer is a single mutable 2-D raster of single-byte samples.
//
// Width and height are fixed at construction and the backing storage is
// never resized in place; a dimension change always requires a new buffer.
//
// Thread-safety: none. An ImageBuffer is mutated only by whoever holds
// exclusive access to it; the producer and the display consumer coordinate
// through the slot lock (see slot.go).
type ImageBuffer struct {
	width   int
	height  int
	samples []byte
}

// NewImageBuffer allocates a width×height raster with every sample set to
// fill. Panics on non-positive dimensions (constructor misuse).
func NewImageBuffer(width, height int, fill byte) *ImageBuffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("framepreview: invalid buffer dimensions %dx%d", width, height))
	}
	samples := make([]byte, width*height)
	if fill != 0 {
		for i := range samples {
			samples[i] = fill
		}
	}
	return &ImageBuffer{width: width, height: height, samples: samples}
}

// Width returns the raster width in pixels.
func (b *ImageBuffer) Width() int { return b.width }

// Height returns the raster height in pixels.
func (b *ImageBuffer) Height() int { return b.height }

// Size returns the total sample count (width × height).
func (b *ImageBuffer) Size() int { return len(b.samples) }

// RawBytes exposes the backing storage for bulk copy-in from a raster
// source. The slice aliases live storage: writes through it are writes into
// the buffer, so the caller must hold exclusive access.
func (b *ImageBuffer) RawBytes() []byte { return b.samples }

// CopyFrom bulk-copies src into the backing storage. src must hold exactly
// width×height bytes; anything else returns ErrSizeMismatch and leaves the
// buffer untouched.
func (b *ImageBuffer) CopyFrom(src []byte) error {
	if len(src) != len(b.samples) {
		return ErrSizeMismatch
	}
	copy(b.samples, src)
	return nil
}

// Transform applies f to every sample in place.
func (b *ImageBuffer) Transform(f Transform) {
	for i, s := range b.samples {
		b.samples[i] = f(s)
	}
}

// ToDisplayable produces a renderable snapshot of the buffer. The returned
// image owns its own pixel storage, so later mutation of the buffer never
// leaks into a view already handed out. The buffer itself is not mutated.
func (b *ImageBuffer) ToDisplayable() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.width, b.height))
	copy(img.Pix, b.samples)
	return img
}
