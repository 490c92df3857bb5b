// Package frame defines the immutable frame data carried through the pipeline.
package frame

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// PixelFormat identifies the memory layout of a frame's pixels.
type PixelFormat int

const (
	FormatBGRA8 PixelFormat = iota
	FormatRGBA8
	FormatNV12
)

// String returns the string representation of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case FormatBGRA8:
		return "bgra8"
	case FormatRGBA8:
		return "rgba8"
	case FormatNV12:
		return "nv12"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the average storage cost of one pixel.
func (f PixelFormat) BytesPerPixel() float64 {
	switch f {
	case FormatNV12:
		return 1.5
	default:
		return 4
	}
}

// Buffer is a borrowed pixel surface plus its presentation timestamp.
// It is immutable after creation. The optional release hook runs once,
// when the last reference is released.
type Buffer struct {
	pixels image.Image
	width  int
	height int
	format PixelFormat
	pts    Timestamp

	refs      atomic.Int32
	onRelease func()
	once      sync.Once
}

// NewBuffer wraps pixels as a Buffer holding one reference.
// Width and height are taken from the image bounds.
func NewBuffer(pixels image.Image, format PixelFormat, pts Timestamp, onRelease func()) *Buffer {
	b := &Buffer{
		pixels:    pixels,
		format:    format,
		pts:       pts,
		onRelease: onRelease,
	}
	if pixels != nil {
		b.width = pixels.Bounds().Dx()
		b.height = pixels.Bounds().Dy()
	}
	b.refs.Store(1)
	return b
}

// Pixels returns the underlying pixel handle. Callers must not mutate it.
func (b *Buffer) Pixels() image.Image { return b.pixels }

// Width returns the frame width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the frame height in pixels.
func (b *Buffer) Height() int { return b.height }

// Format returns the pixel format.
func (b *Buffer) Format() PixelFormat { return b.format }

// PTS returns the presentation timestamp.
func (b *Buffer) PTS() Timestamp { return b.pts }

// Size returns the frame dimensions.
func (b *Buffer) Size() image.Point { return image.Pt(b.width, b.height) }

// ByteSize estimates the memory held by the pixel surface.
func (b *Buffer) ByteSize() int64 {
	return int64(float64(b.width*b.height) * b.format.BytesPerPixel())
}

// Retain adds a reference and returns the buffer for chaining.
func (b *Buffer) Retain() *Buffer {
	b.refs.Add(1)
	return b
}

// Release drops a reference. The release hook runs when the count reaches zero.
func (b *Buffer) Release() {
	if b.refs.Add(-1) > 0 {
		return
	}
	b.once.Do(func() {
		if b.onRelease != nil {
			b.onRelease()
		}
	})
}

// Released reports whether every reference has been released.
func (b *Buffer) Released() bool {
	return b.refs.Load() <= 0
}

// Pair is two correlated buffers from the front and back producers.
// Back is nil for single-stream layouts.
type Pair struct {
	Front     *Buffer
	Back      *Buffer
	SyncDelta time.Duration
}

// PTS returns the presentation time of the pair, taken from the front frame.
func (p Pair) PTS() Timestamp {
	if p.Front != nil {
		return p.Front.PTS()
	}
	if p.Back != nil {
		return p.Back.PTS()
	}
	return Timestamp{}
}
