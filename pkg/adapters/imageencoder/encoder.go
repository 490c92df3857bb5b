// Package imageencoder provides an intra-frame JPEG encoder.
//
// Every composited frame becomes one self-contained JPEG chunk. Written
// back to back the chunks form a Motion JPEG stream that common players
// open directly. It stands in for a hardware encoder session.
package imageencoder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"sync"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/ports"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 85

// ErrSizeChanged is returned when a frame does not match the session size.
var ErrSizeChanged = errors.New("imageencoder: frame size changed mid-session")

// Options configures an Encoder.
type Options struct {
	Quality int // JPEG quality 1-100
}

// Stats contains cumulative encoder counters.
type Stats struct {
	Frames int
	Bytes  int64
	Width  int
	Height int
}

// Encoder implements ports.VideoEncoder with image/jpeg.
type Encoder struct {
	mu sync.Mutex

	quality int
	out     io.Writer

	width  int
	height int
	frames int
	bytes  int64
}

// New creates an encoder. When out is non-nil every chunk is also written to it.
func New(opts Options, out io.Writer) *Encoder {
	q := opts.Quality
	if q < 1 || q > 100 {
		q = DefaultQuality
	}
	return &Encoder{quality: q, out: out}
}

// Encode compresses buf. The first frame fixes the session dimensions.
func (e *Encoder) Encode(buf *frame.Buffer, pts frame.Timestamp) (ports.EncodedChunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frames == 0 {
		e.width, e.height = buf.Width(), buf.Height()
	} else if buf.Width() != e.width || buf.Height() != e.height {
		return ports.EncodedChunk{}, fmt.Errorf("%w: %dx%d, session is %dx%d", ErrSizeChanged, buf.Width(), buf.Height(), e.width, e.height)
	}

	var data bytes.Buffer
	if err := jpeg.Encode(&data, buf.Pixels(), &jpeg.Options{Quality: e.quality}); err != nil {
		return ports.EncodedChunk{}, fmt.Errorf("encode JPEG: %w", err)
	}

	if e.out != nil {
		if _, err := e.out.Write(data.Bytes()); err != nil {
			return ports.EncodedChunk{}, fmt.Errorf("write chunk: %w", err)
		}
	}

	e.frames++
	e.bytes += int64(data.Len())
	return ports.EncodedChunk{Data: data.Bytes(), PTS: pts, Keyframe: true}, nil
}

// Stats returns cumulative counters.
func (e *Encoder) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Frames: e.frames, Bytes: e.bytes, Width: e.width, Height: e.height}
}

var _ ports.VideoEncoder = (*Encoder)(nil)
