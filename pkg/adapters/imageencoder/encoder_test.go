package imageencoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/user/dualcam/pkg/frame"
)

func newFrame(w, h int) *frame.Buffer {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return frame.NewBuffer(img, frame.FormatRGBA8, frame.Millis(0), nil)
}

func TestEncoder_Encode(t *testing.T) {
	var out bytes.Buffer
	enc := New(Options{Quality: 90}, &out)

	pts := frame.Millis(33.3)
	chunk, err := enc.Encode(newFrame(64, 48), pts)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !chunk.Keyframe || chunk.PTS != pts {
		t.Errorf("unexpected chunk header %+v", chunk.PTS)
	}

	img, err := jpeg.Decode(bytes.NewReader(chunk.Data))
	if err != nil {
		t.Fatalf("chunk is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("unexpected decoded size %v", img.Bounds())
	}
	if !bytes.Equal(out.Bytes(), chunk.Data) {
		t.Error("chunk should be written to the output stream")
	}

	stats := enc.Stats()
	if stats.Frames != 1 || stats.Bytes != int64(len(chunk.Data)) || stats.Width != 64 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestEncoder_SizeChange(t *testing.T) {
	enc := New(Options{}, nil)
	if _, err := enc.Encode(newFrame(32, 32), frame.Millis(0)); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if _, err := enc.Encode(newFrame(16, 16), frame.Millis(33)); !errors.Is(err, ErrSizeChanged) {
		t.Errorf("expected ErrSizeChanged, got %v", err)
	}
	if enc.Stats().Frames != 1 {
		t.Error("rejected frame must not be counted")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncoder_WriteError(t *testing.T) {
	enc := New(Options{}, failingWriter{})
	if _, err := enc.Encode(newFrame(8, 8), frame.Millis(0)); err == nil {
		t.Error("expected write error")
	}
}

func TestNew_DefaultQuality(t *testing.T) {
	for _, q := range []int{0, -5, 101} {
		if enc := New(Options{Quality: q}, nil); enc.quality != DefaultQuality {
			t.Errorf("quality %d: expected default %d, got %d", q, DefaultQuality, enc.quality)
		}
	}
}
