package synchronize

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/pipeline"
)

func newFrame(ms float64) *frame.Buffer {
	return frame.NewBuffer(image.NewRGBA(image.Rect(0, 0, 8, 8)), frame.FormatBGRA8, frame.Millis(ms), nil)
}

func TestCorrelate_WithinTolerance(t *testing.T) {
	pair, err := Correlate(newFrame(1000.0), newFrame(1000.4), DefaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.SyncDelta != 400*time.Microsecond {
		t.Errorf("expected delta 400µs, got %v", pair.SyncDelta)
	}
	if pair.Front == nil || pair.Back == nil {
		t.Error("expected both frames in pair")
	}
}

func TestCorrelate_Desync(t *testing.T) {
	_, err := Correlate(newFrame(1000.0), newFrame(1005.0), DefaultPolicy())
	if !errors.Is(err, pipeline.ErrFrameDropped) {
		t.Fatalf("expected ErrFrameDropped, got %v", err)
	}

	var de *pipeline.DropError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DropError, got %T", err)
	}
	if de.Reason != pipeline.DropDesync {
		t.Errorf("expected reason desync, got %s", de.Reason)
	}
	if de.Delta != 5*time.Millisecond {
		t.Errorf("expected delta 5ms, got %v", de.Delta)
	}
}

func TestCorrelate_Boundary(t *testing.T) {
	tests := []struct {
		name    string
		back    float64
		dropped bool
	}{
		{"exactly at tolerance", 1001.0, false},
		{"one microsecond over", 1001.001, true},
		{"back earlier than front", 999.5, false},
		{"back much earlier", 990.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Correlate(newFrame(1000.0), newFrame(tt.back), DefaultPolicy())
			if got := errors.Is(err, pipeline.ErrFrameDropped); got != tt.dropped {
				t.Errorf("dropped = %v, want %v (err=%v)", got, tt.dropped, err)
			}
		})
	}
}

func TestCorrelate_EnforceDisabled(t *testing.T) {
	policy := DefaultPolicy()
	policy.Enforce = false

	pair, err := Correlate(newFrame(0), newFrame(250), policy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.SyncDelta != 250*time.Millisecond {
		t.Errorf("expected delta to be reported, got %v", pair.SyncDelta)
	}
}

func TestCorrelate_MissingInputs(t *testing.T) {
	if _, err := Correlate(nil, newFrame(0), DefaultPolicy()); !errors.Is(err, pipeline.ErrMissingInput) {
		t.Errorf("nil front: expected ErrMissingInput, got %v", err)
	}
	if _, err := Correlate(newFrame(0), nil, DefaultPolicy()); !errors.Is(err, pipeline.ErrMissingInput) {
		t.Errorf("nil back: expected ErrMissingInput, got %v", err)
	}

	single := DefaultPolicy()
	single.RequireSecondary = false
	pair, err := Correlate(newFrame(0), nil, single)
	if err != nil {
		t.Fatalf("single stream: unexpected error: %v", err)
	}
	if pair.Back != nil || pair.SyncDelta != 0 {
		t.Errorf("single stream: unexpected pair %+v", pair)
	}
}

func TestCorrelate_SingleStreamIgnoresBackTiming(t *testing.T) {
	single := DefaultPolicy()
	single.RequireSecondary = false

	pair, err := Correlate(newFrame(1000.0), newFrame(1005.0), single)
	if err != nil {
		t.Fatalf("back frame timing should not matter, got %v", err)
	}
	if pair.Front == nil || pair.SyncDelta != 0 {
		t.Errorf("unexpected pair %+v", pair)
	}
}

func TestCorrelate_MixedScales(t *testing.T) {
	front := frame.NewBuffer(nil, frame.FormatBGRA8, frame.Timestamp{Value: 30000, Scale: 30000}, nil)
	back := frame.NewBuffer(nil, frame.FormatBGRA8, frame.Timestamp{Value: 1_000_500, Scale: 1_000_000}, nil)

	pair, err := Correlate(front, back, DefaultPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.SyncDelta != 500*time.Microsecond {
		t.Errorf("expected delta 500µs, got %v", pair.SyncDelta)
	}
}

func TestStage_Execute(t *testing.T) {
	stage := NewStage()
	_, err := stage.Execute(context.Background(), Input{
		Front:  newFrame(1000.0),
		Back:   newFrame(1005.0),
		Policy: DefaultPolicy(),
	})
	if !errors.Is(err, pipeline.ErrFrameDropped) {
		t.Errorf("expected drop, got %v", err)
	}
}
