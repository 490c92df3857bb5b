package composite

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/user/dualcam/pkg/adapters/logger"
	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/mocks"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
)

func newBuffer(w, h int, ms float64) *frame.Buffer {
	return frame.NewBuffer(image.NewRGBA(image.Rect(0, 0, w, h)), frame.FormatBGRA8, frame.Millis(ms), nil)
}

func testInput(kind pipeline.LayoutKind) pipeline.CompositeInput {
	spec := pipeline.DefaultLayoutSpec()
	spec.Kind = kind
	return pipeline.CompositeInput{
		Pair: frame.Pair{
			Front: newBuffer(640, 480, 1000),
			Back:  newBuffer(1280, 720, 1000.4),
		},
		Quality: 0.8,
		Layout:  spec,
		Theme:   pipeline.DefaultCompositeTheme(),
	}
}

func TestStage_Execute(t *testing.T) {
	device := &mocks.Device{}
	stage := NewStage(device, logger.NewNoop())

	input := testInput(pipeline.LayoutPictureInPicture)
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Frame.Release()

	// Output matches the primary (back) input.
	if result.Frame.Size() != image.Pt(1280, 720) {
		t.Errorf("expected 1280x720 output, got %v", result.Frame.Size())
	}
	if result.Frame.PTS() != input.Pair.Front.PTS() {
		t.Errorf("expected output pts %v, got %v", input.Pair.Front.PTS(), result.Frame.PTS())
	}
	if result.Kernel != ports.KernelPictureInPicture {
		t.Errorf("expected pip kernel, got %s", result.Kernel)
	}

	if device.DispatchCount() != 1 {
		t.Fatalf("expected 1 dispatch, got %d", device.DispatchCount())
	}
	cmd := device.Dispatches[0]
	if cmd.Params.Quality != 0.8 {
		t.Errorf("expected quality 0.8, got %v", cmd.Params.Quality)
	}
	if cmd.Primary.(*mocks.Texture).Buffer != input.Pair.Back {
		t.Error("primary texture should wrap the back frame")
	}
	if cmd.Secondary.(*mocks.Texture).Buffer != input.Pair.Front {
		t.Error("secondary texture should wrap the front frame")
	}
	if cmd.Params.PrimaryRect != image.Rect(0, 0, 1280, 720) {
		t.Errorf("unexpected primary rect %v", cmd.Params.PrimaryRect)
	}
	if cmd.Params.SecondaryRect.Empty() {
		t.Error("expected an inset rectangle")
	}
	if cmd.Params.BorderWidth != 3 {
		t.Errorf("expected border width 3, got %v", cmd.Params.BorderWidth)
	}
}

func TestStage_ExecuteFrontPrimary(t *testing.T) {
	device := &mocks.Device{}
	stage := NewStage(device, logger.NewNoop())

	input := testInput(pipeline.LayoutSideBySide)
	input.Layout.Primary = pipeline.SourceFront

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Frame.Release()

	if result.Frame.Size() != image.Pt(640, 480) {
		t.Errorf("expected output sized like the front frame, got %v", result.Frame.Size())
	}
}

func TestStage_ExecuteSplit(t *testing.T) {
	device := &mocks.Device{}
	stage := NewStage(device, logger.NewNoop())

	input := testInput(pipeline.LayoutSplit)
	input.Pair.Back = nil

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Frame.Release()

	cmd := device.Dispatches[0]
	if cmd.Secondary != nil {
		t.Error("split must not bind a secondary texture")
	}
	if cmd.Primary.(*mocks.Texture).Buffer != input.Pair.Front {
		t.Error("split should fall back to the available stream")
	}
}

func TestStage_ExecuteMissingSecondary(t *testing.T) {
	device := &mocks.Device{}
	stage := NewStage(device, logger.NewNoop())

	input := testInput(pipeline.LayoutOverlay)
	input.Pair.Front = nil

	_, err := stage.Execute(context.Background(), input)
	if !errors.Is(err, pipeline.ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
	if device.DispatchCount() != 0 {
		t.Error("no dispatch expected")
	}
}

func TestStage_ExecuteNoDevice(t *testing.T) {
	stage := NewStage(nil, logger.NewNoop())

	if _, err := stage.Execute(context.Background(), testInput(pipeline.LayoutSplit)); !errors.Is(err, pipeline.ErrGPUBackendUnavailable) {
		t.Errorf("Execute: expected ErrGPUBackendUnavailable, got %v", err)
	}
	if err := stage.Prepare(pipeline.LayoutSplit); !errors.Is(err, pipeline.ErrGPUBackendUnavailable) {
		t.Errorf("Prepare: expected ErrGPUBackendUnavailable, got %v", err)
	}
}

// TestStage_ExecuteFailures checks each failure maps to its error and never
// leaks the output buffer.
func TestStage_ExecuteFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		setup  func(d *mocks.Device)
		expect error
	}{
		{
			name: "buffer",
			setup: func(d *mocks.Device) {
				d.NewOutputBufferFunc = func(*frame.Buffer, frame.Timestamp) (*frame.Buffer, error) { return nil, boom }
			},
			expect: pipeline.ErrBufferCreationFailed,
		},
		{
			name: "texture",
			setup: func(d *mocks.Device) {
				d.NewTextureFunc = func(*frame.Buffer) (ports.Texture, error) { return nil, boom }
			},
			expect: pipeline.ErrTextureCreationFailed,
		},
		{
			name: "pipeline",
			setup: func(d *mocks.Device) {
				d.NewComputePipelineFunc = func(ports.Kernel) (ports.ComputePipeline, error) { return nil, boom }
			},
			expect: pipeline.ErrPipelineCreationFailed,
		},
		{
			name: "device lost",
			setup: func(d *mocks.Device) {
				d.DispatchFunc = func(context.Context, ports.DispatchCommand) error { return pipeline.ErrDeviceLost }
			},
			expect: pipeline.ErrDeviceLost,
		},
		{
			name: "cancelled",
			setup: func(d *mocks.Device) {
				d.DispatchFunc = func(ctx context.Context, _ ports.DispatchCommand) error {
					<-ctx.Done()
					return ctx.Err()
				}
			},
			expect: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := &mocks.Device{}
			tt.setup(device)
			stage := NewStage(device, logger.NewNoop())

			ctx, cancel := context.WithCancel(context.Background())
			if tt.expect == context.Canceled {
				cancel()
			}
			defer cancel()

			_, err := stage.Execute(ctx, testInput(pipeline.LayoutPictureInPicture))
			if !errors.Is(err, tt.expect) {
				t.Errorf("expected %v, got %v", tt.expect, err)
			}
			if device.LiveBuffers() != 0 {
				t.Errorf("output buffer leaked: %d live", device.LiveBuffers())
			}
		})
	}
}

func TestStage_PipelineCache(t *testing.T) {
	device := &mocks.Device{}
	stage := NewStage(device, logger.NewNoop())

	if err := stage.Prepare(pipeline.LayoutOverlay); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for i := 0; i < 3; i++ {
		result, err := stage.Execute(context.Background(), testInput(pipeline.LayoutOverlay))
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		result.Frame.Release()
	}
	if device.PipelineCount() != 1 {
		t.Errorf("expected 1 compiled pipeline, got %d", device.PipelineCount())
	}

	stage.Invalidate()
	if err := stage.Prepare(pipeline.LayoutOverlay); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if device.PipelineCount() != 2 {
		t.Errorf("expected pipeline recompiled after Invalidate, got %d", device.PipelineCount())
	}
}
