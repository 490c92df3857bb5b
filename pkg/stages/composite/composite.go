// Package composite implements the frame composition stage.
package composite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
	"github.com/user/dualcam/pkg/stages/layout"
)

// Stage composes one frame pair into an output buffer on the GPU device.
// Compute pipelines are compiled once per kernel and cached until
// Invalidate is called.
type Stage struct {
	device ports.Device
	logger ports.Logger

	mu        sync.Mutex
	pipelines map[ports.Kernel]ports.ComputePipeline
}

// NewStage creates a new composite stage.
func NewStage(device ports.Device, logger ports.Logger) *Stage {
	return &Stage{
		device:    device,
		logger:    logger.WithComponent("composite"),
		pipelines: make(map[ports.Kernel]ports.ComputePipeline),
	}
}

// Prepare compiles the compute pipeline for the layout's kernel.
func (s *Stage) Prepare(kind pipeline.LayoutKind) error {
	_, err := s.pipelineFor(kind.Kernel())
	return err
}

// Invalidate drops every cached pipeline. Called when the layout changes.
func (s *Stage) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.pipelines)
}

func (s *Stage) pipelineFor(kernel ports.Kernel) (ports.ComputePipeline, error) {
	if s.device == nil {
		return nil, pipeline.ErrGPUBackendUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cp, ok := s.pipelines[kernel]; ok {
		return cp, nil
	}
	cp, err := s.device.NewComputePipeline(kernel)
	if err != nil {
		return nil, classify(err, pipeline.ErrPipelineCreationFailed)
	}
	s.pipelines[kernel] = cp
	s.logger.Debug("Compiled %s pipeline", kernel)
	return cp, nil
}

// Execute composes the pair. On failure any output buffer is released.
// On success the caller owns the returned frame.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	if s.device == nil {
		return pipeline.CompositeResult{}, pipeline.ErrGPUBackendUnavailable
	}

	kind := input.Layout.Kind
	primary, secondary := arrange(input.Pair, input.Layout.Primary)
	if primary == nil {
		return pipeline.CompositeResult{}, pipeline.ErrMissingInput
	}
	if !kind.RequiresSecondary() {
		secondary = nil
	} else if secondary == nil {
		return pipeline.CompositeResult{}, pipeline.ErrMissingInput
	}

	kernel := kind.Kernel()
	cp, err := s.pipelineFor(kernel)
	if err != nil {
		return pipeline.CompositeResult{}, err
	}

	out, err := s.device.NewOutputBuffer(primary, input.Pair.PTS())
	if err != nil {
		return pipeline.CompositeResult{}, classify(err, pipeline.ErrBufferCreationFailed)
	}

	if err := s.dispatch(ctx, cp, primary, secondary, out, input); err != nil {
		out.Release()
		return pipeline.CompositeResult{}, err
	}

	return pipeline.CompositeResult{Frame: out, Kernel: kernel}, nil
}

func (s *Stage) dispatch(ctx context.Context, cp ports.ComputePipeline, primary, secondary, out *frame.Buffer, input pipeline.CompositeInput) error {
	pt, err := s.device.NewTexture(primary)
	if err != nil {
		return classify(err, pipeline.ErrTextureCreationFailed)
	}
	ot, err := s.device.NewTexture(out)
	if err != nil {
		return classify(err, pipeline.ErrTextureCreationFailed)
	}

	cmd := ports.DispatchCommand{Pipeline: cp, Primary: pt, Output: ot}
	geom := pipeline.LayoutInput{
		Spec:        input.Layout,
		Canvas:      out.Size(),
		PrimarySize: primary.Size(),
	}
	if secondary != nil {
		st, err := s.device.NewTexture(secondary)
		if err != nil {
			return classify(err, pipeline.ErrTextureCreationFailed)
		}
		cmd.Secondary = st
		geom.SecondarySize = secondary.Size()
	}

	rects := layout.ComputeLayout(geom)
	cmd.Params = ports.KernelParams{
		Quality:       input.Quality,
		PrimaryRect:   rects.Primary,
		SecondaryRect: rects.Secondary,
		Alpha:         rects.Alpha,
		BorderWidth:   float64(input.Layout.BorderWidth),
		BorderColor:   input.Theme.BorderColor,
		CornerRadius:  float64(input.Layout.CornerRadius),
		Background:    input.Theme.BackgroundColor,
	}

	if err := s.device.Dispatch(ctx, cmd); err != nil {
		return fmt.Errorf("dispatch %s: %w", cp.Kernel(), err)
	}
	return nil
}

// arrange returns the buffers in primary, secondary order. A missing
// primary falls back to the other stream for single-input layouts.
func arrange(pair frame.Pair, primary pipeline.Source) (*frame.Buffer, *frame.Buffer) {
	p, q := pair.Back, pair.Front
	if primary == pipeline.SourceFront {
		p, q = pair.Front, pair.Back
	}
	if p == nil {
		return q, nil
	}
	return p, q
}

// classify wraps err with sentinel unless it already carries a pipeline
// error the caller can match on.
func classify(err, sentinel error) error {
	for _, known := range []error{
		sentinel,
		pipeline.ErrDeviceLost,
		pipeline.ErrMissingInput,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
