// Package pipeline provides the stage contract, stage input/output types,
// lifecycle states and error values shared by the dualcam pipeline.
package pipeline

import (
	"context"
)

// Stage represents a processing stage in the pipeline.
// Each stage takes an input and produces an output.
type Stage[In, Out any] interface {
	// Execute runs the stage with the given input and returns the output.
	Execute(ctx context.Context, input In) (Out, error)
}

// StageFunc is a function adapter for Stage interface.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Execute implements Stage interface.
func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// CompositeStage composes one frame pair.
type CompositeStage = Stage[CompositeInput, CompositeResult]

// EncodeStage hands composited frames to the encoder.
type EncodeStage = Stage[EncodeInput, EncodeResult]
