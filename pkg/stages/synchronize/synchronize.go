// Package synchronize implements the frame-pair validation stage.
package synchronize

import (
	"context"
	"time"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/pipeline"
)

// DefaultTolerance is the maximum accepted delta between paired timestamps.
const DefaultTolerance = time.Millisecond

// Policy controls how pairs are validated.
type Policy struct {
	Tolerance time.Duration
	// Enforce rejects pairs whose delta exceeds Tolerance. When false every
	// pair with the required inputs is accepted.
	Enforce bool
	// RequireSecondary rejects pairs without a back frame.
	RequireSecondary bool
}

// DefaultPolicy returns Policy with default values.
func DefaultPolicy() Policy {
	return Policy{
		Tolerance:        DefaultTolerance,
		Enforce:          true,
		RequireSecondary: true,
	}
}

// Input is a candidate pair matched on arrival by the caller.
type Input struct {
	Front  *frame.Buffer
	Back   *frame.Buffer
	Policy Policy
}

// Stage validates frame pairs. It holds no state.
type Stage struct{}

// NewStage creates a new synchronize stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute validates the pair. See Correlate.
func (s *Stage) Execute(ctx context.Context, input Input) (frame.Pair, error) {
	return Correlate(input.Front, input.Back, input.Policy)
}

// Correlate computes the sync delta of two frames and validates it against
// the policy. A rejected pair returns a *pipeline.DropError with reason
// desync; the caller owns the buffers either way.
func Correlate(front, back *frame.Buffer, policy Policy) (frame.Pair, error) {
	if front == nil {
		return frame.Pair{}, pipeline.ErrMissingInput
	}
	if back == nil {
		if policy.RequireSecondary {
			return frame.Pair{}, pipeline.ErrMissingInput
		}
		return frame.Pair{Front: front}, nil
	}
	if !policy.RequireSecondary {
		// The back frame is not drawn, so its timing does not matter.
		return frame.Pair{Front: front, Back: back}, nil
	}

	delta := front.PTS().Sub(back.PTS())
	if delta < 0 {
		delta = -delta
	}
	pair := frame.Pair{Front: front, Back: back, SyncDelta: delta}

	if policy.Enforce && !front.PTS().WithinTolerance(back.PTS(), policy.Tolerance) {
		return frame.Pair{}, &pipeline.DropError{Reason: pipeline.DropDesync, Delta: delta}
	}
	return pair, nil
}
