package ports

import (
	"context"

	"github.com/user/dualcam/pkg/frame"
)

// PairSource abstracts the capture subsystem. It delivers front/back buffers
// from two independently clocked producers; the pipeline never calls back
// into it.
type PairSource interface {
	// Start begins capture. The channel is closed when capture ends or ctx is done.
	Start(ctx context.Context) (<-chan CapturedPair, error)

	// Close stops capture and releases producer resources.
	Close() error
}

// CapturedPair is one arrival from the producers, matched by arrival order.
// Back may be nil when only one sensor is active.
type CapturedPair struct {
	Front *frame.Buffer
	Back  *frame.Buffer
}
