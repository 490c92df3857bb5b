package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidState is returned when an operation is not legal in the current state.
	ErrInvalidState = errors.New("pipeline: invalid state")

	// ErrFrameDropped is returned when a frame pair is discarded without composition.
	ErrFrameDropped = errors.New("pipeline: frame dropped")

	// ErrMissingInput is returned when a required input buffer is nil.
	ErrMissingInput = errors.New("pipeline: missing input frame")

	// ErrBufferCreationFailed is returned when the output buffer cannot be allocated.
	ErrBufferCreationFailed = errors.New("pipeline: buffer creation failed")

	// ErrTextureCreationFailed is returned when a texture view cannot be created.
	ErrTextureCreationFailed = errors.New("pipeline: texture creation failed")

	// ErrPipelineCreationFailed is returned when a compute pipeline cannot be compiled.
	ErrPipelineCreationFailed = errors.New("pipeline: compute pipeline creation failed")

	// ErrGPUBackendUnavailable is returned when no GPU device is usable.
	ErrGPUBackendUnavailable = errors.New("pipeline: GPU backend unavailable")

	// ErrDeviceLost is returned by a device that stopped working mid-session.
	// It ends the processing session.
	ErrDeviceLost = errors.New("pipeline: GPU device lost")

	// ErrEncodeFailed is returned when the encoder rejects a frame.
	ErrEncodeFailed = errors.New("pipeline: encode failed")

	// ErrInvalidConfiguration is returned when a configuration fails validation.
	ErrInvalidConfiguration = errors.New("pipeline: invalid configuration")

	// ErrClosed is returned after the pipeline has been shut down.
	ErrClosed = errors.New("pipeline: closed")
)

// InvalidStateError reports an operation rejected by the state machine.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("pipeline: %s not allowed while %s", e.Op, e.State)
}

// Unwrap returns ErrInvalidState.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// DropReason explains why a frame was dropped.
type DropReason string

const (
	DropDesync   DropReason = "desync"
	DropQuality  DropReason = "quality"
	DropShutdown DropReason = "shutdown"
)

// DropError reports a dropped frame. It matches ErrFrameDropped.
type DropError struct {
	Reason DropReason
	Delta  time.Duration // Sync delta for desync drops
	Err    error         // Underlying cause, if any
}

func (e *DropError) Error() string {
	switch {
	case e.Reason == DropDesync:
		return fmt.Sprintf("pipeline: frame dropped (desync %s)", e.Delta)
	case e.Err != nil:
		return fmt.Sprintf("pipeline: frame dropped (%s): %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("pipeline: frame dropped (%s)", e.Reason)
	}
}

// Is reports ErrFrameDropped as a match.
func (e *DropError) Is(target error) bool {
	return target == ErrFrameDropped
}

// Unwrap returns the underlying cause.
func (e *DropError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ends a processing session.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceLost)
}

// DropReasonOf returns the drop reason carried by err, if any.
func DropReasonOf(err error) (DropReason, bool) {
	var de *DropError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
