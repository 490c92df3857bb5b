package ports

import (
	"context"
	"image"
	"image/color"
	"time"

	"github.com/user/dualcam/pkg/frame"
)

// Kernel names a compute kernel. Each layout maps to exactly one kernel.
type Kernel string

const (
	KernelSideBySide       Kernel = "side_by_side"
	KernelPictureInPicture Kernel = "picture_in_picture"
	KernelOverlay          Kernel = "overlay"
	KernelSplit            Kernel = "split"
)

// Device abstracts a GPU device, its command queue and texture cache.
// A Device is created once by the owner and shared read-only by every
// composition; only the owner closes it.
type Device interface {
	// Name identifies the backend for logs and metrics.
	Name() string

	// QueueWidth is the number of dispatches the device can execute at once.
	QueueWidth() int

	// NewOutputBuffer allocates a writable buffer matching the template's
	// dimensions and pixel format. pts is stamped on the new buffer.
	NewOutputBuffer(template *frame.Buffer, pts frame.Timestamp) (*frame.Buffer, error)

	// NewTexture creates a backend-native view over a buffer without copying pixels.
	NewTexture(buf *frame.Buffer) (Texture, error)

	// NewComputePipeline compiles the pipeline state for a kernel.
	NewComputePipeline(kernel Kernel) (ComputePipeline, error)

	// Dispatch submits one compute pass and suspends until the device signals
	// completion or ctx is done.
	Dispatch(ctx context.Context, cmd DispatchCommand) error

	// Stats returns cumulative device counters.
	Stats() DeviceStats

	// Close releases the device. Further calls fail with a device-lost error.
	Close() error
}

// Texture is a view over a frame buffer usable by compute kernels.
type Texture interface {
	Size() image.Point
}

// ComputePipeline is a compiled kernel.
type ComputePipeline interface {
	Kernel() Kernel
}

// DispatchCommand describes one compute pass.
type DispatchCommand struct {
	Pipeline  ComputePipeline
	Primary   Texture
	Secondary Texture // nil for single-input kernels
	Output    Texture
	Params    KernelParams
}

// KernelParams parameterizes a dispatch.
type KernelParams struct {
	// Quality in [0.3, 1.0] selects compute resolution and filter complexity.
	Quality float64

	// PrimaryRect and SecondaryRect are destination rectangles in output space.
	PrimaryRect   image.Rectangle
	SecondaryRect image.Rectangle

	// Alpha is the secondary blend factor for the overlay kernel.
	Alpha float64

	// BorderWidth and BorderColor decorate the secondary region (0 = none).
	BorderWidth  float64
	BorderColor  color.Color
	CornerRadius float64

	Background color.Color
}

// DeviceStats contains cumulative device counters.
type DeviceStats struct {
	Dispatches     uint64
	Failures       uint64
	BusyTime       time.Duration
	AllocatedBytes int64
	LiveBuffers    int64
	QueueDepth     int
}
