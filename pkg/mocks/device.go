package mocks

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/ports"
)

// Device is a mock implementation of ports.Device.
// Unset funcs allocate real RGBA output buffers and complete dispatches
// immediately.
type Device struct {
	mu sync.Mutex

	NewOutputBufferFunc    func(template *frame.Buffer, pts frame.Timestamp) (*frame.Buffer, error)
	NewTextureFunc         func(buf *frame.Buffer) (ports.Texture, error)
	NewComputePipelineFunc func(kernel ports.Kernel) (ports.ComputePipeline, error)
	DispatchFunc           func(ctx context.Context, cmd ports.DispatchCommand) error

	Width int // QueueWidth, defaults to 1

	// Recorded calls for verification
	Dispatches       []ports.DispatchCommand
	PipelinesCreated []ports.Kernel
	Closed           bool

	allocated atomic.Int64
	live      atomic.Int64
	busy      atomic.Int64
}

// Texture is a mock texture.
type Texture struct {
	Buffer *frame.Buffer
}

func (t *Texture) Size() image.Point { return t.Buffer.Size() }

// ComputePipeline is a mock compute pipeline.
type ComputePipeline struct {
	K ports.Kernel
}

func (p *ComputePipeline) Kernel() ports.Kernel { return p.K }

func (m *Device) Name() string { return "mock" }

func (m *Device) QueueWidth() int {
	if m.Width <= 0 {
		return 1
	}
	return m.Width
}

func (m *Device) NewOutputBuffer(template *frame.Buffer, pts frame.Timestamp) (*frame.Buffer, error) {
	if m.NewOutputBufferFunc != nil {
		return m.NewOutputBufferFunc(template, pts)
	}
	size := int64(template.Width() * template.Height() * 4)
	m.allocated.Add(size)
	m.live.Add(1)
	img := image.NewRGBA(image.Rect(0, 0, template.Width(), template.Height()))
	return frame.NewBuffer(img, frame.FormatRGBA8, pts, func() {
		m.allocated.Add(-size)
		m.live.Add(-1)
	}), nil
}

func (m *Device) NewTexture(buf *frame.Buffer) (ports.Texture, error) {
	if m.NewTextureFunc != nil {
		return m.NewTextureFunc(buf)
	}
	return &Texture{Buffer: buf}, nil
}

func (m *Device) NewComputePipeline(kernel ports.Kernel) (ports.ComputePipeline, error) {
	m.mu.Lock()
	m.PipelinesCreated = append(m.PipelinesCreated, kernel)
	m.mu.Unlock()

	if m.NewComputePipelineFunc != nil {
		return m.NewComputePipelineFunc(kernel)
	}
	return &ComputePipeline{K: kernel}, nil
}

func (m *Device) Dispatch(ctx context.Context, cmd ports.DispatchCommand) error {
	m.mu.Lock()
	m.Dispatches = append(m.Dispatches, cmd)
	m.mu.Unlock()

	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, cmd)
	}
	return nil
}

func (m *Device) Stats() ports.DeviceStats {
	return ports.DeviceStats{
		Dispatches:     uint64(m.DispatchCount()),
		AllocatedBytes: m.allocated.Load(),
		LiveBuffers:    m.live.Load(),
		BusyTime:       time.Duration(m.busy.Load()),
	}
}

func (m *Device) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// AddBusy adds simulated busy time reported by Stats.
func (m *Device) AddBusy(d time.Duration) {
	m.busy.Add(int64(d))
}

// DispatchCount returns the number of Dispatch calls.
func (m *Device) DispatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Dispatches)
}

// PipelineCount returns the number of NewComputePipeline calls.
func (m *Device) PipelineCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PipelinesCreated)
}

// LiveBuffers returns the number of default output buffers not yet released.
func (m *Device) LiveBuffers() int64 {
	return m.live.Load()
}

var _ ports.Device = (*Device)(nil)
