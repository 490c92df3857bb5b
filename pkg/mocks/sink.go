package mocks

import (
	"image"
	"sync"

	"github.com/user/dualcam/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	ConfigJSON     []byte
	MetricsJSON    [][]byte
	ComposedFrames map[uint64]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		ComposedFrames: make(map[uint64]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveConfigJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfigJSON = data
	return nil
}

func (m *DebugSink) SaveMetricsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetricsJSON = append(m.MetricsJSON, data)
	return nil
}

func (m *DebugSink) SaveComposedFrame(seq uint64, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ComposedFrames[seq] = img
	return nil
}

// FrameCount returns the number of saved frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ComposedFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                                       { return false }
func (m *NullSink) SaveConfigJSON(data []byte) error                    { return nil }
func (m *NullSink) SaveMetricsJSON(data []byte) error                   { return nil }
func (m *NullSink) SaveComposedFrame(seq uint64, img image.Image) error { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
