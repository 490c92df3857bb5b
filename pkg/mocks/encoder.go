package mocks

import (
	"sync"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder.
type VideoEncoder struct {
	mu sync.Mutex

	EncodeFunc func(buf *frame.Buffer, pts frame.Timestamp) (ports.EncodedChunk, error)

	// Recorded calls for verification
	EncodeCalls []EncodeCall
}

// EncodeCall records a call to Encode.
type EncodeCall struct {
	PTS    frame.Timestamp
	Width  int
	Height int
}

func (m *VideoEncoder) Encode(buf *frame.Buffer, pts frame.Timestamp) (ports.EncodedChunk, error) {
	m.mu.Lock()
	m.EncodeCalls = append(m.EncodeCalls, EncodeCall{PTS: pts, Width: buf.Width(), Height: buf.Height()})
	m.mu.Unlock()

	if m.EncodeFunc != nil {
		return m.EncodeFunc(buf, pts)
	}
	return ports.EncodedChunk{Data: []byte{0x00, 0x00, 0x01}, PTS: pts, Keyframe: true}, nil
}

// Calls returns a copy of the recorded calls.
func (m *VideoEncoder) Calls() []EncodeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EncodeCall(nil), m.EncodeCalls...)
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)
