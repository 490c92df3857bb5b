package ports

import (
	"github.com/user/dualcam/pkg/frame"
)

// VideoEncoder is the downstream consumer of composited frames.
// The pipeline never retries on the encoder's behalf. Encode may be called
// from several goroutines at once unless output ordering is enabled.
type VideoEncoder interface {
	// Encode encodes one composited buffer presented at pts.
	// The buffer is only valid for the duration of the call.
	Encode(buf *frame.Buffer, pts frame.Timestamp) (EncodedChunk, error)
}

// EncodedChunk is one unit of encoder output.
type EncodedChunk struct {
	Data     []byte
	PTS      frame.Timestamp
	Keyframe bool
}
