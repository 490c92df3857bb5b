// Package encode implements the encoder hand-off stage.
package encode

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
)

// Stage hands composited frames to the encoder and releases them.
//
// In ordered mode frames are held in a reorder buffer keyed by admission
// sequence and delivered strictly in sequence order. Every sequence number
// must eventually reach Execute or Skip, otherwise later frames stay
// buffered until Reset. Ordered deliveries run under the stage lock, so the
// encoder sees one frame at a time. Unordered deliveries run on the caller's
// goroutine and may reach the encoder concurrently.
type Stage struct {
	encoder ports.VideoEncoder
	sink    ports.DebugSink
	logger  ports.Logger
	ordered bool

	mu      sync.Mutex
	next    uint64
	pending map[uint64]*frame.Buffer // nil entry marks a skipped sequence
}

// NewStage creates a new encode stage.
func NewStage(encoder ports.VideoEncoder, sink ports.DebugSink, logger ports.Logger, ordered bool) *Stage {
	return &Stage{
		encoder: encoder,
		sink:    sink,
		logger:  logger.WithComponent("encode"),
		ordered: ordered,
		pending: make(map[uint64]*frame.Buffer),
	}
}

// Ordered reports whether the stage reorders deliveries.
func (s *Stage) Ordered() bool {
	return s.ordered
}

// SetOrdered switches reordering on or off. It discards buffered frames.
func (s *Stage) SetOrdered(ordered bool) {
	s.Reset(0)
	s.mu.Lock()
	s.ordered = ordered
	s.mu.Unlock()
}

// Reset releases buffered frames and expects first as the next sequence.
func (s *Stage) Reset(first uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for seq, buf := range s.pending {
		if buf != nil {
			buf.Release()
		}
		delete(s.pending, seq)
	}
	s.next = first
}

// Pending returns the number of frames waiting in the reorder buffer.
func (s *Stage) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, buf := range s.pending {
		if buf != nil {
			n++
		}
	}
	return n
}

// Execute encodes the frame, or buffers it until its predecessors arrive.
// The stage owns input.Frame from this call on.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	if input.Frame == nil {
		return pipeline.EncodeResult{}, pipeline.ErrMissingInput
	}

	s.mu.Lock()
	if !s.ordered {
		s.mu.Unlock()
		return pipeline.EncodeResult{Deliveries: []pipeline.Delivery{s.deliver(input.Seq, input.Frame)}}, nil
	}
	defer s.mu.Unlock()

	if input.Seq < s.next {
		// Late arrival after a Skip or Reset; it can no longer be ordered.
		input.Frame.Release()
		return pipeline.EncodeResult{}, fmt.Errorf("sequence %d already passed (next %d)", input.Seq, s.next)
	}
	s.pending[input.Seq] = input.Frame
	return pipeline.EncodeResult{Deliveries: s.flush()}, nil
}

// Skip records that seq will never be submitted and returns any frames
// that became deliverable.
func (s *Stage) Skip(seq uint64) []pipeline.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ordered || seq < s.next {
		return nil
	}
	if _, ok := s.pending[seq]; !ok {
		s.pending[seq] = nil
	}
	return s.flush()
}

// flush delivers consecutive buffered frames starting at next.
func (s *Stage) flush() []pipeline.Delivery {
	var out []pipeline.Delivery
	for {
		buf, ok := s.pending[s.next]
		if !ok {
			break
		}
		delete(s.pending, s.next)
		if buf != nil {
			out = append(out, s.deliver(s.next, buf))
		}
		s.next++
	}
	if n := len(s.pending); n > 0 && s.logger.Enabled(ports.LevelDebug) {
		s.logger.Debug("Holding %d frames waiting for sequence %d", n, s.next)
	}
	return out
}

// deliver encodes one frame and releases it. In ordered mode callers hold s.mu.
func (s *Stage) deliver(seq uint64, buf *frame.Buffer) pipeline.Delivery {
	defer buf.Release()

	if s.sink != nil && s.sink.Enabled() {
		if err := s.sink.SaveComposedFrame(seq, buf.Pixels()); err != nil {
			s.logger.Warn("Failed to save frame %d: %v", seq, err)
		}
	}

	d := pipeline.Delivery{Seq: seq, PTS: buf.PTS()}
	chunk, err := s.encoder.Encode(buf, buf.PTS())
	if err != nil {
		d.Err = fmt.Errorf("encode frame %d: %w: %w", seq, pipeline.ErrEncodeFailed, err)
		return d
	}
	d.Chunk = chunk
	return d
}
