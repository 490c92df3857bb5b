// Package events distributes pipeline telemetry to subscribers.
//
// Publish never blocks: a subscriber whose buffer is full misses the event
// and its drop counter is incremented. Subscribers choose which event types
// they receive.
package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/pipeline"
)

// Type classifies an event.
type Type string

const (
	TypeStateChanged         Type = "state_changed"
	TypeFrameCompleted       Type = "frame_completed"
	TypeFrameDropped         Type = "frame_dropped"
	TypeError                Type = "error"
	TypeConfigurationChanged Type = "configuration_changed"
)

// Event is one telemetry record. Only the fields relevant to Type are set.
type Event struct {
	Type      Type
	Time      time.Time
	SessionID string

	// state_changed
	Previous pipeline.State
	Current  pipeline.State

	// frame_completed, frame_dropped, error
	Seq            uint64
	PTS            frame.Timestamp
	SyncDelta      time.Duration
	ProcessingTime time.Duration
	Quality        float64
	Reason         pipeline.DropReason
	Err            error

	// configuration_changed; holds the new orchestrator.Config
	Config any
}

var (
	// ErrBusClosed is returned by Subscribe after Close.
	ErrBusClosed = errors.New("events: bus closed")
)

// DefaultBuffer is the subscription buffer used when none is given.
const DefaultBuffer = 64

// Bus fans events out to subscriptions.
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscription
	nextID    uint64
	published atomic.Uint64
	closed    bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscription receives events of the selected types.
type Subscription struct {
	id      uint64
	bus     *Bus
	ch      chan Event
	types   map[Type]bool // nil means every type
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Stats reports delivery counters for one subscription.
type Stats struct {
	Sent    uint64
	Dropped uint64
}

// Subscribe registers a subscription with the given buffer size. With no
// types the subscription receives every event.
func (b *Bus) Subscribe(buffer int, types ...Type) (*Subscription, error) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	s := &Subscription{
		id:  b.nextID,
		bus: b,
		ch:  make(chan Event, buffer),
	}
	if len(types) > 0 {
		s.types = make(map[Type]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	b.subs[s.id] = s
	b.nextID++
	return s, nil
}

// Publish delivers e to every matching subscription without blocking.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for _, s := range b.subs {
		if s.types != nil && !s.types[e.Type] {
			continue
		}
		select {
		case s.ch <- e:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
}

// Published returns the number of events accepted by Publish.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Close closes every subscription channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.ch)
		delete(b.subs, id)
	}
}

// C returns the event channel. It is closed when the subscription or the bus closes.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Stats returns delivery counters.
func (s *Subscription) Stats() Stats {
	return Stats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}
