// Package gate provides bounded admission control for in-flight compositions.
//
// Callers waiting for a slot park on the semaphore's FIFO wait queue and
// honour context cancellation; no OS thread is held while waiting.
package gate

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the default number of simultaneous compositions.
const DefaultCapacity = 3

// ErrGateClosed is returned by Admit after Close.
var ErrGateClosed = errors.New("gate: closed")

// Gate limits the number of simultaneously admitted tickets.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int64

	closedCtx context.Context
	close     context.CancelFunc

	inFlight  atomic.Int64
	highWater atomic.Int64
	waiting   atomic.Int64
	admitted  atomic.Uint64
}

// New creates a gate with the given capacity. Non-positive values use DefaultCapacity.
func New(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{
		sem:       semaphore.NewWeighted(int64(capacity)),
		capacity:  int64(capacity),
		closedCtx: ctx,
		close:     cancel,
	}
}

// Ticket is one admitted slot. Release must be called on every exit path.
type Ticket struct {
	gate     *Gate
	released atomic.Bool
}

// Release returns the slot to the gate. Subsequent calls are no-ops.
func (t *Ticket) Release() {
	if t == nil || !t.released.CompareAndSwap(false, true) {
		return
	}
	t.gate.inFlight.Add(-1)
	t.gate.sem.Release(1)
}

// Admit waits for a free slot. It returns ctx.Err() if ctx is done first and
// ErrGateClosed if the gate is closed before or while waiting.
func (g *Gate) Admit(ctx context.Context) (*Ticket, error) {
	if g.Closed() {
		return nil, ErrGateClosed
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(g.closedCtx, cancel)
	defer stop()

	g.waiting.Add(1)
	err := g.sem.Acquire(waitCtx, 1)
	g.waiting.Add(-1)
	if err != nil {
		if g.Closed() {
			return nil, ErrGateClosed
		}
		return nil, ctx.Err()
	}
	if g.Closed() {
		g.sem.Release(1)
		return nil, ErrGateClosed
	}

	n := g.inFlight.Add(1)
	for {
		hw := g.highWater.Load()
		if n <= hw || g.highWater.CompareAndSwap(hw, n) {
			break
		}
	}
	g.admitted.Add(1)
	return &Ticket{gate: g}, nil
}

// Do admits, runs fn and releases the slot when fn returns.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := g.Admit(ctx)
	if err != nil {
		return err
	}
	defer t.Release()
	return fn(ctx)
}

// Close rejects current waiters and future admissions. Tickets already
// admitted remain valid and release normally.
func (g *Gate) Close() {
	g.close()
}

// Closed reports whether Close has been called.
func (g *Gate) Closed() bool {
	return g.closedCtx.Err() != nil
}

// Capacity returns the maximum number of simultaneous tickets.
func (g *Gate) Capacity() int {
	return int(g.capacity)
}

// InFlight returns the number of tickets currently held.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// HighWater returns the largest InFlight value observed.
func (g *Gate) HighWater() int {
	return int(g.highWater.Load())
}

// Waiting returns the number of callers parked in Admit.
func (g *Gate) Waiting() int {
	return int(g.waiting.Load())
}

// Admitted returns the total number of tickets granted.
func (g *Gate) Admitted() uint64 {
	return g.admitted.Load()
}
