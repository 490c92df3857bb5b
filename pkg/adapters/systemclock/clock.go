// Package systemclock implements ports.Clock on the time package.
package systemclock

import (
	"time"

	"github.com/user/dualcam/pkg/ports"
)

// Clock reads wall time.
type Clock struct{}

// New creates a system clock.
func New() *Clock {
	return &Clock{}
}

func (Clock) Now() time.Time                  { return time.Now() }
func (Clock) Since(t time.Time) time.Duration { return time.Since(t) }

// NewTicker wraps time.NewTicker.
func (Clock) NewTicker(d time.Duration) ports.Ticker {
	return ticker{time.NewTicker(d)}
}

type ticker struct{ t *time.Ticker }

func (t ticker) C() <-chan time.Time { return t.t.C }
func (t ticker) Stop()               { t.t.Stop() }

var _ ports.Clock = Clock{}
