// Package quality implements the adaptive quality feedback loop.
//
// A Controller observes per-frame processing times in a fixed-length
// rolling window and walks a continuous quality level between a floor and
// a ceiling. The Controller is not safe for concurrent use; it is owned by
// the orchestrator goroutine.
package quality

import (
	"math"
	"time"

	"tailscale.com/util/ringbuffer"
)

const (
	// MinLevel is the lowest quality level.
	MinLevel = 0.3
	// MaxLevel is the highest quality level.
	MaxLevel = 1.0
)

// Preset seeds the initial quality level.
type Preset string

const (
	PresetLow    Preset = "low"
	PresetMedium Preset = "medium"
	PresetHigh   Preset = "high"
)

// Level returns the seed level for the preset. Unknown presets map to high.
func (p Preset) Level() float64 {
	switch p {
	case PresetLow:
		return 0.5
	case PresetMedium:
		return 0.75
	default:
		return MaxLevel
	}
}

// Options configures a Controller.
type Options struct {
	Window       int           // Number of samples in the rolling window
	Budget       time.Duration // Average above this lowers the level
	Comfort      time.Duration // Average below this raises the level
	DecreaseStep float64
	IncreaseStep float64
	Initial      float64

	// SkipEvery drops every Nth frame while the level is pinned at the floor
	// and the average is still over budget. Zero disables skipping.
	SkipEvery int
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Window:       60,
		Budget:       33 * time.Millisecond,
		Comfort:      16 * time.Millisecond,
		DecreaseStep: 0.1,
		IncreaseStep: 0.05,
		Initial:      MaxLevel,
		SkipEvery:    0,
	}
}

// Controller adjusts the quality level from observed processing times.
type Controller struct {
	opts    Options
	samples *ringbuffer.RingBuffer[time.Duration]
	sum     time.Duration
	level   float64

	pressure map[Cause]PressureLevel
	ceiling  float64

	overBudget int
	skipped    uint64
}

// NewController creates a controller. Invalid options fall back to defaults.
func NewController(opts Options) *Controller {
	def := DefaultOptions()
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.Budget <= 0 {
		opts.Budget = def.Budget
	}
	if opts.Comfort <= 0 || opts.Comfort > opts.Budget {
		opts.Comfort = min(def.Comfort, opts.Budget)
	}
	if opts.DecreaseStep <= 0 {
		opts.DecreaseStep = def.DecreaseStep
	}
	if opts.IncreaseStep <= 0 {
		opts.IncreaseStep = def.IncreaseStep
	}
	if opts.Initial == 0 {
		opts.Initial = def.Initial
	}
	if opts.SkipEvery < 0 {
		opts.SkipEvery = 0
	}

	c := &Controller{
		opts:     opts,
		samples:  ringbuffer.New[time.Duration](opts.Window),
		pressure: make(map[Cause]PressureLevel),
		ceiling:  MaxLevel,
	}
	c.level = c.clamp(opts.Initial)
	return c
}

// Options returns the effective options.
func (c *Controller) Options() Options {
	return c.opts
}

// Observe records one processing time and adjusts the level.
func (c *Controller) Observe(d time.Duration) {
	c.samples.Add(d)
	c.sum = 0
	for _, s := range c.samples.GetAll() {
		c.sum += s
	}

	avg := c.Average()
	switch {
	case avg > c.opts.Budget && c.level > MinLevel:
		c.level = c.clamp(c.level - c.opts.DecreaseStep)
	case avg < c.opts.Comfort && c.level < c.ceiling:
		c.level = c.clamp(c.level + c.opts.IncreaseStep)
	}
}

// Level returns the current quality level.
func (c *Controller) Level() float64 {
	return c.level
}

// Average returns the mean of the rolling window, or zero when empty.
func (c *Controller) Average() time.Duration {
	n := c.samples.Len()
	if n == 0 {
		return 0
	}
	return c.sum / time.Duration(n)
}

// Samples returns the window contents, oldest first.
func (c *Controller) Samples() []time.Duration {
	return c.samples.GetAll()
}

// Ceiling returns the current effective ceiling.
func (c *Controller) Ceiling() float64 {
	return c.ceiling
}

// Skipped returns the number of frames ShouldSkip has dropped since Reset.
func (c *Controller) Skipped() uint64 {
	return c.skipped
}

// ShouldSkip reports whether the next frame should be dropped to relieve
// load. It only fires while the level is at the floor and the window is
// still over budget.
func (c *Controller) ShouldSkip() bool {
	if c.opts.SkipEvery <= 0 || c.level > MinLevel || c.Average() <= c.opts.Budget {
		c.overBudget = 0
		return false
	}
	c.overBudget++
	if c.overBudget%c.opts.SkipEvery != 0 {
		return false
	}
	c.skipped++
	return true
}

// Reset clears the window and seeds the level. Pressure signals are kept.
func (c *Controller) Reset(seed float64) {
	c.samples.Clear()
	c.sum = 0
	c.overBudget = 0
	c.skipped = 0
	c.level = c.clamp(seed)
}

// clamp bounds v to [MinLevel, ceiling] and rounds to 1e-3 so repeated
// steps land on exact values.
func (c *Controller) clamp(v float64) float64 {
	v = math.Max(MinLevel, math.Min(v, c.ceiling))
	return math.Round(v*1000) / 1000
}
