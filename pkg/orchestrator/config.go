package orchestrator

import (
	"fmt"
	"time"

	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/quality"
	"github.com/user/dualcam/pkg/stages/synchronize"
)

// Config holds the composition configuration of a pipeline.
type Config struct {
	// Layout settings
	Layout pipeline.LayoutSpec
	Theme  pipeline.CompositeTheme

	// Synchronization
	SyncTolerance   time.Duration
	EnableFrameSync bool

	// Concurrency
	MaxConcurrentFrames int
	OrderedOutput       bool // Deliver to the encoder in admission order

	// Quality
	Preset  quality.Preset
	Quality quality.Options // Initial is taken from Preset
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Layout:              pipeline.DefaultLayoutSpec(),
		Theme:               pipeline.DefaultCompositeTheme(),
		SyncTolerance:       time.Millisecond,
		EnableFrameSync:     true,
		MaxConcurrentFrames: 3,
		OrderedOutput:       false,
		Preset:              quality.PresetHigh,
		Quality:             quality.DefaultOptions(),
	}
}

// Validate checks the configuration. Errors wrap pipeline.ErrInvalidConfiguration.
func (c Config) Validate() error {
	if _, err := pipeline.ParseLayoutKind(string(c.Layout.Kind)); err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrInvalidConfiguration, err)
	}
	if c.Layout.Primary != pipeline.SourceFront && c.Layout.Primary != pipeline.SourceBack {
		return fmt.Errorf("%w: unknown primary source %q", pipeline.ErrInvalidConfiguration, c.Layout.Primary)
	}
	if c.SyncTolerance < 0 {
		return fmt.Errorf("%w: negative sync tolerance %s", pipeline.ErrInvalidConfiguration, c.SyncTolerance)
	}
	if c.MaxConcurrentFrames < 1 {
		return fmt.Errorf("%w: max concurrent frames must be at least 1, got %d", pipeline.ErrInvalidConfiguration, c.MaxConcurrentFrames)
	}
	if s := c.Layout.PiPScale; s <= 0 || s > 1 {
		return fmt.Errorf("%w: picture-in-picture scale %v out of (0, 1]", pipeline.ErrInvalidConfiguration, s)
	}
	if a := c.Layout.OverlayAlpha; a < 0 || a > 1 {
		return fmt.Errorf("%w: overlay alpha %v out of [0, 1]", pipeline.ErrInvalidConfiguration, a)
	}
	switch c.Preset {
	case quality.PresetLow, quality.PresetMedium, quality.PresetHigh:
	default:
		return fmt.Errorf("%w: unknown quality preset %q", pipeline.ErrInvalidConfiguration, c.Preset)
	}
	return nil
}

func (c Config) policy() synchronize.Policy {
	return synchronize.Policy{
		Tolerance:        c.SyncTolerance,
		Enforce:          c.EnableFrameSync,
		RequireSecondary: c.Layout.Kind.RequiresSecondary(),
	}
}

func (c Config) qualityOptions() quality.Options {
	opts := c.Quality
	opts.Initial = c.Preset.Level()
	return opts
}
