// Package dualcam provides a high-level API for configuring dual-camera composition.
package dualcam

import (
	"image/color"
	"time"

	"github.com/user/dualcam/pkg/orchestrator"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/quality"
)

// QualityPreset represents a quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// QualitySettings contains the parameters a preset controls.
type QualitySettings struct {
	Level       float64 // Initial composition quality level
	JPEGQuality int     // Chunk encoder quality (1-100)
}

// GetQualitySettings returns quality settings for the given preset.
func GetQualitySettings(preset QualityPreset) QualitySettings {
	switch preset {
	case QualityLow:
		return QualitySettings{
			Level:       quality.PresetLow.Level(),
			JPEGQuality: 60,
		}
	case QualityMedium:
		return QualitySettings{
			Level:       quality.PresetMedium.Level(),
			JPEGQuality: 75,
		}
	default: // high
		return QualitySettings{
			Level:       quality.PresetHigh.Level(),
			JPEGQuality: 90,
		}
	}
}

// Config represents the configuration for a dual-camera session.
type Config struct {
	// Layout
	Layout       pipeline.LayoutKind
	Primary      pipeline.Source // Stream drawn full frame
	PiPScale     float64         // Inset width relative to output width (0-1]
	PiPCorner    pipeline.Corner
	PiPMargin    int
	Gap          int     // Gap between side-by-side halves
	OverlayAlpha float64 // Secondary opacity for the overlay layout

	// Style
	BackgroundColor color.Color
	BorderColor     color.Color
	BorderWidth     int
	CornerRadius    int

	// Synchronization
	SyncTolerance   time.Duration
	EnableFrameSync bool

	// Concurrency
	MaxConcurrentFrames int
	OrderedOutput       bool

	// Quality
	Preset      QualityPreset
	FrameBudget time.Duration // Compose time above which quality is lowered
	SkipEvery   int           // Drop every Nth frame at the quality floor; 0 disables
	JPEGQuality int
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with picture-in-picture defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: pipDefaults(),
	}
}

// NewSideBySideConfigBuilder creates a new ConfigBuilder with side-by-side defaults.
func NewSideBySideConfigBuilder() *ConfigBuilder {
	cfg := pipDefaults()
	cfg.Layout = pipeline.LayoutSideBySide
	cfg.Primary = pipeline.SourceFront
	cfg.Gap = 8
	cfg.BorderWidth = 0
	cfg.CornerRadius = 0
	return &ConfigBuilder{config: cfg}
}

// pipDefaults returns the picture-in-picture preset configuration.
func pipDefaults() Config {
	spec := pipeline.DefaultLayoutSpec()
	theme := pipeline.DefaultCompositeTheme()
	orch := orchestrator.DefaultConfig()

	return Config{
		// Layout
		Layout:       spec.Kind,
		Primary:      spec.Primary,
		PiPScale:     spec.PiPScale,
		PiPCorner:    spec.PiPCorner,
		PiPMargin:    spec.PiPMargin,
		Gap:          spec.Gap,
		OverlayAlpha: spec.OverlayAlpha,

		// Style
		BackgroundColor: theme.BackgroundColor,
		BorderColor:     theme.BorderColor,
		BorderWidth:     spec.BorderWidth,
		CornerRadius:    spec.CornerRadius,

		// Synchronization
		SyncTolerance:   orch.SyncTolerance,
		EnableFrameSync: orch.EnableFrameSync,

		// Concurrency
		MaxConcurrentFrames: orch.MaxConcurrentFrames,
		OrderedOutput:       orch.OrderedOutput,

		// Quality (high preset)
		Preset:      QualityHigh,
		FrameBudget: orch.Quality.Budget,
		SkipEvery:   orch.Quality.SkipEvery,
		JPEGQuality: GetQualitySettings(QualityHigh).JPEGQuality,
	}
}

// Build returns the final Config, applying validation and constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	if cfg.MaxConcurrentFrames < 1 {
		cfg.MaxConcurrentFrames = 1
	}
	if cfg.SyncTolerance < 0 {
		cfg.SyncTolerance = 0
	}
	if cfg.PiPScale <= 0 || cfg.PiPScale > 1 {
		cfg.PiPScale = pipeline.DefaultLayoutSpec().PiPScale
	}
	cfg.OverlayAlpha = max(0, min(1, cfg.OverlayAlpha))
	if cfg.SkipEvery < 0 {
		cfg.SkipEvery = 0
	}
	if cfg.FrameBudget <= 0 {
		cfg.FrameBudget = quality.DefaultOptions().Budget
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = GetQualitySettings(cfg.Preset).JPEGQuality
	}
	switch cfg.Preset {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		cfg.Preset = QualityHigh
	}

	return cfg
}

// WithLayout sets the layout kind.
func (b *ConfigBuilder) WithLayout(kind pipeline.LayoutKind) *ConfigBuilder {
	b.config.Layout = kind
	return b
}

// WithPrimary sets the stream drawn full frame.
func (b *ConfigBuilder) WithPrimary(src pipeline.Source) *ConfigBuilder {
	b.config.Primary = src
	return b
}

// WithPiP sets the picture-in-picture inset geometry.
// Scales outside (0, 1] fall back to the default.
func (b *ConfigBuilder) WithPiP(scale float64, corner pipeline.Corner, margin int) *ConfigBuilder {
	b.config.PiPScale = scale
	b.config.PiPCorner = corner
	b.config.PiPMargin = margin
	return b
}

// WithGap sets the gap between side-by-side halves.
func (b *ConfigBuilder) WithGap(gap int) *ConfigBuilder {
	b.config.Gap = gap
	return b
}

// WithOverlayAlpha sets the secondary opacity for the overlay layout.
// Values are clamped to [0, 1].
func (b *ConfigBuilder) WithOverlayAlpha(alpha float64) *ConfigBuilder {
	b.config.OverlayAlpha = alpha
	return b
}

// WithBackgroundColor sets the canvas background color.
func (b *ConfigBuilder) WithBackgroundColor(c color.Color) *ConfigBuilder {
	b.config.BackgroundColor = c
	return b
}

// WithBorderColor sets the inset border color.
func (b *ConfigBuilder) WithBorderColor(c color.Color) *ConfigBuilder {
	b.config.BorderColor = c
	return b
}

// WithBorderWidth sets the inset border width in pixels.
func (b *ConfigBuilder) WithBorderWidth(width int) *ConfigBuilder {
	b.config.BorderWidth = width
	return b
}

// WithCornerRadius sets the inset corner radius in pixels.
func (b *ConfigBuilder) WithCornerRadius(radius int) *ConfigBuilder {
	b.config.CornerRadius = radius
	return b
}

// WithSyncTolerance sets the maximum timestamp difference of a valid pair.
func (b *ConfigBuilder) WithSyncTolerance(d time.Duration) *ConfigBuilder {
	b.config.SyncTolerance = d
	return b
}

// WithFrameSync enables or disables the tolerance check.
func (b *ConfigBuilder) WithFrameSync(enabled bool) *ConfigBuilder {
	b.config.EnableFrameSync = enabled
	return b
}

// WithMaxConcurrentFrames sets the number of compositions allowed in flight.
// Values below 1 will be forced to 1.
func (b *ConfigBuilder) WithMaxConcurrentFrames(n int) *ConfigBuilder {
	b.config.MaxConcurrentFrames = n
	return b
}

// WithOrderedOutput makes the encoder receive frames in admission order.
func (b *ConfigBuilder) WithOrderedOutput(ordered bool) *ConfigBuilder {
	b.config.OrderedOutput = ordered
	return b
}

// WithQualityPreset applies a quality preset (low, medium, high).
func (b *ConfigBuilder) WithQualityPreset(preset QualityPreset) *ConfigBuilder {
	b.config.Preset = preset
	b.config.JPEGQuality = GetQualitySettings(preset).JPEGQuality
	return b
}

// WithFrameBudget sets the compose time the quality controller aims for.
func (b *ConfigBuilder) WithFrameBudget(d time.Duration) *ConfigBuilder {
	b.config.FrameBudget = d
	return b
}

// WithSkipEvery drops every nth frame while quality is at its floor and
// still over budget. Use 0 to disable.
func (b *ConfigBuilder) WithSkipEvery(n int) *ConfigBuilder {
	b.config.SkipEvery = n
	return b
}

// WithJPEGQuality sets the chunk encoder quality (1-100), overriding the preset.
func (b *ConfigBuilder) WithJPEGQuality(q int) *ConfigBuilder {
	b.config.JPEGQuality = q
	return b
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	opts := quality.DefaultOptions()
	opts.Budget = c.FrameBudget
	opts.Comfort = c.FrameBudget / 2
	opts.SkipEvery = c.SkipEvery

	return orchestrator.Config{
		Layout: pipeline.LayoutSpec{
			Kind:         c.Layout,
			Primary:      c.Primary,
			PiPScale:     c.PiPScale,
			PiPCorner:    c.PiPCorner,
			PiPMargin:    c.PiPMargin,
			Gap:          c.Gap,
			OverlayAlpha: c.OverlayAlpha,
			BorderWidth:  c.BorderWidth,
			CornerRadius: c.CornerRadius,
		},
		Theme: pipeline.CompositeTheme{
			BackgroundColor: c.BackgroundColor,
			BorderColor:     c.BorderColor,
		},

		SyncTolerance:   c.SyncTolerance,
		EnableFrameSync: c.EnableFrameSync,

		MaxConcurrentFrames: c.MaxConcurrentFrames,
		OrderedOutput:       c.OrderedOutput,

		Preset:  quality.Preset(c.Preset),
		Quality: opts,
	}
}
