// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/dualcam/pkg/adapters/synthsource"
	"github.com/user/dualcam/pkg/dualcam"
	"github.com/user/dualcam/pkg/metrics"
	"github.com/user/dualcam/pkg/pipeline"
)

// Config represents the full configuration for dualcam.
type Config struct {
	// Composition
	Layout              LayoutConfig  `yaml:"layout"`
	Theme               ThemeConfig   `yaml:"theme"`
	Sync                SyncConfig    `yaml:"sync"`
	MaxConcurrentFrames int           `yaml:"max_concurrent_frames"`
	OrderedOutput       bool          `yaml:"ordered_output"`
	Quality             QualityConfig `yaml:"quality"`

	// Capture
	Source SourceConfig `yaml:"source"`

	// Output
	OutputPath  string `yaml:"output"`
	SummaryPath string `yaml:"summary"`

	// Metrics
	Metrics MetricsConfig `yaml:"metrics"`

	// Debug
	Debug           bool   `yaml:"debug"`
	DebugDir        string `yaml:"debug_dir"`
	DebugFrameEvery int    `yaml:"debug_frame_every"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// LayoutConfig represents layout geometry settings.
type LayoutConfig struct {
	Kind         string  `yaml:"kind"`
	Primary      string  `yaml:"primary"`
	PiPScale     float64 `yaml:"pip_scale"`
	PiPCorner    string  `yaml:"pip_corner"`
	PiPMargin    int     `yaml:"pip_margin"`
	Gap          int     `yaml:"gap"`
	OverlayAlpha float64 `yaml:"overlay_alpha"`
	BorderWidth  int     `yaml:"border_width"`
	CornerRadius int     `yaml:"corner_radius"`
}

// ThemeConfig represents theming options.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	BorderColor     string `yaml:"border_color"`
}

// SyncConfig represents frame synchronization settings.
type SyncConfig struct {
	ToleranceUs int  `yaml:"tolerance_us"`
	Enabled     bool `yaml:"enabled"`
}

// QualityConfig represents quality control settings.
type QualityConfig struct {
	Preset        string `yaml:"preset"`
	FrameBudgetMs int    `yaml:"frame_budget_ms"`
	SkipEvery     int    `yaml:"skip_every"`
	JPEGQuality   int    `yaml:"jpeg_quality"` // 0 uses the preset value
}

// SourceConfig represents the synthetic capture source.
type SourceConfig struct {
	FPS    float64      `yaml:"fps"`
	Frames int          `yaml:"frames"`
	Single bool         `yaml:"single"`
	Buffer int          `yaml:"buffer"`
	Seed   uint64       `yaml:"seed"`
	Front  SensorConfig `yaml:"front"`
	Back   SensorConfig `yaml:"back"`
}

// SensorConfig represents one synthetic sensor.
type SensorConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	OffsetUs int     `yaml:"offset_us"`
	DriftPPM float64 `yaml:"drift_ppm"`
	JitterUs int     `yaml:"jitter_us"`
}

// MetricsConfig represents metrics sampling and export settings.
type MetricsConfig struct {
	Addr           string `yaml:"addr"` // Prometheus listen address; empty disables
	IntervalMs     int    `yaml:"interval_ms"`
	MemoryBudgetMB int    `yaml:"memory_budget_mb"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		// Composition
		Layout: LayoutConfig{
			Kind:         string(pipeline.LayoutPictureInPicture),
			Primary:      string(pipeline.SourceBack),
			PiPScale:     0.3,
			PiPCorner:    string(pipeline.CornerTopRight),
			PiPMargin:    24,
			OverlayAlpha: 0.5,
			BorderWidth:  3,
			CornerRadius: 12,
		},
		Theme: ThemeConfig{
			BackgroundColor: "#000000",
			BorderColor:     "#ffffff",
		},
		Sync: SyncConfig{
			ToleranceUs: 1000,
			Enabled:     true,
		},
		MaxConcurrentFrames: 3,
		Quality: QualityConfig{
			Preset:        string(dualcam.QualityHigh),
			FrameBudgetMs: 33,
		},

		// Capture
		Source: SourceConfig{
			FPS:    30,
			Frames: 300,
			Buffer: 8,
			Seed:   1,
			Front:  SensorConfig{Width: 640, Height: 480, JitterUs: 300},
			Back:   SensorConfig{Width: 1280, Height: 720, OffsetUs: 200, DriftPPM: 40, JitterUs: 500},
		},

		// Output
		OutputPath: "dualcam.mjpeg",

		// Metrics
		Metrics: MetricsConfig{
			IntervalMs:     1000,
			MemoryBudgetMB: 256,
		},

		// Debug
		DebugDir:        "./debug",
		DebugFrameEvery: 30,

		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file.
// Keys missing from the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Apply sets every composition setting of c on b.
func (c Config) Apply(b *dualcam.ConfigBuilder) error {
	kind, err := pipeline.ParseLayoutKind(c.Layout.Kind)
	if err != nil {
		return err
	}
	primary := pipeline.Source(c.Layout.Primary)
	if primary != pipeline.SourceFront && primary != pipeline.SourceBack {
		return fmt.Errorf("unknown primary source %q", c.Layout.Primary)
	}
	corner, err := parseCorner(c.Layout.PiPCorner)
	if err != nil {
		return err
	}

	b.WithLayout(kind).
		WithPrimary(primary).
		WithPiP(c.Layout.PiPScale, corner, c.Layout.PiPMargin).
		WithGap(c.Layout.Gap).
		WithOverlayAlpha(c.Layout.OverlayAlpha).
		WithBorderWidth(c.Layout.BorderWidth).
		WithCornerRadius(c.Layout.CornerRadius).
		WithBackgroundColor(ParseColor(c.Theme.BackgroundColor)).
		WithBorderColor(ParseColor(c.Theme.BorderColor)).
		WithSyncTolerance(time.Duration(c.Sync.ToleranceUs) * time.Microsecond).
		WithFrameSync(c.Sync.Enabled).
		WithMaxConcurrentFrames(c.MaxConcurrentFrames).
		WithOrderedOutput(c.OrderedOutput).
		WithQualityPreset(dualcam.QualityPreset(c.Quality.Preset)).
		WithFrameBudget(time.Duration(c.Quality.FrameBudgetMs) * time.Millisecond).
		WithSkipEvery(c.Quality.SkipEvery)
	if c.Quality.JPEGQuality > 0 {
		b.WithJPEGQuality(c.Quality.JPEGQuality)
	}
	return nil
}

// SourceOptions converts the capture settings to synthsource options.
func (c Config) SourceOptions() synthsource.Options {
	return synthsource.Options{
		FPS:    c.Source.FPS,
		Frames: c.Source.Frames,
		Front:  c.Source.Front.options(),
		Back:   c.Source.Back.options(),
		Single: c.Source.Single,
		Buffer: c.Source.Buffer,
		Seed:   c.Source.Seed,
	}
}

func (s SensorConfig) options() synthsource.SensorOptions {
	return synthsource.SensorOptions{
		Width:    s.Width,
		Height:   s.Height,
		Offset:   time.Duration(s.OffsetUs) * time.Microsecond,
		DriftPPM: s.DriftPPM,
		Jitter:   time.Duration(s.JitterUs) * time.Microsecond,
	}
}

// MetricsOptions converts the sampling settings to aggregator options.
func (c Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		Interval:     time.Duration(c.Metrics.IntervalMs) * time.Millisecond,
		RateWindow:   metrics.DefaultOptions().RateWindow,
		MemoryBudget: int64(c.Metrics.MemoryBudgetMB) << 20,
	}
}

func parseCorner(s string) (pipeline.Corner, error) {
	switch c := pipeline.Corner(s); c {
	case pipeline.CornerTopLeft, pipeline.CornerTopRight, pipeline.CornerBottomLeft, pipeline.CornerBottomRight:
		return c, nil
	case "":
		return pipeline.CornerTopRight, nil
	default:
		return "", fmt.Errorf("unknown corner %q", s)
	}
}

// ParseColor parses a #rrggbb or #rrggbbaa hex color string to color.Color.
// Malformed input yields black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.Black
	}

	v := make([]uint8, 0, 4)
	for i := 0; i < len(hex); i += 2 {
		hi, ok1 := hexValue(hex[i])
		lo, ok2 := hexValue(hex[i+1])
		if !ok1 || !ok2 {
			return color.Black
		}
		v = append(v, hi<<4|lo)
	}
	if len(v) == 3 {
		v = append(v, 255)
	}

	return color.NRGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
