package dualcam

import (
	"image/color"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/quality"
)

func TestGetQualitySettings(t *testing.T) {
	tests := []struct {
		preset    QualityPreset
		wantLevel float64
		wantJPEG  int
	}{
		{QualityLow, 0.5, 60},
		{QualityMedium, 0.75, 75},
		{QualityHigh, 1.0, 90},
		{"unknown", 1.0, 90},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			s := GetQualitySettings(tt.preset)
			if s.Level != tt.wantLevel {
				t.Errorf("Level = %v, want %v", s.Level, tt.wantLevel)
			}
			if s.JPEGQuality != tt.wantJPEG {
				t.Errorf("JPEGQuality = %d, want %d", s.JPEGQuality, tt.wantJPEG)
			}
		})
	}
}

func TestNewConfigBuilder_Defaults(t *testing.T) {
	cfg := NewConfigBuilder().Build()

	if cfg.Layout != pipeline.LayoutPictureInPicture {
		t.Errorf("expected picture-in-picture layout, got %s", cfg.Layout)
	}
	if cfg.SyncTolerance != time.Millisecond {
		t.Errorf("expected 1ms tolerance, got %s", cfg.SyncTolerance)
	}
	if !cfg.EnableFrameSync {
		t.Error("frame sync should be enabled by default")
	}
	if cfg.MaxConcurrentFrames != 3 {
		t.Errorf("expected 3 concurrent frames, got %d", cfg.MaxConcurrentFrames)
	}
	if cfg.OrderedOutput {
		t.Error("ordered output should be off by default")
	}
	if cfg.Preset != QualityHigh {
		t.Errorf("expected high preset, got %s", cfg.Preset)
	}

	if err := cfg.ToOrchestratorConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestNewSideBySideConfigBuilder(t *testing.T) {
	cfg := NewSideBySideConfigBuilder().Build()

	if cfg.Layout != pipeline.LayoutSideBySide {
		t.Errorf("expected side-by-side layout, got %s", cfg.Layout)
	}
	if cfg.Primary != pipeline.SourceFront {
		t.Errorf("expected front on the left, got %s", cfg.Primary)
	}
	if cfg.Gap != 8 {
		t.Errorf("expected gap 8, got %d", cfg.Gap)
	}
}

func TestConfigBuilder_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ConfigBuilder)
		check func(t *testing.T, c Config)
	}{
		{
			name:  "concurrency below one",
			build: func(b *ConfigBuilder) { b.WithMaxConcurrentFrames(0) },
			check: func(t *testing.T, c Config) {
				if c.MaxConcurrentFrames != 1 {
					t.Errorf("got %d, want 1", c.MaxConcurrentFrames)
				}
			},
		},
		{
			name:  "negative tolerance",
			build: func(b *ConfigBuilder) { b.WithSyncTolerance(-time.Millisecond) },
			check: func(t *testing.T, c Config) {
				if c.SyncTolerance != 0 {
					t.Errorf("got %s, want 0", c.SyncTolerance)
				}
			},
		},
		{
			name:  "pip scale out of range",
			build: func(b *ConfigBuilder) { b.WithPiP(1.5, pipeline.CornerBottomLeft, 10) },
			check: func(t *testing.T, c Config) {
				if c.PiPScale != pipeline.DefaultLayoutSpec().PiPScale {
					t.Errorf("got %v, want default scale", c.PiPScale)
				}
				if c.PiPCorner != pipeline.CornerBottomLeft || c.PiPMargin != 10 {
					t.Errorf("corner and margin should be kept, got %s %d", c.PiPCorner, c.PiPMargin)
				}
			},
		},
		{
			name:  "overlay alpha above one",
			build: func(b *ConfigBuilder) { b.WithOverlayAlpha(2) },
			check: func(t *testing.T, c Config) {
				if c.OverlayAlpha != 1 {
					t.Errorf("got %v, want 1", c.OverlayAlpha)
				}
			},
		},
		{
			name:  "jpeg quality out of range",
			build: func(b *ConfigBuilder) { b.WithQualityPreset(QualityLow).WithJPEGQuality(200) },
			check: func(t *testing.T, c Config) {
				if c.JPEGQuality != 60 {
					t.Errorf("got %d, want preset value 60", c.JPEGQuality)
				}
			},
		},
		{
			name:  "unknown preset",
			build: func(b *ConfigBuilder) { b.WithQualityPreset("ultra") },
			check: func(t *testing.T, c Config) {
				if c.Preset != QualityHigh {
					t.Errorf("got %s, want high", c.Preset)
				}
			},
		},
		{
			name:  "negative skip",
			build: func(b *ConfigBuilder) { b.WithSkipEvery(-3) },
			check: func(t *testing.T, c Config) {
				if c.SkipEvery != 0 {
					t.Errorf("got %d, want 0", c.SkipEvery)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewConfigBuilder()
			tt.build(b)
			tt.check(t, b.Build())
		})
	}
}

func TestConfigBuilder_Chain(t *testing.T) {
	bg := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	cfg := NewConfigBuilder().
		WithLayout(pipeline.LayoutOverlay).
		WithPrimary(pipeline.SourceFront).
		WithOverlayAlpha(0.25).
		WithBackgroundColor(bg).
		WithFrameSync(false).
		WithOrderedOutput(true).
		WithQualityPreset(QualityMedium).
		WithFrameBudget(20 * time.Millisecond).
		WithSkipEvery(4).
		Build()

	oc := cfg.ToOrchestratorConfig()

	if oc.Layout.Kind != pipeline.LayoutOverlay || oc.Layout.Primary != pipeline.SourceFront {
		t.Errorf("unexpected layout %+v", oc.Layout)
	}
	if oc.Layout.OverlayAlpha != 0.25 {
		t.Errorf("expected alpha 0.25, got %v", oc.Layout.OverlayAlpha)
	}
	if oc.Theme.BackgroundColor != color.Color(bg) {
		t.Errorf("unexpected background %v", oc.Theme.BackgroundColor)
	}
	if oc.EnableFrameSync || !oc.OrderedOutput {
		t.Errorf("sync/ordered flags not carried: %+v", oc)
	}
	if oc.Preset != quality.PresetMedium {
		t.Errorf("expected medium preset, got %s", oc.Preset)
	}

	want := quality.DefaultOptions()
	want.Budget = 20 * time.Millisecond
	want.Comfort = 10 * time.Millisecond
	want.SkipEvery = 4
	if diff := cmp.Diff(want, oc.Quality); diff != "" {
		t.Errorf("quality options mismatch (-want +got):\n%s", diff)
	}
	if cfg.JPEGQuality != 75 {
		t.Errorf("expected medium JPEG quality 75, got %d", cfg.JPEGQuality)
	}
	if err := oc.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
