package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/user/dualcam/pkg/dualcam"
	"github.com/user/dualcam/pkg/pipeline"
)

func TestDefaults_MatchBuilder(t *testing.T) {
	b := dualcam.NewConfigBuilder()
	if err := Defaults().Apply(b); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	got := b.Build()
	want := dualcam.NewConfigBuilder().Build()
	want.BackgroundColor = color.NRGBA{A: 255}
	want.BorderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	got.BackgroundColor = color.NRGBA{A: 255}
	got.BorderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults differ from builder defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dualcam.yaml")
	data := `
layout:
  kind: side-by-side
  primary: front
  gap: 12
theme:
  background_color: "#102030"
sync:
  tolerance_us: 2500
  enabled: true
max_concurrent_frames: 2
ordered_output: true
quality:
  preset: low
source:
  fps: 60
  single: true
metrics:
  addr: ":9100"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Layout.Kind != "side-by-side" || cfg.Layout.Gap != 12 {
		t.Errorf("unexpected layout %+v", cfg.Layout)
	}
	// Keys missing from the file keep their defaults.
	if cfg.Layout.PiPScale != 0.3 {
		t.Errorf("expected default pip scale, got %v", cfg.Layout.PiPScale)
	}
	if cfg.Source.Frames != 300 || cfg.Source.FPS != 60 {
		t.Errorf("unexpected source %+v", cfg.Source)
	}
	if cfg.Metrics.Addr != ":9100" || cfg.Metrics.IntervalMs != 1000 {
		t.Errorf("unexpected metrics %+v", cfg.Metrics)
	}

	b := dualcam.NewConfigBuilder()
	if err := cfg.Apply(b); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	dc := b.Build()

	if dc.Layout != pipeline.LayoutSideBySide || dc.Primary != pipeline.SourceFront {
		t.Errorf("unexpected layout %s/%s", dc.Layout, dc.Primary)
	}
	if dc.SyncTolerance != 2500*time.Microsecond {
		t.Errorf("expected 2.5ms tolerance, got %s", dc.SyncTolerance)
	}
	if dc.MaxConcurrentFrames != 2 || !dc.OrderedOutput {
		t.Errorf("unexpected concurrency settings %+v", dc)
	}
	if dc.Preset != dualcam.QualityLow || dc.JPEGQuality != 60 {
		t.Errorf("expected low preset, got %s/%d", dc.Preset, dc.JPEGQuality)
	}
	if dc.BackgroundColor != color.Color(color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}) {
		t.Errorf("unexpected background %v", dc.BackgroundColor)
	}

	src := cfg.SourceOptions()
	if !src.Single || src.Back.DriftPPM != 40 || src.Back.Offset != 200*time.Microsecond {
		t.Errorf("unexpected source options %+v", src)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("layout: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApply_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"layout", func(c *Config) { c.Layout.Kind = "mosaic" }},
		{"primary", func(c *Config) { c.Layout.Primary = "left" }},
		{"corner", func(c *Config) { c.Layout.PiPCorner = "middle" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := cfg.Apply(dualcam.NewConfigBuilder()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApply_JPEGOverride(t *testing.T) {
	cfg := Defaults()
	cfg.Quality.Preset = "medium"
	cfg.Quality.JPEGQuality = 42

	b := dualcam.NewConfigBuilder()
	if err := cfg.Apply(b); err != nil {
		t.Fatal(err)
	}
	if got := b.Build().JPEGQuality; got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestMetricsOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Metrics.IntervalMs = 250
	cfg.Metrics.MemoryBudgetMB = 64

	opts := cfg.MetricsOptions()
	if opts.Interval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", opts.Interval)
	}
	if opts.MemoryBudget != 64<<20 {
		t.Errorf("expected 64 MiB, got %d", opts.MemoryBudget)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#ff8000", color.NRGBA{R: 255, G: 128, B: 0, A: 255}},
		{"FF8000", color.NRGBA{R: 255, G: 128, B: 0, A: 255}},
		{"#11223380", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x80}},
		{"", color.Black},
		{"#fff", color.Black},
		{"#gg0000", color.Black},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseColor(tt.in); got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
