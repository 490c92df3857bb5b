package quality

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// TestController_SustainedOverBudget feeds 60 slow frames and checks the
// level walks down to the floor without ever rising.
func TestController_SustainedOverBudget(t *testing.T) {
	c := NewController(DefaultOptions())

	var levels []float64
	prev := c.Level()
	for i := 0; i < 60; i++ {
		c.Observe(40 * time.Millisecond)
		level := c.Level()
		if level > prev {
			t.Fatalf("observation %d: level rose from %v to %v", i, prev, level)
		}
		prev = level
		levels = append(levels, level)
	}

	want := []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3}
	if diff := cmp.Diff(want, levels[:len(want)]); diff != "" {
		t.Errorf("descent mismatch (-want +got):\n%s", diff)
	}
	for i := len(want); i < len(levels); i++ {
		if levels[i] != MinLevel {
			t.Errorf("observation %d: expected floor %v, got %v", i, MinLevel, levels[i])
		}
	}
}

func TestController_RecoversUnderComfort(t *testing.T) {
	opts := DefaultOptions()
	opts.Window = 4
	opts.Initial = 0.5
	c := NewController(opts)

	for i := 0; i < 4; i++ {
		c.Observe(5 * time.Millisecond)
	}
	if c.Level() != 0.7 {
		t.Errorf("expected 0.7 after four fast frames, got %v", c.Level())
	}

	for i := 0; i < 20; i++ {
		c.Observe(5 * time.Millisecond)
	}
	if c.Level() != MaxLevel {
		t.Errorf("expected ceiling %v, got %v", MaxLevel, c.Level())
	}
}

func TestController_HoldsInsideBand(t *testing.T) {
	opts := DefaultOptions()
	opts.Initial = 0.75
	c := NewController(opts)

	for i := 0; i < 100; i++ {
		c.Observe(25 * time.Millisecond)
	}
	if c.Level() != 0.75 {
		t.Errorf("expected level unchanged between thresholds, got %v", c.Level())
	}
}

func TestController_AlwaysInRange(t *testing.T) {
	c := NewController(DefaultOptions())
	pattern := []time.Duration{0, 100 * time.Millisecond, time.Millisecond, 50 * time.Millisecond, 2 * time.Second}
	for i := 0; i < 1000; i++ {
		c.Observe(pattern[i%len(pattern)])
		if l := c.Level(); l < MinLevel || l > MaxLevel {
			t.Fatalf("observation %d: level %v out of range", i, l)
		}
	}
}

func TestController_WindowIsBounded(t *testing.T) {
	opts := DefaultOptions()
	opts.Window = 3
	c := NewController(opts)

	for _, ms := range []int{100, 100, 100, 1, 1, 1} {
		c.Observe(time.Duration(ms) * time.Millisecond)
	}

	if len(c.Samples()) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(c.Samples()))
	}
	if c.Average() != time.Millisecond {
		t.Errorf("expected average 1ms after slow samples aged out, got %v", c.Average())
	}
}

func TestController_Reset(t *testing.T) {
	c := NewController(DefaultOptions())
	for i := 0; i < 10; i++ {
		c.Observe(40 * time.Millisecond)
	}

	c.Reset(PresetMedium.Level())

	if c.Level() != 0.75 {
		t.Errorf("expected seed 0.75, got %v", c.Level())
	}
	if len(c.Samples()) != 0 || c.Average() != 0 {
		t.Errorf("expected empty window, got %d samples avg %v", len(c.Samples()), c.Average())
	}
}

func TestPreset_Level(t *testing.T) {
	tests := []struct {
		preset Preset
		want   float64
	}{
		{PresetLow, 0.5},
		{PresetMedium, 0.75},
		{PresetHigh, 1.0},
		{Preset("bogus"), 1.0},
	}
	for _, tt := range tests {
		if got := tt.preset.Level(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.preset, tt.want, got)
		}
	}
}

func TestController_ShouldSkip(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipEvery = 2
	c := NewController(opts)

	if c.ShouldSkip() {
		t.Error("empty window must not skip")
	}

	// Drive the level to the floor.
	for i := 0; i < 10; i++ {
		c.Observe(50 * time.Millisecond)
	}

	var got []bool
	for i := 0; i < 4; i++ {
		got = append(got, c.ShouldSkip())
	}
	if diff := cmp.Diff([]bool{false, true, false, true}, got); diff != "" {
		t.Errorf("skip pattern mismatch (-want +got):\n%s", diff)
	}
	if c.Skipped() != 2 {
		t.Errorf("expected 2 skipped, got %d", c.Skipped())
	}
}

func TestController_ShouldSkipDisabled(t *testing.T) {
	c := NewController(DefaultOptions())
	for i := 0; i < 10; i++ {
		c.Observe(50 * time.Millisecond)
	}
	for i := 0; i < 4; i++ {
		if c.ShouldSkip() {
			t.Fatal("skipping is disabled by default")
		}
	}
}

func TestController_ApplyPressure(t *testing.T) {
	c := NewController(DefaultOptions())

	c.ApplyPressure(Pressure{Cause: CauseThermal, Level: PressureSerious})
	if c.Level() != 0.7 || c.Ceiling() != 0.7 {
		t.Errorf("serious thermal: expected level and ceiling 0.7, got %v / %v", c.Level(), c.Ceiling())
	}

	c.ApplyPressure(Pressure{Cause: CauseMemory, Level: PressureCritical})
	if c.Ceiling() != 0.5 {
		t.Errorf("critical memory: expected ceiling 0.5, got %v", c.Ceiling())
	}

	// Fast frames cannot climb past the ceiling.
	for i := 0; i < 100; i++ {
		c.Observe(time.Millisecond)
	}
	if c.Level() != 0.5 {
		t.Errorf("expected level held at 0.5, got %v", c.Level())
	}

	c.ApplyPressure(Pressure{Cause: CauseMemory, Level: PressureNominal})
	if c.Ceiling() != 0.7 {
		t.Errorf("thermal still serious: expected ceiling 0.7, got %v", c.Ceiling())
	}

	c.ApplyPressure(Pressure{Cause: CauseThermal, Level: PressureFair})
	if c.Ceiling() != MaxLevel {
		t.Errorf("expected ceiling restored, got %v", c.Ceiling())
	}
	if len(c.Pressure()) != 1 {
		t.Errorf("expected one active signal, got %v", c.Pressure())
	}
}

func TestParsePressureLevel(t *testing.T) {
	l, err := ParsePressureLevel("critical")
	if err != nil || l != PressureCritical {
		t.Errorf("expected critical, got %v (%v)", l, err)
	}
	if _, err := ParsePressureLevel("hot"); err == nil {
		t.Error("expected error for unknown level")
	}
}
