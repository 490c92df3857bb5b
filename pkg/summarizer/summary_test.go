package summarizer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/dualcam/pkg/metrics"
	"github.com/user/dualcam/pkg/mocks"
	"github.com/user/dualcam/pkg/orchestrator"
	"github.com/user/dualcam/pkg/pipeline"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithConfig(t *testing.T) {
	cfg := orchestrator.DefaultConfig()
	cfg.OrderedOutput = true

	s := NewBuilder().WithConfig(cfg).Build()

	if s.Settings.Layout != "picture_in_picture" {
		t.Errorf("expected picture_in_picture, got %q", s.Settings.Layout)
	}
	if s.Settings.Preset != "high" {
		t.Errorf("expected high preset, got %q", s.Settings.Preset)
	}
	if !s.Settings.FrameSync || !s.Settings.OrderedOutput {
		t.Errorf("flags not carried: %+v", s.Settings)
	}
	if s.Settings.MaxConcurrentFrames != 3 {
		t.Errorf("expected 3, got %d", s.Settings.MaxConcurrentFrames)
	}
}

func TestBuilder_WithCounters(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := orchestrator.Counters{
		SessionID: "abc",
		State:     pipeline.StateIdle,
		StartedAt: start,
		Submitted: 20,
		Processed: 15,
		Dropped:   orchestrator.DropCounters{Desync: 3, Quality: 1, Shutdown: 1},
		HighWater: 2,
	}

	s := NewBuilder().
		WithGeneratedAt(start.Add(90 * time.Second)).
		WithCounters(c).
		Build()

	if s.Session.ID != "abc" || s.Session.State != "idle" {
		t.Errorf("unexpected session %+v", s.Session)
	}
	if s.Session.Duration != 90*time.Second {
		t.Errorf("expected 90s, got %s", s.Session.Duration)
	}
	if s.Frames.Dropped() != 5 || s.Frames.DroppedDesync != 3 {
		t.Errorf("unexpected frames %+v", s.Frames)
	}
	if s.Frames.HighWater != 2 {
		t.Errorf("expected high water 2, got %d", s.Frames.HighWater)
	}
}

func TestBuilder_WithCounters_NotStarted(t *testing.T) {
	s := NewBuilder().WithCounters(orchestrator.Counters{}).Build()
	if s.Session.Duration != 0 {
		t.Errorf("expected no duration without a start time, got %s", s.Session.Duration)
	}
}

func TestBuilder_WithSnapshot(t *testing.T) {
	s := NewBuilder().
		WithSnapshot(metrics.Snapshot{
			FrameRate:      30,
			P95Latency:     8 * time.Millisecond,
			Quality:        0.7,
			GPUUtilization: 0.25,
			Device:         "softgpu",
		}).
		Build()

	if s.Performance.FrameRate != 30 || s.Performance.P95Latency != 8*time.Millisecond {
		t.Errorf("unexpected performance %+v", s.Performance)
	}
	if s.Session.Device != "softgpu" {
		t.Errorf("expected device from snapshot, got %q", s.Session.Device)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(s *Summary) string { return "# " + s.Session.ID }), fs)

	summary := NewBuilder().WithCounters(orchestrator.Counters{SessionID: "xyz"}).Build()
	if err := w.Write("reports/summary.md", summary); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, ok := fs.GetFile("reports/summary.md")
	if !ok {
		t.Fatal("summary file not written")
	}
	if string(data) != "# xyz" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error { return errors.New("disk full") }

	err := NewWriter(NewMarkdownFormatter(), fs).Write("summary.md", NewSummary())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}
