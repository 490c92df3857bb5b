package summarizer

import (
	"strings"
	"testing"
	"time"
)

func sampleSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2026, 1, 15, 10, 30, 5, 0, time.UTC),
		Session: SessionInfo{
			ID:        "6f1c0d2e",
			StartedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
			Duration:  5 * time.Second,
			State:     "idle",
			Device:    "softgpu",
		},
		Settings: Settings{
			Layout:              "picture_in_picture",
			Primary:             "back",
			Preset:              "high",
			SyncTolerance:       time.Millisecond,
			FrameSync:           true,
			MaxConcurrentFrames: 3,
		},
		Frames: FrameInfo{
			Submitted:      150,
			Processed:      140,
			DroppedDesync:  8,
			DroppedQuality: 1,
			DroppedStop:    1,
			HighWater:      3,
		},
		Performance: PerformanceInfo{
			FrameRate:      29.97,
			AverageLatency: 12500 * time.Microsecond,
			P95Latency:     20 * time.Millisecond,
			DropRate:       10.0 / 150,
			Quality:        0.9,
			QualityCeiling: 1,
			GPUUtilization: 0.42,
		},
		Output: OutputInfo{
			Path:     "out.mjpeg",
			Codec:    "JPEG",
			Chunks:   140,
			FileSize: 3 * 1024 * 1024,
			Width:    1280,
			Height:   720,
		},
	}
}

func TestMarkdownFormatter_Format_Basic(t *testing.T) {
	result := NewMarkdownFormatter().Format(sampleSummary())

	checks := []string{
		"# Session Summary",
		"6f1c0d2e",
		"softgpu",
		"picture_in_picture",
		"Enabled (1ms)",
		"| Processed | 140 |",
		"10 (desync 8, quality 1, shutdown 1)",
		"30.0 fps",
		"12.50 ms",
		"20.00 ms",
		"6.7%",
		"0.90 / 1.00",
		"42.0%",
		"3.00 MB",
		"1280x720",
		"Completion order",
		"2026-01-15T10:30:05Z",
	}

	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
}

func TestMarkdownFormatter_Format_Empty(t *testing.T) {
	result := NewMarkdownFormatter().Format(&Summary{GeneratedAt: time.Now()})

	if !strings.Contains(result, "N/A") {
		t.Error("expected N/A for missing session fields")
	}
	if !strings.Contains(result, "Disabled") {
		t.Error("expected frame sync to read Disabled")
	}
	if strings.Contains(result, "## Output") {
		t.Error("output section should be omitted without a path")
	}
}

func TestMarkdownFormatter_OutputOrder(t *testing.T) {
	s := sampleSummary()
	s.Settings.OrderedOutput = true

	if result := NewMarkdownFormatter().Format(s); !strings.Contains(result, "Admission order") {
		t.Error("expected admission order for ordered output")
	}
}

func TestMarkdownFormatter_WithTranslator(t *testing.T) {
	translator := func(key string) string {
		translations := map[string]string{
			"Session Summary": "セッションサマリー",
			"Frames":          "フレーム",
			"Disabled":        "無効",
		}
		if v, ok := translations[key]; ok {
			return v
		}
		return key
	}

	formatter := NewMarkdownFormatter(WithTranslator(translator))
	result := formatter.Format(&Summary{GeneratedAt: time.Now()})

	for _, want := range []string{"セッションサマリー", "フレーム", "無効"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected translated %q", want)
		}
	}
}

func TestMarkdownFormatter_WithVersion(t *testing.T) {
	result := NewMarkdownFormatter(WithVersion("v1.2.0")).Format(sampleSummary())

	if !strings.Contains(result, "v1.2.0") {
		t.Error("expected output to contain version 'v1.2.0'")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1536 * 1024 * 1024, "1.50 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := formatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
