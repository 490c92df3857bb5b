// Package summarizer provides summary generation for composition sessions.
package summarizer

import (
	"time"

	"github.com/user/dualcam/pkg/metrics"
	"github.com/user/dualcam/pkg/orchestrator"
)

// Summary contains all data collected during a composition session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	// Session identity and lifetime
	Session SessionInfo

	// Composition settings
	Settings Settings

	// Frame accounting
	Frames FrameInfo

	// Performance at the end of the session
	Performance PerformanceInfo

	// Encoded output details
	Output OutputInfo
}

// SessionInfo identifies the session.
type SessionInfo struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	State     string
	Device    string
}

// Settings contains the composition configuration.
type Settings struct {
	Layout              string
	Primary             string
	Preset              string
	SyncTolerance       time.Duration
	FrameSync           bool
	MaxConcurrentFrames int
	OrderedOutput       bool
}

// FrameInfo contains frame counters.
type FrameInfo struct {
	Submitted      uint64
	Processed      uint64
	DroppedDesync  uint64
	DroppedQuality uint64
	DroppedStop    uint64
	Failed         uint64
	EncodeFailures uint64
	HighWater      int // Most compositions in flight at once
}

// Dropped returns the number of dropped frames.
func (f FrameInfo) Dropped() uint64 {
	return f.DroppedDesync + f.DroppedQuality + f.DroppedStop
}

// PerformanceInfo contains the last metrics sample.
type PerformanceInfo struct {
	FrameRate         float64
	AverageLatency    time.Duration
	P95Latency        time.Duration
	DropRate          float64
	Quality           float64
	QualityCeiling    float64
	GPUUtilization    float64
	MemoryUtilization float64
}

// OutputInfo contains information about the encoded output.
type OutputInfo struct {
	Path     string
	Chunks   int
	FileSize int64
	Width    int
	Height   int
	Codec    string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithGeneratedAt overrides the generation time.
func (b *Builder) WithGeneratedAt(t time.Time) *Builder {
	b.summary.GeneratedAt = t
	return b
}

// WithConfig sets composition settings from an orchestrator configuration.
func (b *Builder) WithConfig(c orchestrator.Config) *Builder {
	b.summary.Settings = Settings{
		Layout:              string(c.Layout.Kind),
		Primary:             string(c.Layout.Primary),
		Preset:              string(c.Preset),
		SyncTolerance:       c.SyncTolerance,
		FrameSync:           c.EnableFrameSync,
		MaxConcurrentFrames: c.MaxConcurrentFrames,
		OrderedOutput:       c.OrderedOutput,
	}
	return b
}

// WithCounters sets session and frame information from orchestrator counters.
// The session duration runs from StartedAt to the generation time.
func (b *Builder) WithCounters(c orchestrator.Counters) *Builder {
	b.summary.Session.ID = c.SessionID
	b.summary.Session.StartedAt = c.StartedAt
	b.summary.Session.State = c.State.String()
	if !c.StartedAt.IsZero() && b.summary.GeneratedAt.After(c.StartedAt) {
		b.summary.Session.Duration = b.summary.GeneratedAt.Sub(c.StartedAt)
	}
	b.summary.Frames = FrameInfo{
		Submitted:      c.Submitted,
		Processed:      c.Processed,
		DroppedDesync:  c.Dropped.Desync,
		DroppedQuality: c.Dropped.Quality,
		DroppedStop:    c.Dropped.Shutdown,
		Failed:         c.Failed,
		EncodeFailures: c.EncodeFailures,
		HighWater:      c.HighWater,
	}
	return b
}

// WithSnapshot sets performance information from a metrics sample.
func (b *Builder) WithSnapshot(s metrics.Snapshot) *Builder {
	b.summary.Performance = PerformanceInfo{
		FrameRate:         s.FrameRate,
		AverageLatency:    s.AverageLatency,
		P95Latency:        s.P95Latency,
		DropRate:          s.DropRate,
		Quality:           s.Quality,
		QualityCeiling:    s.QualityCeiling,
		GPUUtilization:    s.GPUUtilization,
		MemoryUtilization: s.MemoryUtilization,
	}
	if s.Device != "" {
		b.summary.Session.Device = s.Device
	}
	return b
}

// WithOutput sets encoded output information.
func (b *Builder) WithOutput(output OutputInfo) *Builder {
	b.summary.Output = output
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
