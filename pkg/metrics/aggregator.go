// Package metrics samples pipeline counters into periodic snapshots.
//
// The Aggregator ticks on its own clock independent of frame arrival. It
// only reads: counters come from the orchestrator through its actor and
// utilisation from the GPU device statistics.
package metrics

import (
	"context"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
	"tailscale.com/util/ringbuffer"

	"github.com/user/dualcam/pkg/orchestrator"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
)

// Source provides session counters.
type Source interface {
	Counters() orchestrator.Counters
}

// Options configures an Aggregator.
type Options struct {
	Interval     time.Duration // Sampling interval
	RateWindow   int           // Samples used for the frame rate
	MemoryBudget int64         // Device bytes counted as 100% memory use; 0 disables
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		Interval:     time.Second,
		RateWindow:   5,
		MemoryBudget: 256 << 20,
	}
}

// Snapshot is one sample of the processing metrics.
type Snapshot struct {
	Time      time.Time      `json:"time"`
	SessionID string         `json:"sessionId"`
	State     pipeline.State `json:"state"`

	FrameRate      float64       `json:"frameRate"`
	AverageLatency time.Duration `json:"averageLatency"`
	P95Latency     time.Duration `json:"p95Latency"`

	Processed      uint64                    `json:"processed"`
	Dropped        orchestrator.DropCounters `json:"dropped"`
	Failed         uint64                    `json:"failed"`
	EncodeFailures uint64                    `json:"encodeFailures"`
	InFlight       int                       `json:"inFlight"`
	DropRate       float64                   `json:"dropRate"`

	Quality           float64 `json:"quality"`
	QualityCeiling    float64 `json:"qualityCeiling"`
	MemoryUtilization float64 `json:"memoryUtilization"`
	GPUUtilization    float64 `json:"gpuUtilization"`
	Device            string  `json:"device,omitempty"`
}

// Observer receives every snapshot taken by Run.
type Observer interface {
	Observe(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Snapshot)

// Observe implements Observer.
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

type rateSample struct {
	at        time.Time
	processed uint64
}

// Aggregator computes Snapshots from a Source and an optional Device.
type Aggregator struct {
	source Source
	device ports.Device
	clock  ports.Clock
	opts   Options
	logger ports.Logger

	mu        sync.Mutex
	session   string
	rates     *ringbuffer.RingBuffer[rateSample]
	lastBusy  time.Duration
	lastWall  time.Time
	last      Snapshot
	observers []Observer
}

// NewAggregator creates an aggregator. device may be nil.
func NewAggregator(source Source, device ports.Device, clock ports.Clock, opts Options, logger ports.Logger) *Aggregator {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.RateWindow < 2 {
		opts.RateWindow = def.RateWindow
	}
	return &Aggregator{
		source: source,
		device: device,
		clock:  clock,
		opts:   opts,
		logger: logger.WithComponent("metrics"),
		rates:  ringbuffer.New[rateSample](opts.RateWindow),
	}
}

// AddObserver registers o to receive snapshots from Run.
func (a *Aggregator) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Snapshot returns the most recent sample.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Run samples on every tick until ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	a.logger.Debug("Sampling every %s", a.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s := a.Sample(ctx)
			a.mu.Lock()
			observers := slices.Clone(a.observers)
			a.mu.Unlock()
			for _, o := range observers {
				o.Observe(s)
			}
		}
	}
}

// Sample takes one snapshot now.
func (a *Aggregator) Sample(ctx context.Context) Snapshot {
	c := a.source.Counters()
	now := a.clock.Now()

	var stats ports.DeviceStats
	if a.device != nil {
		stats = a.device.Stats()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if c.SessionID != a.session {
		a.session = c.SessionID
		a.rates.Clear()
		a.lastWall = time.Time{}
	}

	s := Snapshot{
		Time:           now,
		SessionID:      c.SessionID,
		State:          c.State,
		Processed:      c.Processed,
		Dropped:        c.Dropped,
		Failed:         c.Failed,
		EncodeFailures: c.EncodeFailures,
		InFlight:       c.InFlight,
		Quality:        c.Quality,
		QualityCeiling: c.QualityCeiling,
	}

	a.rates.Add(rateSample{at: now, processed: c.Processed})
	s.FrameRate = frameRate(a.rates.GetAll())
	s.AverageLatency, s.P95Latency = latencyStats(c.Latencies)
	if total := c.Processed + c.Dropped.Total(); total > 0 {
		s.DropRate = float64(c.Dropped.Total()) / float64(total)
	}

	if a.device != nil {
		s.Device = a.device.Name()
		if a.opts.MemoryBudget > 0 {
			s.MemoryUtilization = clamp01(float64(stats.AllocatedBytes) / float64(a.opts.MemoryBudget))
		}
		if !a.lastWall.IsZero() {
			wall := now.Sub(a.lastWall)
			if wall > 0 {
				width := max(1, a.device.QueueWidth())
				s.GPUUtilization = clamp01(float64(stats.BusyTime-a.lastBusy) / (float64(wall) * float64(width)))
			}
		}
		a.lastBusy = stats.BusyTime
		a.lastWall = now
	}

	a.last = s
	return s
}

// frameRate returns processed frames per second across the window.
func frameRate(samples []rateSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	first, last := samples[0], samples[len(samples)-1]
	dt := last.at.Sub(first.at).Seconds()
	if dt <= 0 || last.processed < first.processed {
		return 0
	}
	return float64(last.processed-first.processed) / dt
}

// latencyStats returns the mean and 95th percentile of d.
func latencyStats(d []time.Duration) (avg, p95 time.Duration) {
	if len(d) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(d))
	for i, v := range d {
		xs[i] = float64(v)
	}
	slices.Sort(xs)
	return time.Duration(stat.Mean(xs, nil)), time.Duration(stat.Quantile(0.95, stat.Empirical, xs, nil))
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
