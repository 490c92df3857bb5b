// Package promexporter exposes pipeline metrics in the Prometheus format.
package promexporter

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/dualcam/pkg/events"
	"github.com/user/dualcam/pkg/metrics"
	"github.com/user/dualcam/pkg/pipeline"
)

const namespace = "dualcam"

// Exporter mirrors metrics snapshots and frame events into a private registry.
type Exporter struct {
	registry *prometheus.Registry

	// Gauges
	frameRate      prometheus.Gauge
	latencyAvg     prometheus.Gauge
	latencyP95     prometheus.Gauge
	quality        prometheus.Gauge
	qualityCeiling prometheus.Gauge
	inFlight       prometheus.Gauge
	memoryUtil     prometheus.Gauge
	gpuUtil        prometheus.Gauge
	dropRate       prometheus.Gauge
	state          *prometheus.GaugeVec

	// Counters
	processed      prometheus.Counter
	dropped        *prometheus.CounterVec
	failed         prometheus.Counter
	encodeFailures prometheus.Counter

	// Histograms
	processingTime prometheus.Histogram

	// Last snapshot seen, for counter deltas
	mu      sync.Mutex
	session string
	last    metrics.Snapshot
}

// New creates an exporter with its own registry.
func New() *Exporter {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	e := &Exporter{registry: reg}

	e.frameRate = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "frame_rate",
		Help: "Composited frames per second",
	})
	e.latencyAvg = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "latency_average_seconds",
		Help: "Mean end-to-end processing time over the latency window",
	})
	e.latencyP95 = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "latency_p95_seconds",
		Help: "95th percentile processing time over the latency window",
	})
	e.quality = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "quality_level",
		Help: "Current adaptive quality level (0.3 to 1.0)",
	})
	e.qualityCeiling = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "quality_ceiling",
		Help: "Quality ceiling imposed by pressure signals",
	})
	e.inFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "frames_in_flight",
		Help: "Admitted frames not yet completed",
	})
	e.memoryUtil = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "memory_utilization",
		Help: "Device memory in use relative to the budget",
	})
	e.gpuUtil = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "gpu_utilization",
		Help: "Share of device queue time spent executing kernels",
	})
	e.dropRate = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "drop_rate",
		Help: "Dropped frames relative to processed plus dropped",
	})
	e.state = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "pipeline_state",
		Help: "1 for the current pipeline state",
	}, []string{"state"})

	e.processed = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "frames_processed_total",
		Help: "Frames composited and handed to the encoder",
	})
	e.dropped = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "frames_dropped_total",
		Help: "Frames dropped without composition, by reason",
	}, []string{"reason"})
	e.failed = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "frames_failed_total",
		Help: "Frames that failed in synchronization or composition",
	})
	e.encodeFailures = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "encode_failures_total",
		Help: "Frames rejected by the encoder",
	})

	e.processingTime = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "processing_seconds",
		Help:    "End-to-end processing time of completed frames",
		Buckets: []float64{.002, .004, .008, .016, .033, .050, .100, .250},
	})

	for _, s := range []pipeline.State{pipeline.StateIdle, pipeline.StateProcessing, pipeline.StateStopping, pipeline.StateError} {
		e.state.WithLabelValues(s.String()).Set(0)
	}
	for _, r := range []pipeline.DropReason{pipeline.DropDesync, pipeline.DropQuality, pipeline.DropShutdown} {
		e.dropped.WithLabelValues(string(r))
	}
	return e
}

// Registry returns the registry holding the exporter's collectors.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry for scraping.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Observe implements metrics.Observer.
func (e *Exporter) Observe(s metrics.Snapshot) {
	e.frameRate.Set(s.FrameRate)
	e.latencyAvg.Set(s.AverageLatency.Seconds())
	e.latencyP95.Set(s.P95Latency.Seconds())
	e.quality.Set(s.Quality)
	e.qualityCeiling.Set(s.QualityCeiling)
	e.inFlight.Set(float64(s.InFlight))
	e.memoryUtil.Set(s.MemoryUtilization)
	e.gpuUtil.Set(s.GPUUtilization)
	e.dropRate.Set(s.DropRate)
	for _, st := range []pipeline.State{pipeline.StateIdle, pipeline.StateProcessing, pipeline.StateStopping, pipeline.StateError} {
		v := 0.0
		if st == s.State {
			v = 1
		}
		e.state.WithLabelValues(st.String()).Set(v)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Session counters restart at zero; carry the totals forward.
	prev := e.last
	if s.SessionID != e.session {
		prev = metrics.Snapshot{}
		e.session = s.SessionID
	}
	e.processed.Add(delta(prev.Processed, s.Processed))
	e.failed.Add(delta(prev.Failed, s.Failed))
	e.encodeFailures.Add(delta(prev.EncodeFailures, s.EncodeFailures))
	e.dropped.WithLabelValues(string(pipeline.DropDesync)).Add(delta(prev.Dropped.Desync, s.Dropped.Desync))
	e.dropped.WithLabelValues(string(pipeline.DropQuality)).Add(delta(prev.Dropped.Quality, s.Dropped.Quality))
	e.dropped.WithLabelValues(string(pipeline.DropShutdown)).Add(delta(prev.Dropped.Shutdown, s.Dropped.Shutdown))
	e.last = s
}

// Watch records the processing time of every frame_completed event on sub
// until ctx is done or the subscription closes.
func (e *Exporter) Watch(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if ev.Type == events.TypeFrameCompleted {
				e.processingTime.Observe(ev.ProcessingTime.Seconds())
			}
		}
	}
}

func delta(prev, cur uint64) float64 {
	if cur < prev {
		return float64(cur)
	}
	return float64(cur - prev)
}

var _ metrics.Observer = (*Exporter)(nil)
