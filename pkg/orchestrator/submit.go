package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/user/dualcam/pkg/events"
	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/gate"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
	"github.com/user/dualcam/pkg/stages/synchronize"
)

// DropCounters breaks dropped frames down by reason.
type DropCounters struct {
	Desync   uint64
	Quality  uint64
	Shutdown uint64
}

// Total returns the number of dropped frames.
func (d DropCounters) Total() uint64 {
	return d.Desync + d.Quality + d.Shutdown
}

// Counters is a point-in-time copy of the session counters.
type Counters struct {
	SessionID string
	State     pipeline.State
	StartedAt time.Time

	Submitted      uint64 // Pairs passed to Submit while processing
	Processed      uint64
	Dropped        DropCounters
	Failed         uint64
	EncodeFailures uint64
	InFlight       int
	HighWater      int

	Quality        float64
	QualityCeiling float64
	ComposeAverage time.Duration   // Mean of the quality controller window
	Latencies      []time.Duration // End-to-end processing times, oldest first
}

// Counters returns a copy of the current session counters.
func (o *Orchestrator) Counters() Counters {
	var c Counters
	o.do(func() {
		c = o.counters
		c.SessionID = o.session
		c.State = o.state
		c.StartedAt = o.startedAt
		c.InFlight = o.inFlight
		if o.gate != nil {
			c.HighWater = o.gate.HighWater()
		}
		c.Quality = o.quality.Level()
		c.QualityCeiling = o.quality.Ceiling()
		c.ComposeAverage = o.quality.Average()
		c.Latencies = o.latencies.GetAll()
	})
	return c
}

// admission is the per-frame snapshot taken on the actor when a pair is accepted.
type admission struct {
	seq     uint64
	session string
	pair    frame.Pair
	quality float64
	layout  pipeline.LayoutSpec
	theme   pipeline.CompositeTheme
	gate    *gate.Gate
	start   time.Time
}

// outcome is what a frame reports back to the actor when it leaves the pipeline.
type outcome struct {
	composeTime time.Duration
	total       time.Duration
	kernel      ports.Kernel
	deliveries  []pipeline.Delivery
	err         error
}

// Submit runs one frame pair through synchronization, admission,
// composition and encoder hand-off.
//
// Dropped pairs return an error matching pipeline.ErrFrameDropped. Encoder
// failures do not fail Submit; they are reported in the result's
// deliveries and as error events. Submit borrows front and back; the
// caller may release them once it returns.
func (o *Orchestrator) Submit(ctx context.Context, front, back *frame.Buffer) (*pipeline.FrameResult, error) {
	var (
		adm admission
		err error
	)
	if e := o.do(func() { adm, err = o.admit(ctx, front, back) }); e != nil {
		return nil, e
	}
	if err != nil {
		return nil, err
	}

	var res pipeline.CompositeResult
	var composeStart time.Time
	err = adm.gate.Do(ctx, func(ctx context.Context) error {
		composeStart = o.clock.Now()
		var cerr error
		res, cerr = o.compositor.Execute(ctx, pipeline.CompositeInput{
			Pair:    adm.pair,
			Quality: adm.quality,
			Layout:  adm.layout,
			Theme:   adm.theme,
		})
		return cerr
	})

	out := outcome{kernel: res.Kernel}
	if !composeStart.IsZero() {
		out.composeTime = o.clock.Since(composeStart)
	}

	if err != nil {
		out.deliveries = o.encoder.Skip(adm.seq)
		if isGateError(err) {
			err = &pipeline.DropError{Reason: pipeline.DropShutdown, Err: err}
		}
		out.err = err
		out.total = o.clock.Since(adm.start)
		o.do(func() { o.complete(adm, out) })
		return nil, err
	}

	enc, eerr := o.encoder.Execute(ctx, pipeline.EncodeInput{Seq: adm.seq, Frame: res.Frame})
	if eerr != nil {
		out.deliveries = append(out.deliveries, pipeline.Delivery{Seq: adm.seq, PTS: adm.pair.PTS(), Err: eerr})
	}
	out.deliveries = append(out.deliveries, enc.Deliveries...)
	out.total = o.clock.Since(adm.start)
	o.do(func() { o.complete(adm, out) })

	return &pipeline.FrameResult{
		Seq:            adm.seq,
		PTS:            adm.pair.PTS(),
		SyncDelta:      adm.pair.SyncDelta,
		ProcessingTime: out.total,
		Quality:        adm.quality,
		Kernel:         out.kernel,
		Deliveries:     out.deliveries,
	}, nil
}

// admit validates a pair and assigns it a sequence number. Runs on the actor.
func (o *Orchestrator) admit(ctx context.Context, front, back *frame.Buffer) (admission, error) {
	if o.state != pipeline.StateProcessing {
		err := &pipeline.InvalidStateError{Op: "submit", State: o.state}
		o.publishError(0, err)
		return admission{}, err
	}
	o.counters.Submitted++

	pair, err := o.sync.Execute(ctx, synchronize.Input{Front: front, Back: back, Policy: o.config.policy()})
	if err != nil {
		var de *pipeline.DropError
		if errors.As(err, &de) {
			o.drop(0, de.Reason, de.Delta, err)
			return admission{}, err
		}
		o.counters.Failed++
		o.publishError(0, err)
		return admission{}, err
	}

	if o.quality.ShouldSkip() {
		err := &pipeline.DropError{Reason: pipeline.DropQuality}
		o.drop(0, pipeline.DropQuality, pair.SyncDelta, err)
		return admission{}, err
	}

	adm := admission{
		seq:     o.nextSeq,
		session: o.session,
		pair:    pair,
		quality: o.quality.Level(),
		layout:  o.config.Layout,
		theme:   o.config.Theme,
		gate:    o.gate,
		start:   o.clock.Now(),
	}
	o.nextSeq++
	o.inFlight++
	return adm, nil
}

// complete records the outcome of an admitted frame. Runs on the actor.
func (o *Orchestrator) complete(adm admission, out outcome) {
	o.inFlight--
	current := adm.session == o.session

	for _, d := range out.deliveries {
		if d.Err == nil {
			continue
		}
		if current {
			o.counters.EncodeFailures++
		}
		o.logger.Warn("Frame %d not encoded: %v", d.Seq, d.Err)
		o.publishError(d.Seq, d.Err)
	}

	switch {
	case !current:
	case out.err == nil:
		o.counters.Processed++
		o.quality.Observe(out.composeTime)
		o.latencies.Add(out.total)
		o.publish(events.Event{
			Type:           events.TypeFrameCompleted,
			Seq:            adm.seq,
			PTS:            adm.pair.PTS(),
			SyncDelta:      adm.pair.SyncDelta,
			ProcessingTime: out.total,
			Quality:        adm.quality,
		})
		if o.logger.Enabled(ports.LevelDebug) {
			o.logger.Debug("Frame %d composed in %s (quality %.2f)", adm.seq, out.composeTime, adm.quality)
		}
	default:
		if reason, ok := pipeline.DropReasonOf(out.err); ok {
			o.drop(adm.seq, reason, adm.pair.SyncDelta, out.err)
			break
		}
		o.counters.Failed++
		o.logger.Warn("Frame %d failed: %v", adm.seq, out.err)
		o.publishError(adm.seq, out.err)
		if pipeline.IsFatal(out.err) && (o.state == pipeline.StateProcessing || o.state == pipeline.StateStopping) {
			o.logger.Error("Device lost, session %s ends", o.session)
			o.gate.Close()
			o.transition(pipeline.StateError)
		}
	}

	if o.inFlight > 0 {
		return
	}
	if o.state == pipeline.StateStopping {
		o.transition(pipeline.StateIdle)
		o.logger.Info("Session %s drained (%d processed, %d dropped)", o.session, o.counters.Processed, o.counters.Dropped.Total())
	}
	for _, ch := range o.waiters {
		close(ch)
	}
	o.waiters = nil
}

// drop counts a dropped frame and publishes frame_dropped. Runs on the actor.
func (o *Orchestrator) drop(seq uint64, reason pipeline.DropReason, delta time.Duration, err error) {
	switch reason {
	case pipeline.DropDesync:
		o.counters.Dropped.Desync++
	case pipeline.DropQuality:
		o.counters.Dropped.Quality++
	case pipeline.DropShutdown:
		o.counters.Dropped.Shutdown++
	}
	o.publish(events.Event{
		Type:      events.TypeFrameDropped,
		Seq:       seq,
		SyncDelta: delta,
		Quality:   o.quality.Level(),
		Reason:    reason,
		Err:       err,
	})
	if o.logger.Enabled(ports.LevelDebug) {
		o.logger.Debug("Frame dropped (%s)", reason)
	}
}
