// Package orchestrator runs the dual-stream composition pipeline.
//
// An Orchestrator owns the lifecycle state, configuration, counters and
// quality controller of one pipeline. All of them are confined to a single
// goroutine; public methods send closures to it and wait for the result.
// Composition itself runs outside that goroutine, bounded by the gate.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"tailscale.com/util/ringbuffer"

	"github.com/user/dualcam/pkg/events"
	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/gate"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
	"github.com/user/dualcam/pkg/quality"
	"github.com/user/dualcam/pkg/stages/synchronize"
)

// LatencyWindow is the number of processing times kept for percentile metrics.
const LatencyWindow = 120

// Compositor composes frame pairs and manages compiled pipelines.
type Compositor interface {
	pipeline.CompositeStage
	Prepare(kind pipeline.LayoutKind) error
	Invalidate()
}

// Encoder hands composited frames to the encoder.
type Encoder interface {
	pipeline.EncodeStage
	Skip(seq uint64) []pipeline.Delivery
	Reset(first uint64)
	SetOrdered(ordered bool)
}

// Orchestrator coordinates the pipeline stages.
type Orchestrator struct {
	compositor Compositor
	encoder    Encoder
	sync       pipeline.Stage[synchronize.Input, frame.Pair]
	bus        *events.Bus
	clock      ports.Clock
	sink       ports.DebugSink
	logger     ports.Logger

	cmds chan func()
	quit chan struct{}

	// Owned by the actor goroutine.
	state     pipeline.State
	config    Config
	session   string
	startedAt time.Time
	gate      *gate.Gate
	quality   *quality.Controller
	pressure  map[quality.Cause]quality.PressureLevel
	nextSeq   uint64
	inFlight  int
	counters  Counters
	latencies *ringbuffer.RingBuffer[time.Duration]
	waiters   []chan struct{}
}

// New creates an orchestrator in the idle state and starts its goroutine.
func New(
	config Config,
	compositor Compositor,
	encoder Encoder,
	clock ports.Clock,
	sink ports.DebugSink,
	logger ports.Logger,
) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		compositor: compositor,
		encoder:    encoder,
		sync:       synchronize.NewStage(),
		bus:        events.NewBus(),
		clock:      clock,
		sink:       sink,
		logger:     logger.WithComponent("orchestrator"),
		cmds:       make(chan func()),
		quit:       make(chan struct{}),
		state:      pipeline.StateIdle,
		config:     config,
		quality:    quality.NewController(config.qualityOptions()),
		pressure:   make(map[quality.Cause]quality.PressureLevel),
		latencies:  ringbuffer.New[time.Duration](LatencyWindow),
	}
	encoder.SetOrdered(config.OrderedOutput)

	go o.loop()
	return o, nil
}

func (o *Orchestrator) loop() {
	for {
		select {
		case fn := <-o.cmds:
			fn()
		case <-o.quit:
			return
		}
	}
}

// do runs fn on the actor goroutine and waits for it to finish.
func (o *Orchestrator) do(fn func()) error {
	done := make(chan struct{})
	select {
	case o.cmds <- func() { fn(); close(done) }:
	case <-o.quit:
		return pipeline.ErrClosed
	}
	<-done
	return nil
}

// Subscribe returns a subscription to pipeline events. See events.Bus.
func (o *Orchestrator) Subscribe(buffer int, types ...events.Type) (*events.Subscription, error) {
	return o.bus.Subscribe(buffer, types...)
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() pipeline.State {
	var s pipeline.State
	if err := o.do(func() { s = o.state }); err != nil {
		return pipeline.StateIdle
	}
	return s
}

// Config returns the active configuration.
func (o *Orchestrator) Config() Config {
	var c Config
	o.do(func() { c = o.config })
	return c
}

// SessionID returns the id of the current or last session, or "" before
// the first Start and after Reset.
func (o *Orchestrator) SessionID() string {
	var id string
	o.do(func() { id = o.session })
	return id
}

// Start begins a processing session. It is only legal in the idle state.
func (o *Orchestrator) Start(ctx context.Context) error {
	var (
		err    error
		config Config
	)
	if e := o.do(func() {
		if o.state != pipeline.StateIdle {
			err = &pipeline.InvalidStateError{Op: "start", State: o.state}
			o.publishError(0, err)
			return
		}

		o.session = uuid.NewString()
		o.startedAt = o.clock.Now()
		o.counters = Counters{}
		o.latencies.Clear()
		o.quality = quality.NewController(o.config.qualityOptions())
		for cause, level := range o.pressure {
			o.quality.ApplyPressure(quality.Pressure{Cause: cause, Level: level})
		}
		o.gate = gate.New(o.config.MaxConcurrentFrames)
		o.nextSeq = 1
		o.encoder.Reset(o.nextSeq)
		config = o.config

		o.transition(pipeline.StateProcessing)
		o.logger.Info("Session %s started (layout %s, quality %.2f)", o.session, o.config.Layout.Kind, o.quality.Level())

		if perr := o.compositor.Prepare(o.config.Layout.Kind); perr != nil {
			err = fmt.Errorf("prepare %s pipeline: %w", o.config.Layout.Kind, perr)
			o.logger.Error("Failed to prepare pipeline: %v", perr)
			o.gate.Close()
			o.publishError(0, err)
			o.transition(pipeline.StateError)
		}
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	o.saveConfig(config)
	return nil
}

// Stop ends the session. It closes the gate, waits until every in-flight
// frame has completed and returns to idle. Stop in idle is a no-op.
func (o *Orchestrator) Stop(ctx context.Context) error {
	var (
		err  error
		wait chan struct{}
	)
	if e := o.do(func() {
		switch o.state {
		case pipeline.StateIdle:
			return
		case pipeline.StateError:
			err = &pipeline.InvalidStateError{Op: "stop", State: o.state}
			return
		case pipeline.StateProcessing:
			o.transition(pipeline.StateStopping)
			o.gate.Close()
			o.logger.Info("Stopping, %d frames in flight", o.inFlight)
		}
		wait = o.drainWaiter()
		if o.inFlight == 0 {
			o.transition(pipeline.StateIdle)
		}
	}); e != nil {
		return e
	}
	if err != nil || wait == nil {
		return err
	}

	select {
	case <-wait:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s := o.State(); s == pipeline.StateError {
		return &pipeline.InvalidStateError{Op: "stop", State: s}
	}
	return nil
}

// Reset returns an errored pipeline to idle and clears the session metrics.
// It waits for in-flight work to drain. Reset is legal in idle and error.
func (o *Orchestrator) Reset(ctx context.Context) error {
	var (
		err     error
		wait    chan struct{}
		session string
	)
	if e := o.do(func() {
		if o.state != pipeline.StateIdle && o.state != pipeline.StateError {
			err = &pipeline.InvalidStateError{Op: "reset", State: o.state}
			o.publishError(0, err)
			return
		}
		session = o.session
		wait = o.drainWaiter()
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}

	select {
	case <-wait:
	case <-ctx.Done():
		return ctx.Err()
	}

	return o.do(func() {
		if o.session != session || (o.state != pipeline.StateIdle && o.state != pipeline.StateError) {
			return
		}
		if o.state == pipeline.StateError {
			o.transition(pipeline.StateIdle)
		}
		o.session = ""
		o.counters = Counters{}
		o.latencies.Clear()
		o.quality.Reset(o.config.Preset.Level())
		o.logger.Info("Pipeline reset")
	})
}

// UpdateConfiguration replaces the configuration. It is only legal in the
// idle state; otherwise the configuration is left unchanged.
func (o *Orchestrator) UpdateConfiguration(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	var err error
	if e := o.do(func() {
		if o.state != pipeline.StateIdle {
			err = &pipeline.InvalidStateError{Op: "update configuration", State: o.state}
			o.logger.Warn("Configuration change rejected while %s", o.state)
			o.publishError(0, err)
			return
		}

		if config.Layout.Kind != o.config.Layout.Kind {
			o.compositor.Invalidate()
		}
		if config.OrderedOutput != o.config.OrderedOutput {
			o.encoder.SetOrdered(config.OrderedOutput)
		}
		o.config = config
		o.quality = quality.NewController(config.qualityOptions())
		for cause, level := range o.pressure {
			o.quality.ApplyPressure(quality.Pressure{Cause: cause, Level: level})
		}

		o.publish(events.Event{Type: events.TypeConfigurationChanged, Config: config})
		o.logger.Info("Configuration updated (layout %s, preset %s)", config.Layout.Kind, config.Preset)
	}); e != nil {
		return e
	}
	return err
}

// ReportPressure forwards a system pressure signal to the quality controller.
func (o *Orchestrator) ReportPressure(p quality.Pressure) error {
	return o.do(func() {
		if o.pressure[p.Cause] != p.Level {
			o.logger.Info("Pressure %s is now %s", p.Cause, p.Level)
		}
		o.pressure[p.Cause] = p.Level
		o.quality.ApplyPressure(p)
	})
}

// Close stops the actor goroutine and closes every event subscription.
// It is only legal in the idle state.
func (o *Orchestrator) Close() error {
	var err error
	if e := o.do(func() {
		if o.state != pipeline.StateIdle {
			err = &pipeline.InvalidStateError{Op: "close", State: o.state}
			return
		}
		close(o.quit)
	}); e != nil {
		return e
	}
	if err != nil {
		return err
	}
	o.bus.Close()
	return nil
}

// transition moves the state machine and publishes a state_changed event.
// Callers run on the actor goroutine.
func (o *Orchestrator) transition(to pipeline.State) {
	from := o.state
	if !from.CanTransition(to) {
		o.logger.Error("Illegal transition %s -> %s", from, to)
		return
	}
	o.state = to
	o.publish(events.Event{Type: events.TypeStateChanged, Previous: from, Current: to})
	o.logger.Debug("State %s -> %s", from, to)
}

// drainWaiter returns a channel closed once nothing is in flight.
func (o *Orchestrator) drainWaiter() chan struct{} {
	ch := make(chan struct{})
	if o.inFlight == 0 {
		close(ch)
		return ch
	}
	o.waiters = append(o.waiters, ch)
	return ch
}

func (o *Orchestrator) publish(e events.Event) {
	e.Time = o.clock.Now()
	if e.SessionID == "" {
		e.SessionID = o.session
	}
	o.bus.Publish(e)
}

func (o *Orchestrator) publishError(seq uint64, err error) {
	o.publish(events.Event{Type: events.TypeError, Seq: seq, Err: err})
}

func (o *Orchestrator) saveConfig(config Config) {
	if o.sink == nil || !o.sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		o.logger.Warn("Failed to encode configuration: %v", err)
		return
	}
	if err := o.sink.SaveConfigJSON(data); err != nil {
		o.logger.Warn("Failed to save configuration: %v", err)
	}
}

// isGateError reports whether err came from admission rather than composition.
func isGateError(err error) bool {
	return errors.Is(err, gate.ErrGateClosed)
}
