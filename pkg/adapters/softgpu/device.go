// Package softgpu provides a CPU implementation of ports.Device.
//
// Dispatches are queued to a fixed pool of worker goroutines that stand in
// for a GPU command queue. Callers suspend on a completion channel until
// their pass finishes, so the calling goroutine never runs kernel code.
package softgpu

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
)

// Options configures a Device.
type Options struct {
	// Workers is the number of concurrent dispatches. Zero uses GOMAXPROCS, capped at 4.
	Workers int
	// QueueDepth bounds pending dispatches. Zero uses 2*Workers.
	QueueDepth int
	// MemoryLimit caps bytes held by output buffers. Zero means unlimited.
	MemoryLimit int64
}

// Device is a software compute device.
type Device struct {
	opts   Options
	logger ports.Logger

	queue     chan *job
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	dispatches atomic.Uint64
	failures   atomic.Uint64
	busyNanos  atomic.Int64
	allocated  atomic.Int64
	live       atomic.Int64
}

type job struct {
	ctx       context.Context
	cmd       ports.DispatchCommand
	kernel    kernelFunc
	cancelled atomic.Bool
	done      chan error
	held      []*frame.Buffer
}

// release drops the references the job took on its textures.
func (j *job) release() {
	for _, b := range j.held {
		b.Release()
	}
	j.held = nil
}

// New creates a device and starts its workers.
func New(opts Options, logger ports.Logger) *Device {
	if opts.Workers <= 0 {
		opts.Workers = min(runtime.GOMAXPROCS(0), 4)
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = opts.Workers * 2
	}

	d := &Device{
		opts:   opts,
		logger: logger.WithComponent("softgpu"),
		queue:  make(chan *job, opts.QueueDepth),
		done:   make(chan struct{}),
	}
	for w := 0; w < opts.Workers; w++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Debug("Software device started with %d workers", opts.Workers)
	return d
}

// Name implements ports.Device.
func (d *Device) Name() string { return "softgpu" }

// QueueWidth implements ports.Device.
func (d *Device) QueueWidth() int { return d.opts.Workers }

func (d *Device) lost() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// NewOutputBuffer allocates an RGBA surface sized like template.
func (d *Device) NewOutputBuffer(template *frame.Buffer, pts frame.Timestamp) (*frame.Buffer, error) {
	if d.lost() {
		return nil, pipeline.ErrDeviceLost
	}
	if template == nil {
		return nil, pipeline.ErrMissingInput
	}
	if template.Format() == frame.FormatNV12 {
		return nil, fmt.Errorf("%w: %s output is not supported", pipeline.ErrBufferCreationFailed, template.Format())
	}
	if template.Width() <= 0 || template.Height() <= 0 {
		return nil, fmt.Errorf("%w: invalid size %v", pipeline.ErrBufferCreationFailed, template.Size())
	}

	size := int64(template.Width() * template.Height() * 4)
	if n := d.allocated.Add(size); d.opts.MemoryLimit > 0 && n > d.opts.MemoryLimit {
		d.allocated.Add(-size)
		return nil, fmt.Errorf("%w: memory limit %d bytes reached", pipeline.ErrBufferCreationFailed, d.opts.MemoryLimit)
	}
	d.live.Add(1)

	img := image.NewRGBA(image.Rect(0, 0, template.Width(), template.Height()))
	return frame.NewBuffer(img, frame.FormatRGBA8, pts, func() {
		d.allocated.Add(-size)
		d.live.Add(-1)
	}), nil
}

type texture struct {
	img image.Image
	buf *frame.Buffer
}

func (t *texture) Size() image.Point { return t.img.Bounds().Size() }

// NewTexture wraps the buffer's pixels without copying.
func (d *Device) NewTexture(buf *frame.Buffer) (ports.Texture, error) {
	if d.lost() {
		return nil, pipeline.ErrDeviceLost
	}
	if buf == nil {
		return nil, pipeline.ErrMissingInput
	}
	if buf.Format() == frame.FormatNV12 {
		return nil, fmt.Errorf("%w: %s is not sampleable", pipeline.ErrTextureCreationFailed, buf.Format())
	}
	if buf.Pixels() == nil {
		return nil, fmt.Errorf("%w: buffer has no pixels", pipeline.ErrTextureCreationFailed)
	}
	return &texture{img: buf.Pixels(), buf: buf}, nil
}

type computePipeline struct {
	kernel ports.Kernel
	fn     kernelFunc
}

func (p *computePipeline) Kernel() ports.Kernel { return p.kernel }

// NewComputePipeline looks up the kernel implementation.
func (d *Device) NewComputePipeline(kernel ports.Kernel) (ports.ComputePipeline, error) {
	if d.lost() {
		return nil, pipeline.ErrDeviceLost
	}
	fn, ok := kernels[kernel]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kernel %q", pipeline.ErrPipelineCreationFailed, kernel)
	}
	return &computePipeline{kernel: kernel, fn: fn}, nil
}

// Dispatch queues the pass and waits for completion, ctx, or device loss.
// A cancelled pass that has not started is skipped by the worker.
// The job holds a reference on every texture's buffer until the worker is
// done with it, so callers may release their inputs as soon as Dispatch returns.
func (d *Device) Dispatch(ctx context.Context, cmd ports.DispatchCommand) error {
	if d.lost() {
		return pipeline.ErrDeviceLost
	}
	cp, ok := cmd.Pipeline.(*computePipeline)
	if !ok || cp == nil {
		return fmt.Errorf("%w: foreign pipeline %T", pipeline.ErrPipelineCreationFailed, cmd.Pipeline)
	}
	if cmd.Primary == nil || cmd.Output == nil {
		return pipeline.ErrMissingInput
	}

	j := &job{ctx: ctx, cmd: cmd, kernel: cp.fn, done: make(chan error, 1)}
	for _, t := range []ports.Texture{cmd.Primary, cmd.Secondary, cmd.Output} {
		if tex, ok := t.(*texture); ok && tex.buf != nil {
			j.held = append(j.held, tex.buf.Retain())
		}
	}

	select {
	case d.queue <- j:
	case <-ctx.Done():
		j.release()
		return ctx.Err()
	case <-d.done:
		j.release()
		return pipeline.ErrDeviceLost
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		j.cancelled.Store(true)
		return ctx.Err()
	case <-d.done:
		return pipeline.ErrDeviceLost
	}
}

func (d *Device) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case j := <-d.queue:
			d.run(j)
		}
	}
}

func (d *Device) run(j *job) {
	if j.cancelled.Load() || j.ctx.Err() != nil {
		j.release()
		j.done <- context.Cause(j.ctx)
		return
	}

	start := time.Now()
	err := j.kernel(j.cmd)
	elapsed := time.Since(start)
	j.release()

	d.busyNanos.Add(int64(elapsed))
	d.dispatches.Add(1)
	if err != nil {
		d.failures.Add(1)
	}
	if d.logger.Enabled(ports.LevelDebug) {
		d.logger.Debug("Dispatched %s at quality %.2f in %v", j.cmd.Pipeline.Kernel(), j.cmd.Params.Quality, elapsed)
	}
	j.done <- err
}

// Stats implements ports.Device.
func (d *Device) Stats() ports.DeviceStats {
	return ports.DeviceStats{
		Dispatches:     d.dispatches.Load(),
		Failures:       d.failures.Load(),
		BusyTime:       time.Duration(d.busyNanos.Load()),
		AllocatedBytes: d.allocated.Load(),
		LiveBuffers:    d.live.Load(),
		QueueDepth:     len(d.queue),
	}
}

// Close stops the workers. Pending and future calls fail with ErrDeviceLost.
func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
		for drained := false; !drained; {
			select {
			case j := <-d.queue:
				j.release()
			default:
				drained = true
			}
		}
		d.logger.Debug("Software device closed")
	})
	return nil
}

// Ensure Device implements ports.Device
var _ ports.Device = (*Device)(nil)
