// Package synthsource provides a synthetic dual-camera capture source.
//
// Both sensors are triggered by one capture tick but stamp frames on their
// own clock model: a fixed offset, a drift in parts per million and a
// random per-frame jitter. With the defaults most pairs land inside a 1 ms
// tolerance and a steady fraction does not, which exercises the
// synchronizer's drop path.
package synthsource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fogleman/gg"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/ports"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("synthsource: already started")

// SensorOptions describes one sensor's output and clock model.
type SensorOptions struct {
	Width    int
	Height   int
	Offset   time.Duration // Constant clock offset
	DriftPPM float64       // Clock rate error in parts per million
	Jitter   time.Duration // Uniform per-frame jitter in [-Jitter, Jitter]
}

// Options configures a Source.
type Options struct {
	FPS    float64
	Frames int // Frames to capture; 0 runs until ctx is done or Close
	Front  SensorOptions
	Back   SensorOptions
	Single bool // Capture the front sensor only
	Buffer int  // Channel capacity; a full channel drops the pair
	Seed   uint64
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		FPS:    30,
		Front:  SensorOptions{Width: 640, Height: 480, Jitter: 300 * time.Microsecond},
		Back:   SensorOptions{Width: 1280, Height: 720, Offset: 200 * time.Microsecond, DriftPPM: 40, Jitter: 500 * time.Microsecond},
		Buffer: 8,
		Seed:   1,
	}
}

// Source implements ports.PairSource.
type Source struct {
	opts  Options
	clock ports.Clock

	front *sensor
	back  *sensor

	started  atomic.Bool
	done     chan struct{}
	stop     sync.Once
	wg       sync.WaitGroup
	captured atomic.Uint64
	overruns atomic.Uint64
}

// New creates a source driven by clock.
func New(opts Options, clock ports.Clock) (*Source, error) {
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("synthsource: invalid frame rate %v", opts.FPS)
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	s := &Source{
		opts:  opts,
		clock: clock,
		done:  make(chan struct{}),
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	var err error
	if s.front, err = newSensor("FRONT", opts.Front, color.RGBA{R: 24, G: 48, B: 96, A: 255}, rng); err != nil {
		return nil, err
	}
	if !opts.Single {
		if s.back, err = newSensor("BACK", opts.Back, color.RGBA{R: 64, G: 96, B: 48, A: 255}, rng); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins capture. The channel is closed when capture ends.
func (s *Source) Start(ctx context.Context) (<-chan ports.CapturedPair, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	out := make(chan ports.CapturedPair, s.opts.Buffer)
	s.wg.Add(1)
	go s.run(ctx, out)
	return out, nil
}

func (s *Source) run(ctx context.Context, out chan<- ports.CapturedPair) {
	defer s.wg.Done()
	defer close(out)

	interval := time.Duration(float64(time.Second) / s.opts.FPS)
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	origin := s.clock.Now()

	for n := 0; s.opts.Frames == 0 || n < s.opts.Frames; n++ {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C():
		}

		at := s.clock.Since(origin)
		pair := ports.CapturedPair{Front: s.front.capture(n, at)}
		if s.back != nil {
			pair.Back = s.back.capture(n, at)
		}
		s.captured.Add(1)

		select {
		case out <- pair:
		default:
			s.overruns.Add(1)
			pair.Front.Release()
			if pair.Back != nil {
				pair.Back.Release()
			}
		}
	}
}

// Close stops capture and waits for the producer goroutine to exit.
func (s *Source) Close() error {
	s.stop.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

// Captured returns the number of pairs produced.
func (s *Source) Captured() uint64 {
	return s.captured.Load()
}

// Overruns returns the number of pairs discarded because the consumer was behind.
func (s *Source) Overruns() uint64 {
	return s.overruns.Load()
}

// sensor renders frames and stamps them on its own clock.
type sensor struct {
	label string
	opts  SensorOptions
	bg    color.RGBA
	pool  sync.Pool

	mu  sync.Mutex
	rng *rand.Rand
}

func newSensor(label string, opts SensorOptions, bg color.RGBA, rng *rand.Rand) (*sensor, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("synthsource: invalid %s size %dx%d", label, opts.Width, opts.Height)
	}
	s := &sensor{label: label, opts: opts, bg: bg, rng: rng}
	s.pool.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	}
	return s, nil
}

// timestamp maps capture time onto the sensor clock.
func (s *sensor) timestamp(at time.Duration) frame.Timestamp {
	t := float64(at)*(1+s.opts.DriftPPM/1e6) + float64(s.opts.Offset)
	if j := s.opts.Jitter; j > 0 {
		s.mu.Lock()
		t += (s.rng.Float64()*2 - 1) * float64(j)
		s.mu.Unlock()
	}
	return frame.FromDuration(time.Duration(math.Max(0, math.Round(t))))
}

func (s *sensor) capture(n int, at time.Duration) *frame.Buffer {
	img := s.pool.Get().(*image.RGBA)
	pts := s.timestamp(at)
	s.draw(img, n, pts)
	return frame.NewBuffer(img, frame.FormatRGBA8, pts, func() { s.pool.Put(img) })
}

// draw renders a moving test pattern with the sensor label and timestamp.
func (s *sensor) draw(img *image.RGBA, n int, pts frame.Timestamp) {
	w, h := float64(s.opts.Width), float64(s.opts.Height)
	dc := gg.NewContextForRGBA(img)

	dc.SetColor(s.bg)
	dc.Clear()

	// Color bars across the bottom quarter.
	bars := []color.RGBA{
		{255, 255, 255, 255}, {255, 255, 0, 255}, {0, 255, 255, 255},
		{0, 255, 0, 255}, {255, 0, 255, 255}, {255, 0, 0, 255}, {0, 0, 255, 255},
	}
	bw := w / float64(len(bars))
	for i, c := range bars {
		dc.SetColor(c)
		dc.DrawRectangle(float64(i)*bw, h*0.75, bw+1, h*0.25)
		dc.Fill()
	}

	// A ball orbiting the centre, one revolution per two seconds at 30 fps.
	angle := float64(n) * 2 * math.Pi / 60
	r := math.Min(w, h) * 0.25
	dc.SetRGB(1, 0.6, 0.1)
	dc.DrawCircle(w/2+r*math.Cos(angle), h*0.4+r*math.Sin(angle), math.Min(w, h)*0.06)
	dc.Fill()

	dc.SetColor(color.White)
	dc.DrawStringAnchored(fmt.Sprintf("%s #%d", s.label, n), 12, 12, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("pts %.4fs", pts.Seconds()), 12, 30, 0, 1)
}

var _ ports.PairSource = (*Source)(nil)
