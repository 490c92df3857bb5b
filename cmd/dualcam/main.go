// Package main provides the CLI entry point for dualcam.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/dualcam/pkg/adapters/filesink"
	"github.com/user/dualcam/pkg/adapters/imageencoder"
	"github.com/user/dualcam/pkg/adapters/logger"
	"github.com/user/dualcam/pkg/adapters/nullsink"
	"github.com/user/dualcam/pkg/adapters/osfilesystem"
	"github.com/user/dualcam/pkg/adapters/promexporter"
	"github.com/user/dualcam/pkg/adapters/softgpu"
	"github.com/user/dualcam/pkg/adapters/synthsource"
	"github.com/user/dualcam/pkg/adapters/systemclock"
	"github.com/user/dualcam/pkg/config"
	"github.com/user/dualcam/pkg/dualcam"
	"github.com/user/dualcam/pkg/events"
	"github.com/user/dualcam/pkg/metrics"
	"github.com/user/dualcam/pkg/orchestrator"
	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
	"github.com/user/dualcam/pkg/stages/composite"
	"github.com/user/dualcam/pkg/stages/encode"
	"github.com/user/dualcam/pkg/summarizer"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "dualcam",
		Usage:   l10n.T("Compose two camera streams into one output stream"),
		Version: version,
		Commands: []*cli.Command{
			runCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("dualcam version %s", version))
					return nil
				},
			},
		},
	}
}

func runCommand() *cli.Command {
	const (
		catOutput  = "Output"
		catLayout  = "Layout and Style"
		catSync    = "Synchronization"
		catQuality = "Quality and Concurrency"
		catSource  = "Source"
		catDebug   = "Debug and Metrics"
		catLogging = "Logging"
	)

	return &cli.Command{
		Name:  "run",
		Usage: l10n.T("Capture from the synthetic dual camera and compose the streams"),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T(catOutput)},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output file for the encoded chunks"), Category: l10n.T(catOutput)},
			&cli.StringFlag{Name: "summary", Usage: l10n.T("Markdown session summary path"), Category: l10n.T(catOutput)},

			&cli.StringFlag{Name: "layout", Aliases: []string{"l"}, Usage: l10n.T("Layout (pip, side-by-side, overlay, split)"), Category: l10n.T(catLayout)},
			&cli.StringFlag{Name: "primary", Usage: l10n.T("Stream drawn full frame (front, back)"), Category: l10n.T(catLayout)},
			&cli.Float64Flag{Name: "pip-scale", Usage: l10n.T("Inset width relative to the output width"), Category: l10n.T(catLayout)},
			&cli.StringFlag{Name: "pip-corner", Usage: l10n.T("Inset corner (top_left, top_right, bottom_left, bottom_right)"), Category: l10n.T(catLayout)},
			&cli.StringFlag{Name: "background-color", Usage: l10n.T("Background color (hex)"), Category: l10n.T(catLayout)},
			&cli.StringFlag{Name: "border-color", Usage: l10n.T("Inset border color (hex)"), Category: l10n.T(catLayout)},

			&cli.DurationFlag{Name: "sync-tolerance", Usage: l10n.T("Maximum timestamp difference of a frame pair"), Category: l10n.T(catSync)},
			&cli.BoolFlag{Name: "no-sync", Usage: l10n.T("Compose pairs without checking timestamps"), Category: l10n.T(catSync)},

			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: l10n.T("Quality preset (low, medium, high)"), Category: l10n.T(catQuality)},
			&cli.IntFlag{Name: "max-concurrent", Usage: l10n.T("Compositions allowed in flight"), Category: l10n.T(catQuality)},
			&cli.BoolFlag{Name: "ordered", Usage: l10n.T("Deliver frames to the encoder in capture order"), Category: l10n.T(catQuality)},
			&cli.IntFlag{Name: "jpeg-quality", Usage: l10n.T("JPEG quality (1-100, overrides quality preset)"), Category: l10n.T(catQuality)},
			&cli.IntFlag{Name: "workers", Usage: l10n.T("Software device workers (0 = automatic)"), Category: l10n.T(catQuality)},

			&cli.Float64Flag{Name: "fps", Usage: l10n.T("Capture frame rate"), Category: l10n.T(catSource)},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Frames to capture (0 = until interrupted)"), Category: l10n.T(catSource)},
			&cli.BoolFlag{Name: "single", Usage: l10n.T("Capture the front camera only"), Category: l10n.T(catSource)},

			&cli.StringFlag{Name: "metrics-addr", Usage: l10n.T("Serve Prometheus metrics on this address"), Category: l10n.T(catDebug)},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Save configuration, metrics and frames for inspection"), Category: l10n.T(catDebug)},
			&cli.StringFlag{Name: "debug-dir", Usage: l10n.T("Debug output directory"), Category: l10n.T(catDebug)},

			&cli.StringFlag{Name: "log-level", Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T(catLogging)},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: l10n.T("Suppress log output"), Category: l10n.T(catLogging)},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			var log ports.Logger
			if c.Bool("quiet") {
				log = logger.NewNoop()
			} else {
				log = logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, c.Int("workers"), log)
		},
	}
}

// loadConfig reads the configuration file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("summary") {
		cfg.SummaryPath = c.String("summary")
	}
	if c.IsSet("layout") {
		cfg.Layout.Kind = c.String("layout")
	}
	if c.IsSet("primary") {
		cfg.Layout.Primary = c.String("primary")
	}
	if c.IsSet("pip-scale") {
		cfg.Layout.PiPScale = c.Float64("pip-scale")
	}
	if c.IsSet("pip-corner") {
		cfg.Layout.PiPCorner = c.String("pip-corner")
	}
	if c.IsSet("background-color") {
		cfg.Theme.BackgroundColor = c.String("background-color")
	}
	if c.IsSet("border-color") {
		cfg.Theme.BorderColor = c.String("border-color")
	}
	if c.IsSet("sync-tolerance") {
		cfg.Sync.ToleranceUs = int(c.Duration("sync-tolerance") / time.Microsecond)
	}
	if c.Bool("no-sync") {
		cfg.Sync.Enabled = false
	}
	if c.IsSet("preset") {
		cfg.Quality.Preset = c.String("preset")
	}
	if c.IsSet("max-concurrent") {
		cfg.MaxConcurrentFrames = c.Int("max-concurrent")
	}
	if c.Bool("ordered") {
		cfg.OrderedOutput = true
	}
	if c.IsSet("jpeg-quality") {
		cfg.Quality.JPEGQuality = c.Int("jpeg-quality")
	}
	if c.IsSet("fps") {
		cfg.Source.FPS = c.Float64("fps")
	}
	if c.IsSet("frames") {
		cfg.Source.Frames = c.Int("frames")
	}
	if c.Bool("single") {
		cfg.Source.Single = true
	}
	if c.IsSet("metrics-addr") {
		cfg.Metrics.Addr = c.String("metrics-addr")
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	// A single camera has nothing to pair with.
	if cfg.Source.Single {
		cfg.Layout.Kind = string(pipeline.LayoutSplit)
		cfg.Layout.Primary = string(pipeline.SourceFront)
	}
	return cfg, nil
}

// run captures until the source ends or ctx is cancelled, then drains the
// pipeline and writes the summary. Cancelling ctx stops capture only.
func run(ctx context.Context, cfg config.Config, workers int, log ports.Logger) error {
	builder := dualcam.NewConfigBuilder()
	if err := cfg.Apply(builder); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	dc := builder.Build()
	orchConfig := dc.ToOrchestratorConfig()

	// Create adapters
	fs := osfilesystem.New()
	clock := systemclock.New()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, cfg.DebugFrameEvery)
	} else {
		sink = nullsink.New()
	}

	device := softgpu.New(softgpu.Options{
		Workers:     workers,
		MemoryLimit: int64(cfg.Metrics.MemoryBudgetMB) << 20,
	}, log)
	defer device.Close()

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	encoder := imageencoder.New(imageencoder.Options{Quality: dc.JPEGQuality}, w)

	// Create stages
	compositeStage := composite.NewStage(device, log)
	encodeStage := encode.NewStage(encoder, sink, log, orchConfig.OrderedOutput)

	orch, err := orchestrator.New(orchConfig, compositeStage, encodeStage, clock, sink, log)
	if err != nil {
		return err
	}
	defer orch.Close()

	src, err := synthsource.New(cfg.SourceOptions(), clock)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}

	// Metrics
	agg := metrics.NewAggregator(orch, device, clock, cfg.MetricsOptions(), log)
	agg.AddObserver(metrics.NewMemoryMonitor(orch, metrics.DefaultThresholds(), log))
	if sink.Enabled() {
		agg.AddObserver(metrics.ObserverFunc(func(s metrics.Snapshot) {
			data, err := json.MarshalIndent(s, "", "  ")
			if err == nil {
				err = sink.SaveMetricsJSON(data)
			}
			if err != nil {
				log.Warn("Failed to save metrics: %v", err)
			}
		}))
	}

	mctx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()

	if cfg.Metrics.Addr != "" {
		exporter := promexporter.New()
		agg.AddObserver(exporter)
		sub, err := orch.Subscribe(events.DefaultBuffer, events.TypeFrameCompleted)
		if err != nil {
			return err
		}
		go exporter.Watch(mctx, sub)

		mux := http.NewServeMux()
		mux.Handle("/metrics", exporter.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("Serving metrics on %s", cfg.Metrics.Addr)
	}
	go agg.Run(mctx)

	// Run pipeline
	if err := orch.Start(ctx); err != nil {
		return err
	}
	log.Info("Capturing (%s layout, %s preset)...", dc.Layout, dc.Preset)

	runErr := orch.Run(ctx, src, nil)
	if ctx.Err() != nil {
		log.Warn("Interrupted, draining...")
	}
	stopErr := orch.Stop(context.Background())

	if err := w.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush output: %w", err)
	}

	// Final sample after the drain so the summary sees every frame.
	snapshot := agg.Sample(context.Background())
	counters := orch.Counters()
	stats := encoder.Stats()

	if cfg.SummaryPath != "" {
		summary := summarizer.NewBuilder().
			WithConfig(orchConfig).
			WithCounters(counters).
			WithSnapshot(snapshot).
			WithOutput(summarizer.OutputInfo{
				Path:     cfg.OutputPath,
				Codec:    "JPEG",
				Chunks:   stats.Frames,
				FileSize: stats.Bytes,
				Width:    stats.Width,
				Height:   stats.Height,
			}).
			Build()
		writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(func(s string) string { return l10n.T(s) }),
			summarizer.WithVersion(version),
		), fs)
		if err := writer.Write(cfg.SummaryPath, summary); err != nil {
			log.Warn("Failed to write summary: %v", err)
		}
	}

	log.Info("Processed %d frames, dropped %d, output saved to %s", counters.Processed, counters.Dropped.Total(), cfg.OutputPath)

	if runErr != nil {
		return runErr
	}
	return stopErr
}
