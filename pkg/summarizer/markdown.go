package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	t       func(string) string
	version string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator translates headings and labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.t = t
	}
}

// WithVersion adds the program version to the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		t: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", f.t("Session Summary"))

	f.section(&sb, "Session", [][2]string{
		{"Session ID", orNA(s.Session.ID)},
		{"Started", formatTime(s.Session.StartedAt)},
		{"Duration", formatDuration(s.Session.Duration)},
		{"Final State", orNA(s.Session.State)},
		{"Device", orNA(s.Session.Device)},
	})

	sync := f.t("Disabled")
	if s.Settings.FrameSync {
		sync = fmt.Sprintf("%s (%s)", f.t("Enabled"), s.Settings.SyncTolerance)
	}
	ordering := f.t("Completion order")
	if s.Settings.OrderedOutput {
		ordering = f.t("Admission order")
	}
	f.section(&sb, "Settings", [][2]string{
		{"Layout", orNA(s.Settings.Layout)},
		{"Primary Source", orNA(s.Settings.Primary)},
		{"Quality Preset", orNA(s.Settings.Preset)},
		{"Frame Sync", sync},
		{"Max Concurrent Frames", fmt.Sprintf("%d", s.Settings.MaxConcurrentFrames)},
		{"Output Order", ordering},
	})

	fr := s.Frames
	f.section(&sb, "Frames", [][2]string{
		{"Submitted", fmt.Sprintf("%d", fr.Submitted)},
		{"Processed", fmt.Sprintf("%d", fr.Processed)},
		{"Dropped", fmt.Sprintf("%d (%s %d, %s %d, %s %d)",
			fr.Dropped(),
			f.t("desync"), fr.DroppedDesync,
			f.t("quality"), fr.DroppedQuality,
			f.t("shutdown"), fr.DroppedStop)},
		{"Failed", fmt.Sprintf("%d", fr.Failed)},
		{"Encode Failures", fmt.Sprintf("%d", fr.EncodeFailures)},
		{"Peak In Flight", fmt.Sprintf("%d", fr.HighWater)},
	})

	p := s.Performance
	f.section(&sb, "Performance", [][2]string{
		{"Frame Rate", fmt.Sprintf("%.1f fps", p.FrameRate)},
		{"Average Latency", formatLatency(p.AverageLatency)},
		{"P95 Latency", formatLatency(p.P95Latency)},
		{"Drop Rate", formatPercent(p.DropRate)},
		{"Quality Level", fmt.Sprintf("%.2f / %.2f", p.Quality, p.QualityCeiling)},
		{"GPU Utilization", formatPercent(p.GPUUtilization)},
		{"Memory Utilization", formatPercent(p.MemoryUtilization)},
	})

	if s.Output.Path != "" {
		size := "N/A"
		if s.Output.Width > 0 && s.Output.Height > 0 {
			size = fmt.Sprintf("%dx%d", s.Output.Width, s.Output.Height)
		}
		f.section(&sb, "Output", [][2]string{
			{"File", s.Output.Path},
			{"Codec", orNA(s.Output.Codec)},
			{"Chunks", fmt.Sprintf("%d", s.Output.Chunks)},
			{"File Size", formatBytes(s.Output.FileSize)},
			{"Frame Size", size},
		})
	}

	sb.WriteString("---\n\n")
	footer := fmt.Sprintf("%s %s", f.t("Generated at"), s.GeneratedAt.Format(time.RFC3339))
	if f.version != "" {
		footer += fmt.Sprintf(" by dualcam %s", f.version)
	}
	sb.WriteString(footer + "\n")

	return sb.String()
}

func (f *MarkdownFormatter) section(sb *strings.Builder, title string, rows [][2]string) {
	fmt.Fprintf(sb, "## %s\n\n", f.t(title))
	fmt.Fprintf(sb, "| %s | %s |\n", f.t("Item"), f.t("Value"))
	sb.WriteString("|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s | %s |\n", f.t(r[0]), r[1])
	}
	sb.WriteString("\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC3339)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "N/A"
	}
	return d.Round(time.Millisecond).String()
}

func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// formatBytes formats a byte count with binary units.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMG"[exp])
}
