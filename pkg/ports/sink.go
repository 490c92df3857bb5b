package ports

import (
	"image"
)

// DebugSink receives intermediate results for offline inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveConfigJSON saves the active configuration as JSON.
	SaveConfigJSON(data []byte) error

	// SaveMetricsJSON saves a metrics snapshot as JSON.
	SaveMetricsJSON(data []byte) error

	// SaveComposedFrame saves one composited frame by admission sequence.
	SaveComposedFrame(seq uint64, img image.Image) error
}
