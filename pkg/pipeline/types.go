package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/user/dualcam/pkg/frame"
	"github.com/user/dualcam/pkg/ports"
)

// =============================================================================
// Layout Types
// =============================================================================

// LayoutKind selects how the two inputs are arranged in the output frame.
type LayoutKind string

const (
	LayoutSideBySide       LayoutKind = "side_by_side"
	LayoutPictureInPicture LayoutKind = "picture_in_picture"
	LayoutOverlay          LayoutKind = "overlay"
	LayoutSplit            LayoutKind = "split"
)

// ParseLayoutKind parses a layout name. Hyphenated and short forms are accepted.
func ParseLayoutKind(s string) (LayoutKind, error) {
	switch s {
	case "side_by_side", "side-by-side", "sbs":
		return LayoutSideBySide, nil
	case "picture_in_picture", "picture-in-picture", "pip":
		return LayoutPictureInPicture, nil
	case "overlay":
		return LayoutOverlay, nil
	case "split", "single":
		return LayoutSplit, nil
	default:
		return "", fmt.Errorf("unknown layout %q", s)
	}
}

// Kernel returns the compute kernel implementing the layout.
func (k LayoutKind) Kernel() ports.Kernel {
	switch k {
	case LayoutSideBySide:
		return ports.KernelSideBySide
	case LayoutPictureInPicture:
		return ports.KernelPictureInPicture
	case LayoutOverlay:
		return ports.KernelOverlay
	default:
		return ports.KernelSplit
	}
}

// RequiresSecondary reports whether the layout needs both inputs.
// Split is the only single-stream layout.
func (k LayoutKind) RequiresSecondary() bool {
	return k != LayoutSplit
}

// Corner positions the picture-in-picture inset.
type Corner string

const (
	CornerTopLeft     Corner = "top_left"
	CornerTopRight    Corner = "top_right"
	CornerBottomLeft  Corner = "bottom_left"
	CornerBottomRight Corner = "bottom_right"
)

// Source names one of the two producers.
type Source string

const (
	SourceFront Source = "front"
	SourceBack  Source = "back"
)

// LayoutSpec parameterizes the layout geometry.
type LayoutSpec struct {
	Kind         LayoutKind
	Primary      Source  // Stream drawn full frame (or left half)
	PiPScale     float64 // Inset width relative to the output width
	PiPCorner    Corner
	PiPMargin    int     // Inset distance from the output edges
	Gap          int     // Gap between side-by-side halves
	OverlayAlpha float64 // Secondary opacity for the overlay layout
	BorderWidth  int     // Inset border for picture-in-picture
	CornerRadius int     // Inset corner radius for picture-in-picture
}

// DefaultLayoutSpec returns LayoutSpec with default values.
func DefaultLayoutSpec() LayoutSpec {
	return LayoutSpec{
		Kind:         LayoutPictureInPicture,
		Primary:      SourceBack,
		PiPScale:     0.3,
		PiPCorner:    CornerTopRight,
		PiPMargin:    24,
		Gap:          0,
		OverlayAlpha: 0.5,
		BorderWidth:  3,
		CornerRadius: 12,
	}
}

// LayoutInput contains parameters for layout calculation.
type LayoutInput struct {
	Spec          LayoutSpec
	Canvas        image.Point // Output dimensions
	PrimarySize   image.Point
	SecondarySize image.Point // Zero when there is no secondary input
}

// LayoutResult contains destination rectangles in output space.
type LayoutResult struct {
	Primary   image.Rectangle
	Secondary image.Rectangle // Empty when the layout draws one input
	Alpha     float64
}

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeTheme defines composition styling.
type CompositeTheme struct {
	BackgroundColor color.Color
	BorderColor     color.Color
}

// DefaultCompositeTheme returns a default composite theme.
func DefaultCompositeTheme() CompositeTheme {
	return CompositeTheme{
		BackgroundColor: color.RGBA{R: 0, G: 0, B: 0, A: 255},
		BorderColor:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// CompositeInput contains parameters for one composition.
type CompositeInput struct {
	Pair    frame.Pair
	Quality float64
	Layout  LayoutSpec
	Theme   CompositeTheme
}

// CompositeResult contains the composited output buffer.
// The receiver owns the buffer's single reference.
type CompositeResult struct {
	Frame  *frame.Buffer
	Kernel ports.Kernel
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput hands one composited frame to the encoder stage.
// The stage takes ownership of Frame and releases it after encoding.
type EncodeInput struct {
	Seq   uint64
	Frame *frame.Buffer
}

// EncodeResult lists the frames the encoder consumed during one call.
// In ordered mode a call may deliver zero or several frames.
type EncodeResult struct {
	Deliveries []Delivery
}

// Delivery is the outcome of handing one frame to the encoder.
type Delivery struct {
	Seq   uint64
	PTS   frame.Timestamp
	Chunk ports.EncodedChunk
	Err   error
}

// =============================================================================
// Orchestrator Types
// =============================================================================

// FrameResult describes a successfully composited frame.
type FrameResult struct {
	Seq            uint64
	PTS            frame.Timestamp
	SyncDelta      time.Duration
	ProcessingTime time.Duration
	Quality        float64
	Kernel         ports.Kernel
	Deliveries     []Delivery
}
