// Package layout implements the layout calculation stage.
package layout

import (
	"context"
	"image"
	"math"

	"github.com/user/dualcam/pkg/pipeline"
)

// Stage calculates destination rectangles for a composition.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new layout stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute calculates the layout based on the input parameters.
func (s *Stage) Execute(ctx context.Context, input pipeline.LayoutInput) (pipeline.LayoutResult, error) {
	return ComputeLayout(input), nil
}

// ComputeLayout performs the layout calculation.
// This is exposed as a standalone function for testing and reuse.
//
// Rectangles are in output space, with (0,0) at the canvas's top left:
//   - side_by_side: canvas split into left (primary) and right halves
//     separated by Gap; each input is aspect fitted into its half with its
//     own scale.
//   - picture_in_picture: primary covers the canvas; the secondary is an
//     inset PiPScale wide of the canvas, in PiPCorner, PiPMargin from the edges.
//   - overlay: both inputs cover the canvas; the secondary is blended at
//     OverlayAlpha.
//   - split: primary covers the canvas; no secondary.
func ComputeLayout(input pipeline.LayoutInput) pipeline.LayoutResult {
	canvas := image.Rectangle{Max: input.Canvas}
	spec := input.Spec

	switch spec.Kind {
	case pipeline.LayoutSideBySide:
		gap := clampInt(spec.Gap, 0, input.Canvas.X)
		halfWidth := (input.Canvas.X - gap) / 2
		left := image.Rect(0, 0, halfWidth, input.Canvas.Y)
		right := image.Rect(input.Canvas.X-halfWidth, 0, input.Canvas.X, input.Canvas.Y)
		return pipeline.LayoutResult{
			Primary:   fit(input.PrimarySize, left),
			Secondary: fit(input.SecondarySize, right),
			Alpha:     1,
		}

	case pipeline.LayoutPictureInPicture:
		return pipeline.LayoutResult{
			Primary:   canvas,
			Secondary: inset(input),
			Alpha:     1,
		}

	case pipeline.LayoutOverlay:
		return pipeline.LayoutResult{
			Primary:   canvas,
			Secondary: fit(input.SecondarySize, canvas),
			Alpha:     clampFloat(spec.OverlayAlpha, 0, 1),
		}

	default:
		return pipeline.LayoutResult{
			Primary: canvas,
			Alpha:   1,
		}
	}
}

// inset computes the picture-in-picture rectangle.
func inset(input pipeline.LayoutInput) image.Rectangle {
	spec := input.Spec
	scale := clampFloat(spec.PiPScale, 0.05, 1)

	w := int(math.Round(float64(input.Canvas.X) * scale))
	aspect := aspectOf(input.SecondarySize, input.Canvas)
	h := int(math.Round(float64(w) / aspect))

	// Keep the inset inside the canvas for tall secondaries.
	if maxH := input.Canvas.Y - 2*spec.PiPMargin; h > maxH && maxH > 0 {
		h = maxH
		w = int(math.Round(float64(h) * aspect))
	}

	margin := spec.PiPMargin
	var x, y int
	switch spec.PiPCorner {
	case pipeline.CornerTopLeft:
		x, y = margin, margin
	case pipeline.CornerBottomLeft:
		x, y = margin, input.Canvas.Y-margin-h
	case pipeline.CornerBottomRight:
		x, y = input.Canvas.X-margin-w, input.Canvas.Y-margin-h
	default:
		x, y = input.Canvas.X-margin-w, margin
	}
	return image.Rect(x, y, x+w, y+h)
}

// fit returns the largest rectangle with src's aspect ratio centered in box.
func fit(src image.Point, box image.Rectangle) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || box.Empty() {
		return box
	}
	scale := math.Min(float64(box.Dx())/float64(src.X), float64(box.Dy())/float64(src.Y))
	w := int(math.Round(float64(src.X) * scale))
	h := int(math.Round(float64(src.Y) * scale))
	x := box.Min.X + (box.Dx()-w)/2
	y := box.Min.Y + (box.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func aspectOf(size, fallback image.Point) float64 {
	if size.X > 0 && size.Y > 0 {
		return float64(size.X) / float64(size.Y)
	}
	if fallback.X > 0 && fallback.Y > 0 {
		return float64(fallback.X) / float64(fallback.Y)
	}
	return 1
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
