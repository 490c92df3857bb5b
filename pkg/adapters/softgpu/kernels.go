package softgpu

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/dualcam/pkg/pipeline"
	"github.com/user/dualcam/pkg/ports"
)

type kernelFunc func(cmd ports.DispatchCommand) error

var kernels = map[ports.Kernel]kernelFunc{
	ports.KernelSideBySide:       sideBySide,
	ports.KernelPictureInPicture: pictureInPicture,
	ports.KernelOverlay:          overlay,
	ports.KernelSplit:            split,
}

// Interpolator returns the resampling filter used at quality q.
func Interpolator(q float64) draw.Interpolator {
	switch {
	case q >= 0.8:
		return draw.CatmullRom
	case q >= 0.55:
		return draw.BiLinear
	case q >= 0.4:
		return draw.ApproxBiLinear
	default:
		return draw.NearestNeighbor
	}
}

// WorkingScale returns the fraction of the destination resolution that
// kernels resample at before the final nearest-neighbour upscale.
func WorkingScale(q float64) float64 {
	if q >= 0.8 {
		return 1
	}
	return math.Max(0.5, math.Round(q*20)/20)
}

func targets(cmd ports.DispatchCommand) (*image.RGBA, image.Image, image.Image, error) {
	out, ok := cmd.Output.(*texture)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: foreign output texture %T", pipeline.ErrTextureCreationFailed, cmd.Output)
	}
	dst, ok := out.img.(*image.RGBA)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: output is not writable", pipeline.ErrTextureCreationFailed)
	}
	prim, ok := cmd.Primary.(*texture)
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: foreign primary texture %T", pipeline.ErrTextureCreationFailed, cmd.Primary)
	}
	var sec image.Image
	if cmd.Secondary != nil {
		st, ok := cmd.Secondary.(*texture)
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: foreign secondary texture %T", pipeline.ErrTextureCreationFailed, cmd.Secondary)
		}
		sec = st.img
	}
	return dst, prim.img, sec, nil
}

func fillBackground(dst *image.RGBA, bg color.Color) {
	if bg == nil {
		bg = color.Black
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
}

// resample scales src into a fresh image of the given size at quality q.
func resample(src image.Image, size image.Point, q float64) *image.RGBA {
	ws := WorkingScale(q)
	work := image.Pt(max(1, int(float64(size.X)*ws)), max(1, int(float64(size.Y)*ws)))

	tmp := image.NewRGBA(image.Rectangle{Max: work})
	Interpolator(q).Scale(tmp, tmp.Bounds(), src, src.Bounds(), draw.Src, nil)
	if work == size {
		return tmp
	}
	full := image.NewRGBA(image.Rectangle{Max: size})
	draw.NearestNeighbor.Scale(full, full.Bounds(), tmp, tmp.Bounds(), draw.Src, nil)
	return full
}

func drawInto(dst *image.RGBA, r image.Rectangle, src image.Image, q float64) {
	if r.Empty() || src == nil {
		return
	}
	img := resample(src, r.Size(), q)
	draw.Draw(dst, r, img, image.Point{}, draw.Src)
}

func sideBySide(cmd ports.DispatchCommand) error {
	dst, prim, sec, err := targets(cmd)
	if err != nil {
		return err
	}
	if sec == nil {
		return pipeline.ErrMissingInput
	}
	p := cmd.Params

	fillBackground(dst, p.Background)
	drawInto(dst, p.PrimaryRect, prim, p.Quality)
	drawInto(dst, p.SecondaryRect, sec, p.Quality)

	if p.BorderWidth > 0 && p.BorderColor != nil {
		x := float64(dst.Bounds().Dx()) / 2
		dc := gg.NewContextForRGBA(dst)
		dc.SetColor(p.BorderColor)
		dc.SetLineWidth(p.BorderWidth)
		dc.DrawLine(x, 0, x, float64(dst.Bounds().Dy()))
		dc.Stroke()
	}
	return nil
}

func pictureInPicture(cmd ports.DispatchCommand) error {
	dst, prim, sec, err := targets(cmd)
	if err != nil {
		return err
	}
	if sec == nil {
		return pipeline.ErrMissingInput
	}
	p := cmd.Params

	fillBackground(dst, p.Background)
	drawInto(dst, p.PrimaryRect, prim, p.Quality)

	r := p.SecondaryRect
	if r.Empty() {
		return nil
	}
	inset := resample(sec, r.Size(), p.Quality)

	x, y := float64(r.Min.X), float64(r.Min.Y)
	w, h := float64(r.Dx()), float64(r.Dy())

	dc := gg.NewContextForRGBA(dst)
	dc.DrawRoundedRectangle(x, y, w, h, p.CornerRadius)
	dc.Clip()
	dc.DrawImage(inset, r.Min.X, r.Min.Y)
	dc.ResetClip()

	if p.BorderWidth > 0 && p.BorderColor != nil {
		dc.SetColor(p.BorderColor)
		dc.SetLineWidth(p.BorderWidth)
		dc.DrawRoundedRectangle(x, y, w, h, p.CornerRadius)
		dc.Stroke()
	}
	return nil
}

func overlay(cmd ports.DispatchCommand) error {
	dst, prim, sec, err := targets(cmd)
	if err != nil {
		return err
	}
	if sec == nil {
		return pipeline.ErrMissingInput
	}
	p := cmd.Params

	fillBackground(dst, p.Background)
	drawInto(dst, p.PrimaryRect, prim, p.Quality)

	r := p.SecondaryRect
	if r.Empty() || p.Alpha <= 0 {
		return nil
	}
	top := resample(sec, r.Size(), p.Quality)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(math.Min(p.Alpha, 1) * 255))})
	draw.DrawMask(dst, r, top, image.Point{}, mask, image.Point{}, draw.Over)
	return nil
}

func split(cmd ports.DispatchCommand) error {
	dst, prim, _, err := targets(cmd)
	if err != nil {
		return err
	}
	p := cmd.Params

	fillBackground(dst, p.Background)
	drawInto(dst, p.PrimaryRect, prim, p.Quality)
	return nil
}
