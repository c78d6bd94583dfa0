package annotation

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lewtec/apontador/internal/coords"
	"github.com/lucasb-eyer/go-colorful"
)

// MarkerStyle is how a recorded point is drawn on a displayed image
type MarkerStyle struct {
	Fill      colorful.Color
	FillAlpha float64
	Stroke    colorful.Color
	StrokePx  int
}

func MarkerStyleFromConfig(display ConfigDisplay) (MarkerStyle, error) {
	fill, err := colorful.Hex(display.Fill)
	if err != nil {
		return MarkerStyle{}, err
	}
	stroke, err := colorful.Hex(display.Stroke)
	if err != nil {
		return MarkerStyle{}, err
	}
	return MarkerStyle{Fill: fill, FillAlpha: display.FillAlpha, Stroke: stroke, StrokePx: display.StrokePx}, nil
}

// RenderDisplay scales img to width keeping the aspect ratio. When mark is not nil a
// circle of radius display pixels is drawn around it; mark is in source pixels.
func RenderDisplay(img image.Image, width int, mark *image.Point, radius int, style MarkerStyle) *image.NRGBA {
	bounds := img.Bounds()
	var dst *image.NRGBA
	if width <= 0 || width == bounds.Dx() {
		dst = imaging.Clone(img)
	} else {
		dst = imaging.Resize(img, width, coords.DisplayHeight(width, bounds.Dx(), bounds.Dy()), imaging.Lanczos)
	}
	if mark != nil {
		dw, dh := dst.Bounds().Dx(), dst.Bounds().Dy()
		cx, cy := coords.MapToDisplay(mark.X, mark.Y, float64(dw), float64(dh), bounds.Dx(), bounds.Dy())
		DrawCircle(dst, cx, cy, float64(radius), style)
	}
	return dst
}

// DrawCircle blends a filled, stroked circle centered at (cx, cy) into dst
func DrawCircle(dst *image.NRGBA, cx, cy, radius float64, style MarkerStyle) {
	stroke := float64(style.StrokePx)
	b := dst.Bounds()
	x0 := max(int(math.Floor(cx-radius-1)), b.Min.X)
	x1 := min(int(math.Ceil(cx+radius+1)), b.Max.X-1)
	y0 := max(int(math.Floor(cy-radius-1)), b.Min.Y)
	y1 := min(int(math.Ceil(cy+radius+1)), b.Max.Y-1)
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			if d > radius {
				continue
			}
			if d > radius-stroke {
				dst.Set(x, y, style.Stroke.Clamped())
				continue
			}
			base, _ := colorful.MakeColor(dst.At(x, y))
			dst.Set(x, y, base.BlendRgb(style.Fill, style.FillAlpha).Clamped())
		}
	}
}
