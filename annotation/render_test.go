package annotation

import (
	"image"
	"image/color"
	"testing"

	"github.com/lewtec/apontador/internal/coords"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func testStyle(t *testing.T) MarkerStyle {
	t.Helper()
	style, err := MarkerStyleFromConfig(ConfigDisplay{Fill: "#ffd700", FillAlpha: 0.2, Stroke: "#ff0000", StrokePx: 2})
	if err != nil {
		t.Fatalf("MarkerStyleFromConfig() error = %v", err)
	}
	return style
}

func TestRenderDisplay(t *testing.T) {
	black := color.NRGBA{A: 255}
	src := solidImage(200, 100, black)
	style := testStyle(t)

	t.Run("resizes keeping aspect ratio", func(t *testing.T) {
		out := RenderDisplay(src, 400, nil, 40, style)
		if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 200 {
			t.Errorf("bounds = %v, want 400x200", out.Bounds())
		}
	})

	t.Run("draws marker at the mapped point", func(t *testing.T) {
		// source (100, 50) is display (200, 100) at width 400
		out := RenderDisplay(src, 400, &image.Point{X: 100, Y: 50}, 20, style)

		center := out.NRGBAAt(200, 100)
		if center.R == 0 || center.R == 255 {
			t.Errorf("center = %+v, want fill blended over black", center)
		}
		ring := out.NRGBAAt(200+19, 100)
		if ring.R != 255 || ring.G != 0 {
			t.Errorf("ring = %+v, want stroke colour", ring)
		}
		outside := out.NRGBAAt(200+30, 100)
		if outside.R != 0 || outside.G != 0 || outside.B != 0 {
			t.Errorf("outside = %+v, want untouched", outside)
		}
	})

	t.Run("does not touch the source", func(t *testing.T) {
		RenderDisplay(src, 200, &image.Point{X: 10, Y: 10}, 20, style)
		if src.NRGBAAt(10, 10) != black {
			t.Error("RenderDisplay() modified the source image")
		}
	})

	t.Run("marker near the edge is clipped", func(t *testing.T) {
		out := RenderDisplay(src, 200, &image.Point{X: 0, Y: 0}, 60, style)
		if out.Bounds().Dx() != 200 {
			t.Errorf("bounds = %v", out.Bounds())
		}
	})
}

func TestETag(t *testing.T) {
	a := ETag("abc", 900, 40, "-")
	if a != ETag("abc", 900, 40, "-") {
		t.Error("ETag() is not stable")
	}
	if a == ETag("abc", 900, 40, "(1,2)") {
		t.Error("ETag() ignores the marker")
	}
	if a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("ETag() = %s, want quoted", a)
	}
}

func TestRenderDisplay_HeightMatchesPage(t *testing.T) {
	// 900 * 101 / 200 = 454.5
	src := solidImage(200, 101, color.NRGBA{A: 255})
	out := RenderDisplay(src, 900, nil, 40, testStyle(t))
	if want := coords.DisplayHeight(900, 200, 101); out.Bounds().Dy() != want {
		t.Errorf("rendered height = %d, page height = %d", out.Bounds().Dy(), want)
	}
}
