// Package coords converts points between the coordinate space an image was displayed in
// and the pixel space of the source image.
//
// Rounding is half to even (math.RoundToEven): 2.5 maps to 2 and 3.5 maps to 4.
package coords

import "math"

// MapToSource scales a click made on a displayed image back to source pixels.
//
// Each axis is scaled independently by source/displayed. When the displayed size is not
// known (either dimension <= 0) the image is assumed to have been displayed at source
// size. Clicks outside the displayed area are not rejected and map outside the source.
func MapToSource(clickX, clickY, displayedWidth, displayedHeight float64, sourceWidth, sourceHeight int) (int, int) {
	scaleX, scaleY := 1.0, 1.0
	if displayedWidth > 0 && displayedHeight > 0 {
		scaleX = float64(sourceWidth) / displayedWidth
		scaleY = float64(sourceHeight) / displayedHeight
	}
	return int(math.RoundToEven(clickX * scaleX)), int(math.RoundToEven(clickY * scaleY))
}

// MapToDisplay places a source pixel on the displayed image
func MapToDisplay(sourceX, sourceY int, displayedWidth, displayedHeight float64, sourceWidth, sourceHeight int) (float64, float64) {
	if displayedWidth <= 0 || displayedHeight <= 0 || sourceWidth <= 0 || sourceHeight <= 0 {
		return float64(sourceX), float64(sourceY)
	}
	return float64(sourceX) * displayedWidth / float64(sourceWidth), float64(sourceY) * displayedHeight / float64(sourceHeight)
}

// Clamp keeps a point inside [0, width-1] x [0, height-1]
func Clamp(x, y, width, height int) (int, int) {
	return clamp(x, 0, width-1), clamp(y, 0, height-1)
}

// DisplayHeight is the height an image gets when displayed at the given width
// with its aspect ratio kept. Halves round up, the same as imaging.Resize.
func DisplayHeight(displayedWidth, sourceWidth, sourceHeight int) int {
	if sourceWidth <= 0 {
		return sourceHeight
	}
	h := int(math.Floor(float64(displayedWidth)*float64(sourceHeight)/float64(sourceWidth) + 0.5))
	if h < 1 {
		return 1
	}
	return h
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
