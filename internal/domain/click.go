package domain

import "context"

// ClickEvent is a click reported by a front end, relative to the image as it was displayed.
// A zero DisplayedWidth or DisplayedHeight means the front end did not report its size.
type ClickEvent struct {
	X               float64
	Y               float64
	DisplayedWidth  float64
	DisplayedHeight float64
}

// ClickSource is a front end able to show an item and capture where the rater clicked
type ClickSource interface {
	// RenderAndAwaitClick shows the item and returns the click, or nil if there was none
	RenderAndAwaitClick(ctx context.Context, item Item) (*ClickEvent, error)

	// DrawMarker gives visual feedback of a point recorded in source coordinates
	DrawMarker(ctx context.Context, item Item, sourceX, sourceY int, radiusPx int) error
}
