package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/lewtec/apontador/internal/domain"
)

// RunOptions controls Run
type RunOptions struct {
	// Radius of the marker drawn after each recorded click, in display pixels
	Radius int
	// KeepGoing keeps asking for clicks after every item is annotated
	KeepGoing bool
}

// Run drives a ClickSource: it shows the current item, records the click it reports and
// draws a marker on the recorded point. It returns nil once every item is annotated or
// when the source reports io.EOF.
func Run(ctx context.Context, c *Controller, src domain.ClickSource, opts RunOptions) error {
	if c.Rater() == "" {
		return ErrNoActiveRater
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !opts.KeepGoing && c.Progress().Remaining == 0 {
			log.Printf("Run: every item annotated by rater '%s'", c.Rater())
			return nil
		}
		item, _, err := c.Current()
		if err != nil {
			return err
		}
		ev, err := src.RenderAndAwaitClick(ctx, item)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("while waiting for a click on '%s': %w", item.ID, err)
		}
		if ev == nil {
			continue
		}
		x, y, err := c.SubmitClick(ctx, *ev)
		if err != nil {
			return err
		}
		if err := src.DrawMarker(ctx, item, x, y, opts.Radius); err != nil {
			return fmt.Errorf("while drawing marker on '%s': %w", item.ID, err)
		}
	}
}
