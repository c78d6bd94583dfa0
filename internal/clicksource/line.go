// Package clicksource has front ends that capture clicks outside of the browser.
package clicksource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lewtec/apontador/internal/domain"
)

// Line reads clicks as text, one per line: "x y" for a click at source scale, or
// "x y width height" for a click on the image displayed at width x height. An empty line
// skips the cycle and "q" ends the session.
type Line struct {
	scanner *bufio.Scanner
	out     io.Writer
}

var _ domain.ClickSource = (*Line)(nil)

// NewLine creates a Line source reading from r and prompting on w
func NewLine(r io.Reader, w io.Writer) *Line {
	return &Line{scanner: bufio.NewScanner(r), out: w}
}

// RenderAndAwaitClick prints the item and waits for a line
func (l *Line) RenderAndAwaitClick(ctx context.Context, item domain.Item) (*domain.ClickEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fmt.Fprintf(l.out, "[%s] %s (%dx%d) > ", item.ID, item.SourcePath, item.Width, item.Height)
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return nil, fmt.Errorf("while reading click: %w", err)
		}
		return nil, io.EOF
	}
	line := strings.TrimSpace(l.scanner.Text())
	if line == "" {
		return nil, nil
	}
	if line == "q" || line == "quit" {
		return nil, io.EOF
	}
	ev, err := ParseClick(line)
	if err != nil {
		fmt.Fprintf(l.out, "invalid click: %v\n", err)
		return nil, nil
	}
	return ev, nil
}

// DrawMarker prints where the click was recorded
func (l *Line) DrawMarker(ctx context.Context, item domain.Item, sourceX, sourceY int, radiusPx int) error {
	_, err := fmt.Fprintf(l.out, "marked %s at (%d, %d) r=%d\n", item.ID, sourceX, sourceY, radiusPx)
	return err
}

// ParseClick parses "x y" or "x y width height"
func ParseClick(line string) (*domain.ClickEvent, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 && len(fields) != 4 {
		return nil, fmt.Errorf("expected 'x y' or 'x y width height', got %d values", len(fields))
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("'%s' is not a number", f)
		}
		values[i] = v
	}
	ev := &domain.ClickEvent{X: values[0], Y: values[1]}
	if len(values) == 4 {
		ev.DisplayedWidth, ev.DisplayedHeight = values[2], values[3]
	}
	return ev, nil
}
