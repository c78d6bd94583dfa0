package clicksource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/lewtec/apontador/internal/domain"
)

func TestParseClick(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    domain.ClickEvent
		wantErr bool
	}{
		{"source scale", "10 5", domain.ClickEvent{X: 10, Y: 5}, false},
		{"displayed size", "10 5 50 25", domain.ClickEvent{X: 10, Y: 5, DisplayedWidth: 50, DisplayedHeight: 25}, false},
		{"fractional", "10.5  7.25", domain.ClickEvent{X: 10.5, Y: 7.25}, false},
		{"three values", "1 2 3", domain.ClickEvent{}, true},
		{"not a number", "a 2", domain.ClickEvent{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClick(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClick() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && *got != tt.want {
				t.Errorf("ParseClick() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestLine(t *testing.T) {
	var out bytes.Buffer
	src := NewLine(strings.NewReader("10 5 50 25\n\nbogus\nq\n"), &out)
	ctx := context.Background()
	item := domain.Item{ID: "A", SourcePath: "test/a/A.png", Width: 100, Height: 50}

	ev, err := src.RenderAndAwaitClick(ctx, item)
	if err != nil || ev == nil || ev.DisplayedWidth != 50 {
		t.Fatalf("RenderAndAwaitClick() = %+v, %v", ev, err)
	}
	if !strings.Contains(out.String(), "[A] test/a/A.png (100x50) > ") {
		t.Errorf("prompt = %q", out.String())
	}

	for _, name := range []string{"empty line", "invalid line"} {
		ev, err = src.RenderAndAwaitClick(ctx, item)
		if err != nil || ev != nil {
			t.Errorf("%s: RenderAndAwaitClick() = %+v, %v", name, ev, err)
		}
	}
	if !strings.Contains(out.String(), "invalid click") {
		t.Errorf("no feedback for invalid line: %q", out.String())
	}

	if _, err := src.RenderAndAwaitClick(ctx, item); !errors.Is(err, io.EOF) {
		t.Errorf("quit: error = %v, want io.EOF", err)
	}
	if _, err := src.RenderAndAwaitClick(ctx, item); !errors.Is(err, io.EOF) {
		t.Errorf("end of input: error = %v, want io.EOF", err)
	}

	out.Reset()
	src.DrawMarker(ctx, item, 20, 10, 40)
	if out.String() != "marked A at (20, 10) r=40\n" {
		t.Errorf("DrawMarker() wrote %q", out.String())
	}
}
