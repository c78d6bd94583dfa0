// Package session ties the item set, the annotation store and the traversal cursor of the
// active rater together and turns clicks into recorded annotations.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/lewtec/apontador/internal/coords"
	"github.com/lewtec/apontador/internal/csvio"
	"github.com/lewtec/apontador/internal/cursor"
	"github.com/lewtec/apontador/internal/domain"
	"github.com/lewtec/apontador/internal/store"
)

var (
	// ErrNoActiveRater is returned by operations that need a rater before one was selected
	ErrNoActiveRater = errors.New("no active rater")
	// ErrUnknownItem is returned when a click names an item outside the set
	ErrUnknownItem = errors.New("unknown item")
)

// Progress counts annotated items of the active rater
type Progress struct {
	Total     int
	Done      int
	Remaining int
}

// ImportResult summarizes an ImportCSV call
type ImportResult struct {
	Merged  int
	Added   int
	Skipped int
	// Errors has one entry per skipped row, malformed rows first
	Errors error
}

// Controller is the session of one rater at a time over a fixed item set.
// All methods are safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	items  *domain.ItemSet
	repo   domain.AnnotationRepository
	rater  string
	store  *store.Store
	cursor *cursor.Cursor
}

// New creates a controller without an active rater
func New(items *domain.ItemSet, repo domain.AnnotationRepository) (*Controller, error) {
	if items.Len() == 0 {
		return nil, domain.ErrEmptySet
	}
	return &Controller{items: items, repo: repo}, nil
}

// Items returns the item set of the session
func (c *Controller) Items() *domain.ItemSet {
	return c.items
}

// SwitchRater makes id the active rater, loading its annotations. Switching to the rater
// that is already active does nothing. When loading fails the previous rater stays active.
func (c *Controller) SwitchRater(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil && c.rater == id {
		return nil
	}
	s, err := store.Open(ctx, c.repo, id)
	if err != nil {
		return fmt.Errorf("while switching to rater '%s': %w", id, err)
	}
	c.store = s
	c.cursor = cursor.New(c.items, s)
	c.rater = id
	log.Printf("Session: rater '%s' active at item %d/%d", id, c.cursor.Index()+1, c.items.Len())
	return nil
}

// Rater returns the active rater, or an empty string
func (c *Controller) Rater() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return ""
	}
	return c.rater
}

// SubmitClick maps a click on the current item to source pixels, records it and moves the
// cursor forward. It returns the recorded point.
func (c *Controller) SubmitClick(ctx context.Context, ev domain.ClickEvent) (int, int, error) {
	_, x, y, err := c.SubmitClickFor(ctx, "", ev)
	return x, y, err
}

// SubmitClickFor is SubmitClick on a named item. The cursor moves onto the item, the click
// is recorded against its size and the cursor moves forward, all under one lock. An empty
// itemID means the current item.
func (c *Controller) SubmitClickFor(ctx context.Context, itemID string, ev domain.ClickEvent) (domain.Item, int, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return domain.Item{}, 0, 0, ErrNoActiveRater
	}
	if itemID != "" {
		i := c.items.IndexOf(itemID)
		if i < 0 {
			return domain.Item{}, 0, 0, fmt.Errorf("%w: '%s'", ErrUnknownItem, itemID)
		}
		c.cursor.Jump(i)
	}
	item, err := c.cursor.Current()
	if err != nil {
		return domain.Item{}, 0, 0, err
	}
	x, y := coords.MapToSource(ev.X, ev.Y, ev.DisplayedWidth, ev.DisplayedHeight, item.Width, item.Height)
	x, y = coords.Clamp(x, y, item.Width, item.Height)
	if err := c.store.Record(ctx, item.ID, x, y); err != nil {
		return item, 0, 0, err
	}
	c.cursor.Advance()
	return item, x, y, nil
}

// Undo removes the last recorded annotation and moves the cursor onto its item.
// It returns false when there was nothing to undo.
func (c *Controller) Undo(ctx context.Context) (domain.Annotation, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return domain.Annotation{}, false, ErrNoActiveRater
	}
	ann, ok, err := c.store.UndoLast(ctx)
	if err != nil || !ok {
		return ann, ok, err
	}
	if i := c.items.IndexOf(ann.ItemID); i >= 0 {
		c.cursor.Jump(i)
	}
	return ann, true, nil
}

// Reset clears every annotation of the active rater and rewinds the cursor
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return ErrNoActiveRater
	}
	if err := c.store.Reset(ctx); err != nil {
		return err
	}
	c.cursor.Reset()
	return nil
}

// Jump moves the cursor to position k, clamped to the item range
func (c *Controller) Jump(k int) error {
	return c.move(func(cur *cursor.Cursor) { cur.Jump(k) })
}

// Next moves to the next item not yet annotated
func (c *Controller) Next() error {
	return c.move((*cursor.Cursor).Advance)
}

// Prev moves to the previous item not yet annotated
func (c *Controller) Prev() error {
	return c.move((*cursor.Cursor).Retreat)
}

func (c *Controller) move(fn func(*cursor.Cursor)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor == nil {
		return ErrNoActiveRater
	}
	fn(c.cursor)
	return nil
}

// Current returns the item under the cursor and its position
func (c *Controller) Current() (domain.Item, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor == nil {
		return domain.Item{}, 0, ErrNoActiveRater
	}
	item, err := c.cursor.Current()
	return item, c.cursor.Index(), err
}

// Index returns the cursor position
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor == nil {
		return 0
	}
	return c.cursor.Index()
}

// Progress reports how many items the active rater annotated
func (c *Controller) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := Progress{Total: c.items.Len()}
	if c.store != nil {
		for _, item := range c.items.Items() {
			if c.store.Has(item.ID) {
				p.Done++
			}
		}
	}
	p.Remaining = p.Total - p.Done
	return p
}

// Lookup returns the annotation of the active rater for an item
func (c *Controller) Lookup(itemID string) (domain.Annotation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return domain.Annotation{}, false
	}
	return c.store.Get(itemID)
}

// Annotations returns the annotations of the active rater in insertion order
func (c *Controller) Annotations() []domain.Annotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.All()
}

// ExportCSV encodes the annotations of the active rater
func (c *Controller) ExportCSV() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil, ErrNoActiveRater
	}
	var buf bytes.Buffer
	if err := csvio.Encode(&buf, c.store.All()); err != nil {
		return nil, fmt.Errorf("while encoding csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportCSV merges a CSV table into the annotations of the active rater. Rows that can't
// be parsed or stored are skipped and counted. Annotations not present in the table are
// kept as they are.
func (c *Controller) ImportCSV(ctx context.Context, data []byte) (ImportResult, error) {
	records, malformed, err := csvio.Decode(bytes.NewReader(data))
	if err != nil {
		return ImportResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return ImportResult{}, ErrNoActiveRater
	}

	var errs *multierror.Error
	for _, m := range malformed {
		errs = multierror.Append(errs, m)
	}
	merged, err := c.store.MergeUpsert(ctx, records)
	result := ImportResult{
		Merged:  merged.Merged(),
		Added:   merged.Added,
		Skipped: len(malformed) + merged.Skipped,
	}
	if merged.Errors != nil {
		errs = multierror.Append(errs, merged.Errors.Errors...)
	}
	result.Errors = errs.ErrorOrNil()
	// rows merged before a failure stay applied
	c.cursor.Reset()
	if err != nil {
		return result, err
	}
	log.Printf("Session: imported %d rows into rater '%s', skipped %d", result.Merged, c.rater, result.Skipped)
	return result, nil
}
