// Package cursor tracks which item of an ItemSet a rater is looking at.
package cursor

import (
	"github.com/lewtec/apontador/internal/domain"
)

// DoneSet tells which items already have an annotation
type DoneSet interface {
	Has(itemID string) bool
}

// Cursor is a position over an ordered ItemSet that skips annotated items when moving
// forward or backward. It is not safe for concurrent use.
type Cursor struct {
	items *domain.ItemSet
	done  DoneSet
	index int
}

// New creates a cursor positioned at the first item not yet done, or at 0 when every item is done
func New(items *domain.ItemSet, done DoneSet) *Cursor {
	c := &Cursor{items: items, done: done}
	c.Reset()
	return c
}

// Reset moves the cursor back to the first item not yet done
func (c *Cursor) Reset() {
	c.index = 0
	for i := 0; i < c.items.Len(); i++ {
		if !c.isDone(i) {
			c.index = i
			return
		}
	}
}

// Index returns the current position
func (c *Cursor) Index() int {
	return c.index
}

// Current returns the item under the cursor
func (c *Cursor) Current() (domain.Item, error) {
	if c.items.Len() == 0 {
		return domain.Item{}, domain.ErrEmptySet
	}
	return c.items.At(c.index), nil
}

// Advance moves to the next item not yet done. When there is none the cursor steps
// forward by one and stops at the last item, even if that one is done.
func (c *Cursor) Advance() {
	n := c.items.Len()
	if n == 0 {
		return
	}
	for i := c.index + 1; i < n; i++ {
		if !c.isDone(i) {
			c.index = i
			return
		}
	}
	c.index = min(c.index+1, n-1)
}

// Retreat moves to the previous item not yet done, stepping back by one and stopping
// at the first item when there is none.
func (c *Cursor) Retreat() {
	if c.items.Len() == 0 {
		return
	}
	for i := c.index - 1; i >= 0; i-- {
		if !c.isDone(i) {
			c.index = i
			return
		}
	}
	c.index = max(c.index-1, 0)
}

// Jump moves to position k, clamped to the item range, whether or not it is done
func (c *Cursor) Jump(k int) {
	n := c.items.Len()
	if n == 0 {
		return
	}
	c.index = min(max(k, 0), n-1)
}

func (c *Cursor) isDone(i int) bool {
	if c.done == nil {
		return false
	}
	return c.done.Has(c.items.At(i).ID)
}
