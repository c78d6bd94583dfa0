package domain

import "fmt"

// Item represents an image to be annotated
type Item struct {
	ID          string
	SourcePath  string
	Width       int
	Height      int
	OverlayPath string
}

// ItemSet is the ordered sequence of items a rater walks through
type ItemSet struct {
	items []Item
	index map[string]int
}

// NewItemSet builds an ItemSet, rejecting duplicated ids and non-positive sizes
func NewItemSet(items []Item) (*ItemSet, error) {
	set := &ItemSet{
		items: make([]Item, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("item %d (%s) has an empty id", i, item.SourcePath)
		}
		if item.Width <= 0 || item.Height <= 0 {
			return nil, fmt.Errorf("item '%s' has invalid dimensions %dx%d", item.ID, item.Width, item.Height)
		}
		if prev, ok := set.index[item.ID]; ok {
			return nil, fmt.Errorf("item id '%s' is used by both '%s' and '%s'", item.ID, set.items[prev].SourcePath, item.SourcePath)
		}
		set.items[i] = item
		set.index[item.ID] = i
	}
	return set, nil
}

// Len returns the number of items
func (s *ItemSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the item at position i
func (s *ItemSet) At(i int) Item {
	return s.items[i]
}

// IndexOf returns the position of an item id, or -1
func (s *ItemSet) IndexOf(id string) int {
	if s == nil {
		return -1
	}
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Get retrieves an item by its id
func (s *ItemSet) Get(id string) (Item, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return Item{}, false
	}
	return s.items[i], true
}

// Items returns a copy of the ordered items
func (s *ItemSet) Items() []Item {
	if s == nil {
		return nil
	}
	ret := make([]Item, len(s.items))
	copy(ret, s.items)
	return ret
}
