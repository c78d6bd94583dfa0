package domain

import (
	"context"
)

// Annotation is the point a rater picked on an item, in source pixels
type Annotation struct {
	RaterID string
	ItemID  string
	X       int
	Y       int
}

// Record is a single incoming (item, point) pair of a merge batch
type Record struct {
	ItemID string
	X      int
	Y      int
}

// Validate checks that the record can be stored
func (r Record) Validate() error {
	if r.ItemID == "" {
		return &InvalidRecordError{Record: r, Reason: "empty item id"}
	}
	if r.X < 0 || r.Y < 0 {
		return &InvalidRecordError{Record: r, Reason: "negative coordinate"}
	}
	return nil
}

// AnnotationRepository defines the interface for the medium annotations are persisted to.
// Every implementation keeps at most one row per (rater, item) and lists rows in insertion
// order, where overwriting a row keeps its original position.
type AnnotationRepository interface {
	// List retrieves all annotations of a rater in insertion order
	List(ctx context.Context, raterID string) ([]Annotation, error)

	// Upsert creates or overwrites the annotation of a rater for an item
	Upsert(ctx context.Context, raterID string, itemID string, x, y int) error

	// Delete removes the annotation of a rater for an item
	Delete(ctx context.Context, raterID string, itemID string) error

	// DeleteAll removes every annotation of a rater
	DeleteAll(ctx context.Context, raterID string) error

	// Raters lists the raters that have at least one annotation
	Raters(ctx context.Context) ([]string, error)
}
