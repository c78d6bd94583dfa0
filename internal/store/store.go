// Package store keeps the annotations of one rater in memory, in insertion order, and
// writes every change through to an AnnotationRepository before applying it.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hashicorp/go-multierror"
	"github.com/lewtec/apontador/internal/domain"
)

// Store is the annotation store of a single rater. It is not safe for concurrent use.
type Store struct {
	repo    domain.AnnotationRepository
	raterID string
	entries []domain.Annotation
	index   map[string]int
}

// MergeResult summarizes a MergeUpsert
type MergeResult struct {
	Added   int
	Updated int
	Skipped int
	// Errors holds one error per skipped record
	Errors *multierror.Error
}

// Merged is the number of records applied
func (r MergeResult) Merged() int {
	return r.Added + r.Updated
}

// Open loads the annotations of a rater from the repository
func Open(ctx context.Context, repo domain.AnnotationRepository, raterID string) (*Store, error) {
	if raterID == "" {
		return nil, fmt.Errorf("rater id must not be empty")
	}
	anns, err := repo.List(ctx, raterID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load", RaterID: raterID, Err: err}
	}
	s := &Store{repo: repo, raterID: raterID, index: make(map[string]int, len(anns))}
	s.entries = make([]domain.Annotation, 0, len(anns))
	for _, ann := range anns {
		ann.RaterID = raterID
		if i, ok := s.index[ann.ItemID]; ok {
			s.entries[i] = ann
			continue
		}
		s.index[ann.ItemID] = len(s.entries)
		s.entries = append(s.entries, ann)
	}
	log.Printf("Store: loaded %d annotations of rater '%s'", len(s.entries), raterID)
	return s, nil
}

// RaterID returns the rater the store belongs to
func (s *Store) RaterID() string {
	return s.raterID
}

// Record stores the point of an item, overwriting an earlier one in place. The change
// reaches the repository before it is applied in memory.
func (s *Store) Record(ctx context.Context, itemID string, x, y int) error {
	_, err := s.record(ctx, domain.Record{ItemID: itemID, X: x, Y: y})
	return err
}

func (s *Store) record(ctx context.Context, rec domain.Record) (added bool, err error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	if err := s.repo.Upsert(ctx, s.raterID, rec.ItemID, rec.X, rec.Y); err != nil {
		return false, &domain.PersistenceError{Op: "upsert", RaterID: s.raterID, Err: err}
	}
	if i, ok := s.index[rec.ItemID]; ok {
		s.entries[i].X, s.entries[i].Y = rec.X, rec.Y
		return false, nil
	}
	s.index[rec.ItemID] = len(s.entries)
	s.entries = append(s.entries, domain.Annotation{RaterID: s.raterID, ItemID: rec.ItemID, X: rec.X, Y: rec.Y})
	return true, nil
}

// UndoLast removes the most recently appended annotation. It returns false when the
// store is empty.
func (s *Store) UndoLast(ctx context.Context) (domain.Annotation, bool, error) {
	if len(s.entries) == 0 {
		return domain.Annotation{}, false, nil
	}
	last := s.entries[len(s.entries)-1]
	if err := s.repo.Delete(ctx, s.raterID, last.ItemID); err != nil {
		return domain.Annotation{}, false, &domain.PersistenceError{Op: "delete", RaterID: s.raterID, Err: err}
	}
	s.entries = s.entries[:len(s.entries)-1]
	delete(s.index, last.ItemID)
	return last, true, nil
}

// Reset removes every annotation of the rater
func (s *Store) Reset(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx, s.raterID); err != nil {
		return &domain.PersistenceError{Op: "reset", RaterID: s.raterID, Err: err}
	}
	s.entries = nil
	s.reindex()
	log.Printf("Store: cleared annotations of rater '%s'", s.raterID)
	return nil
}

// MergeUpsert applies a batch of records in order, the incoming values winning over
// stored ones. Invalid records are skipped and reported in the result. A persistence
// failure stops the batch; records applied before it stay applied.
func (s *Store) MergeUpsert(ctx context.Context, incoming []domain.Record) (MergeResult, error) {
	var result MergeResult
	defer s.reindex()
	for _, rec := range incoming {
		added, err := s.record(ctx, rec)
		if err != nil {
			var persistErr *domain.PersistenceError
			if errors.As(err, &persistErr) {
				return result, err
			}
			result.Skipped++
			result.Errors = multierror.Append(result.Errors, err)
			continue
		}
		if added {
			result.Added++
		} else {
			result.Updated++
		}
	}
	log.Printf("Store: merged %d records into rater '%s' (%d added, %d skipped)", result.Merged(), s.raterID, result.Added, result.Skipped)
	return result, nil
}

// Has tells whether the item has an annotation
func (s *Store) Has(itemID string) bool {
	_, ok := s.index[itemID]
	return ok
}

// Get returns the annotation of an item
func (s *Store) Get(itemID string) (domain.Annotation, bool) {
	i, ok := s.index[itemID]
	if !ok {
		return domain.Annotation{}, false
	}
	return s.entries[i], true
}

// All returns a copy of the annotations in insertion order
func (s *Store) All() []domain.Annotation {
	ret := make([]domain.Annotation, len(s.entries))
	copy(ret, s.entries)
	return ret
}

// Len returns the number of annotated items
func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.entries))
	for i, ann := range s.entries {
		s.index[ann.ItemID] = i
	}
}
