package domain

import (
	"errors"
	"fmt"
)

// ErrEmptySet is returned when there is nothing to annotate
var ErrEmptySet = errors.New("no items to annotate")

// MalformedRecordError describes an imported row that could not be turned into a Record
type MalformedRecordError struct {
	Line   int
	Column string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("line %d: column %s: %s", e.Line, e.Column, e.Reason)
}

// InvalidRecordError is returned for records that can't be stored as annotations
type InvalidRecordError struct {
	Record Record
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record for item '%s' (%d, %d): %s", e.Record.ItemID, e.Record.X, e.Record.Y, e.Reason)
}

// PersistenceError wraps a failure of the backing medium. The operation that returned it
// was not committed.
type PersistenceError struct {
	Op      string
	RaterID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("while persisting %s for rater '%s': %s", e.Op, e.RaterID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
