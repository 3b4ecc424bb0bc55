// Package index defines the capability shared by entcache's indexing
// strategies.
package index

import "fmt"

// Visitor is called once per entity during iteration. Returning false stops
// the iteration early.
type Visitor[T any] func(e *T) bool

// Index is the operation set common to both indexing strategies.
//
// Implementations are safe for concurrent use: Rebuild, Add, Remove and
// Clear exclude all other calls; Len, Snapshot and ForEachAll run
// concurrently with each other.
type Index[T any] interface {
	// Rebuild wholesale-replaces the index from a full snapshot of the
	// live working set. The error is always nil unless the implementation
	// was constructed in strict mode.
	Rebuild(entities []*T) error

	// Add inserts a single entity reference.
	Add(e *T)

	// Remove drops a single entity reference. Removing an absent entity
	// is a no-op.
	Remove(e *T)

	// Clear empties the index.
	Clear()

	// Len reports the number of indexed references.
	Len() int

	// Snapshot returns a copy of all indexed references. The copy is safe
	// to use after the call returns.
	Snapshot() []*T

	// ForEachAll visits every indexed reference while holding the
	// instance's read lock. The visitor must not call the instance's
	// mutating operations; the write lock is not re-entrant and the call
	// would hang rather than fail.
	ForEachAll(fn Visitor[T])
}

// ErrDuplicateID reports a repeated identifier in a rebuild snapshot.
// It is returned only by strict-mode identifier indexes.
type ErrDuplicateID struct {
	ID uint64
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate identifier in snapshot: %d", e.ID)
}

// ErrDuplicateRef reports a repeated entity reference in a rebuild snapshot.
// It is returned only by strict-mode grouped indexes.
type ErrDuplicateRef struct {
	Position int // index of the second occurrence within the snapshot
}

func (e *ErrDuplicateRef) Error() string {
	return fmt.Sprintf("duplicate entity reference in snapshot at position %d", e.Position)
}
