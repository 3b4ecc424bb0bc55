// Package dense provides the identifier-mode index: a dense table where an
// entity's numeric identifier is used directly as the array position.
package dense

import (
	"iter"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/entcache/index"
)

// Compile-time check to ensure Dense satisfies the shared index interface.
var _ index.Index[struct{}] = (*Dense[struct{}])(nil)

// IDFunc extracts the numeric identifier from an entity. Identifiers are
// used as table positions, so they should stay small relative to the active
// set: table memory is O(max id), not O(count).
type IDFunc[T any] func(e *T) uint64

// Options contains configuration options for the dense index.
type Options struct {
	// Strict makes Rebuild fail with index.ErrDuplicateID when the
	// snapshot repeats an identifier, instead of silently keeping the
	// last entry.
	Strict bool

	// CapacityHint pre-sizes the table for the expected maximum
	// identifier. Zero means no pre-sizing.
	CapacityHint int

	// Logger receives debug output for rebuilds and clears. Nil disables
	// logging.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the dense
// index.
var DefaultOptions = Options{}

// Dense is an identifier-keyed index over externally-owned entities.
//
// Internally it maintains three structures that move together under one
// lock: the table (slot per identifier, nil marking an empty slot), the
// compact active-identifier list, and the identifier-to-position map that
// makes swap-removal O(1). An occupancy bitmap mirrors the live table slots
// so whole-table iteration skips holes without scanning nil runs.
//
// Dense never owns the referenced entities. Callers must Remove an entity
// before destroying it; a stored pointer to a destroyed entity is undefined
// behavior on the caller's side, not detectable here.
type Dense[T any] struct {
	mu       sync.RWMutex
	id       IDFunc[T]
	table    []*T
	active   []uint64
	idToPos  map[uint64]int
	occupied *roaring64.Bitmap
	opts     Options
	logger   *slog.Logger

	counters counters
}

// New creates a new dense index. The id function is required and must be
// deterministic for the lifetime of the instance.
func New[T any](id IDFunc[T], optFns ...func(o *Options)) *Dense[T] {
	if id == nil {
		panic("entcache/dense: nil id func")
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Dense[T]{
		id:       id,
		table:    make([]*T, opts.CapacityHint),
		idToPos:  make(map[uint64]int),
		occupied: roaring64.New(),
		opts:     opts,
		logger:   logger,
	}
}

// Rebuild wholesale-replaces the index from a full snapshot. The fresh
// state is built without holding the lock and swapped in atomically, so
// readers observe either the old index or the new one, never a mix.
//
// Duplicate identifiers within the snapshot are last-write-wins in the
// table, but the earlier identifier stays in the active list as a stale
// duplicate and inflates Len. Snapshot uniqueness is a caller obligation;
// enable Options.Strict to have Rebuild reject violations instead.
func (d *Dense[T]) Rebuild(entities []*T) error {
	table := make([]*T, 0, len(entities))
	active := make([]uint64, 0, len(entities))
	idToPos := make(map[uint64]int, len(entities))
	occupied := roaring64.New()

	for _, e := range entities {
		id := d.id(e)
		if d.opts.Strict {
			if _, ok := idToPos[id]; ok {
				return &index.ErrDuplicateID{ID: id}
			}
		}
		if id >= uint64(len(table)) {
			table = append(table, make([]*T, id+1-uint64(len(table)))...)
		}
		table[id] = e
		idToPos[id] = len(active)
		active = append(active, id)
		occupied.Add(id)
	}

	d.mu.Lock()
	d.table = table
	d.active = active
	d.idToPos = idToPos
	d.occupied = occupied
	d.mu.Unlock()

	d.counters.rebuilds.Add(1)
	d.logger.Debug("dense index rebuilt",
		"entities", len(entities),
		"table_slots", len(table),
	)
	return nil
}

// Add inserts a single entity reference in O(1) amortized time (amortized
// due to occasional table growth). If the identifier is already present the
// call is a no-op; the existing reference wins.
func (d *Dense[T]) Add(e *T) {
	id := d.id(e)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.idToPos[id]; ok {
		return
	}
	if id >= uint64(len(d.table)) {
		d.table = append(d.table, make([]*T, id+1-uint64(len(d.table)))...)
		d.counters.grows.Add(1)
	}
	d.table[id] = e
	d.idToPos[id] = len(d.active)
	d.active = append(d.active, id)
	d.occupied.Add(id)
	d.counters.adds.Add(1)
}

// Remove drops a single entity reference in O(1) via swap-removal: the last
// active identifier moves into the removed entry's position and the list
// shrinks by one. Removing an absent entity is a no-op.
func (d *Dense[T]) Remove(e *T) {
	id := d.id(e)

	d.mu.Lock()
	defer d.mu.Unlock()

	pos, ok := d.idToPos[id]
	if !ok {
		return
	}
	last := len(d.active) - 1
	backID := d.active[last]
	d.active[pos] = backID
	d.active = d.active[:last]
	d.idToPos[backID] = pos
	delete(d.idToPos, id)
	if id < uint64(len(d.table)) {
		d.table[id] = nil
	}
	d.occupied.Remove(id)
	d.counters.removes.Add(1)
}

// Clear empties the index. The table is released, not shrunk in place.
func (d *Dense[T]) Clear() {
	d.mu.Lock()
	d.table = nil
	d.active = nil
	d.idToPos = make(map[uint64]int)
	d.occupied = roaring64.New()
	d.mu.Unlock()

	d.logger.Debug("dense index cleared")
}

// Len reports the number of active identifiers.
func (d *Dense[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.active)
}

// Get returns the entity stored under id, if any.
func (d *Dense[T]) Get(id uint64) (*T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if id >= uint64(len(d.table)) || d.table[id] == nil {
		return nil, false
	}
	return d.table[id], true
}

// Contains reports whether id currently occupies a table slot.
func (d *Dense[T]) Contains(id uint64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.occupied.Contains(id)
}

// Snapshot returns a copy of all live references in active-identifier
// order. The copy is safe to use after the call returns.
func (d *Dense[T]) Snapshot() []*T {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*T, 0, len(d.active))
	for _, id := range d.active {
		if id < uint64(len(d.table)) && d.table[id] != nil {
			result = append(result, d.table[id])
		}
	}
	return result
}

// ActiveIDs returns a copy of the active-identifier list. Order is
// insertion order, perturbed by swap-removals.
func (d *Dense[T]) ActiveIDs() []uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]uint64, len(d.active))
	copy(out, d.active)
	return out
}

// ForEachAll visits every live table slot in ascending identifier order
// (table order, not active-list order). The read lock is held for the full
// visitor duration: the visitor must not call this instance's mutators.
func (d *Dense[T]) ForEachAll(fn index.Visitor[T]) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	it := d.occupied.Iterator()
	for it.HasNext() {
		id := it.Next()
		if e := d.table[id]; e != nil {
			if !fn(e) {
				return
			}
		}
	}
}

// All returns an iterator over a point-in-time copy of the live references,
// in active-identifier order. Unlike ForEachAll, the lock is released
// before the first yield, so the loop body may re-enter the index.
func (d *Dense[T]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, e := range d.Snapshot() {
			if !yield(e) {
				return
			}
		}
	}
}
