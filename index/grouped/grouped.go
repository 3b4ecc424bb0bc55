// Package grouped provides the category-mode index: entities are
// partitioned into buckets keyed by a classification value computed from
// each entity.
package grouped

import (
	"iter"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/entcache/index"
)

// Compile-time check to ensure Grouped satisfies the shared index interface.
var _ index.Index[struct{}] = (*Grouped[struct{}, int])(nil)

// ClassifyFunc computes the category of an entity. It must be pure and
// deterministic for a given entity state: the cache indexes the category
// computed at insertion time and does not detect drift. An entity whose
// category changes must be Removed (under the old category) and re-Added.
type ClassifyFunc[T any, C comparable] func(e *T) C

// parallelRebuildThreshold is the default snapshot size above which Rebuild
// classifies entities in parallel.
const parallelRebuildThreshold = 4096

// Options contains configuration options for the grouped index.
type Options struct {
	// Strict makes Rebuild fail with index.ErrDuplicateRef when the
	// snapshot repeats an entity reference, instead of silently indexing
	// it twice.
	Strict bool

	// ParallelThreshold is the snapshot size at which Rebuild classifies
	// entities in parallel. Zero selects the default; a negative value
	// disables parallel classification.
	ParallelThreshold int

	// Logger receives debug output for rebuilds and clears. Nil disables
	// logging.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options for the grouped
// index.
var DefaultOptions = Options{}

// Grouped is a category-keyed index over externally-owned entities.
//
// Categories are kept in an ordered list with a position map, so bucket
// access never hashes the category more than once per operation. A given
// reference lives in at most one bucket: the one matching its category at
// the time of its most recent Add or Rebuild.
type Grouped[T any, C comparable] struct {
	mu         sync.RWMutex
	classify   ClassifyFunc[T, C]
	categories []C
	catToPos   map[C]int
	buckets    [][]*T
	opts       Options
	logger     *slog.Logger

	counters counters
}

// New creates a new grouped index. The classify function is required.
func New[T any, C comparable](classify ClassifyFunc[T, C], optFns ...func(o *Options)) *Grouped[T, C] {
	if classify == nil {
		panic("entcache/grouped: nil classify func")
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.ParallelThreshold == 0 {
		opts.ParallelThreshold = parallelRebuildThreshold
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Grouped[T, C]{
		classify: classify,
		catToPos: make(map[C]int),
		opts:     opts,
		logger:   logger,
	}
}

// Rebuild wholesale-replaces the index from a full snapshot. Categories are
// discovered in snapshot order, each bucket is pre-sized to the snapshot
// average, and the fresh state is swapped in atomically under the write
// lock. Large snapshots are classified in parallel; the classify function
// must tolerate concurrent calls on distinct entities.
func (g *Grouped[T, C]) Rebuild(entities []*T) error {
	cats := g.classifyAll(entities)

	catToPos := make(map[C]int, len(entities))
	var categories []C
	var seen map[*T]struct{}
	if g.opts.Strict {
		seen = make(map[*T]struct{}, len(entities))
	}
	for i, e := range entities {
		if g.opts.Strict {
			if _, ok := seen[e]; ok {
				return &index.ErrDuplicateRef{Position: i}
			}
			seen[e] = struct{}{}
		}
		if _, ok := catToPos[cats[i]]; !ok {
			catToPos[cats[i]] = len(categories)
			categories = append(categories, cats[i])
		}
	}

	buckets := make([][]*T, len(categories))
	if len(categories) > 0 {
		avg := len(entities) / len(categories)
		for i := range buckets {
			buckets[i] = make([]*T, 0, avg)
		}
	}
	for i, e := range entities {
		pos := catToPos[cats[i]]
		buckets[pos] = append(buckets[pos], e)
	}

	g.mu.Lock()
	g.categories = categories
	g.catToPos = catToPos
	g.buckets = buckets
	g.mu.Unlock()

	g.counters.rebuilds.Add(1)
	g.logger.Debug("grouped index rebuilt",
		"entities", len(entities),
		"categories", len(categories),
	)
	return nil
}

// classifyAll computes the category of every entity, fanning out across
// CPUs when the snapshot is large enough to amortize the goroutines.
func (g *Grouped[T, C]) classifyAll(entities []*T) []C {
	cats := make([]C, len(entities))

	workers := runtime.GOMAXPROCS(0)
	if g.opts.ParallelThreshold < 0 || len(entities) < g.opts.ParallelThreshold || workers < 2 {
		for i, e := range entities {
			cats[i] = g.classify(e)
		}
		return cats
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	chunk := (len(entities) + workers - 1) / workers
	for start := 0; start < len(entities); start += chunk {
		end := min(start+chunk, len(entities))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				cats[i] = g.classify(entities[i])
			}
			return nil
		})
	}
	// Workers write disjoint ranges and never fail.
	_ = eg.Wait()
	return cats
}

// Add inserts a single entity reference into its category's bucket in O(1)
// amortized time. A previously unseen category is appended to the category
// list with a fresh bucket. Add never deduplicates: adding the same
// reference twice produces two bucket entries.
func (g *Grouped[T, C]) Add(e *T) {
	c := g.classify(e)

	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.catToPos[c]
	if !ok {
		pos = len(g.categories)
		g.catToPos[c] = pos
		g.categories = append(g.categories, c)
		g.buckets = append(g.buckets, nil)
	}
	g.buckets[pos] = append(g.buckets[pos], e)
	g.counters.adds.Add(1)
}

// Remove drops a single entity reference from its category's bucket. The
// bucket is located via the classify function and scanned linearly for the
// reference, which is then swap-removed. Cost is O(bucket size), not O(1):
// bucket-local positions are not tracked. Removing an absent entity, or one
// whose category has drifted since it was added, is a no-op.
func (g *Grouped[T, C]) Remove(e *T) {
	c := g.classify(e)

	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.catToPos[c]
	if !ok {
		return
	}
	b := g.buckets[pos]
	for i, x := range b {
		if x == e {
			last := len(b) - 1
			b[i] = b[last]
			b[last] = nil
			g.buckets[pos] = b[:last]
			g.counters.removes.Add(1)
			return
		}
	}
}

// Clear empties the index, including the discovered category list.
func (g *Grouped[T, C]) Clear() {
	g.mu.Lock()
	g.categories = nil
	g.catToPos = make(map[C]int)
	g.buckets = nil
	g.mu.Unlock()

	g.logger.Debug("grouped index cleared")
}

// Len reports the total number of indexed references across all buckets.
func (g *Grouped[T, C]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, b := range g.buckets {
		total += len(b)
	}
	return total
}

// Categories returns a copy of the distinct categories seen, in discovery
// order.
func (g *Grouped[T, C]) Categories() []C {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]C, len(g.categories))
	copy(out, g.categories)
	return out
}

// Snapshot returns a copy of all indexed references, concatenated in
// category-discovery order. The copy is safe to use after the call returns.
func (g *Grouped[T, C]) Snapshot() []*T {
	g.mu.RLock()
	defer g.mu.RUnlock()

	total := 0
	for _, b := range g.buckets {
		total += len(b)
	}
	result := make([]*T, 0, total)
	for _, b := range g.buckets {
		result = append(result, b...)
	}
	return result
}

// ForEach visits every reference in the given category's bucket. The bucket
// is copied under the read lock and visited after the lock is released, so
// the visitor may call this instance's mutators. An unknown category visits
// nothing.
func (g *Grouped[T, C]) ForEach(cat C, fn index.Visitor[T]) {
	var local []*T

	g.mu.RLock()
	if pos, ok := g.catToPos[cat]; ok {
		b := g.buckets[pos]
		local = make([]*T, len(b))
		copy(local, b)
	}
	g.mu.RUnlock()

	for _, e := range local {
		if !fn(e) {
			return
		}
	}
}

// ForEachAll visits every reference in every bucket, in bucket-then-element
// order. The read lock is held for the full visitor duration: the visitor
// must not call this instance's mutators.
func (g *Grouped[T, C]) ForEachAll(fn index.Visitor[T]) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, b := range g.buckets {
		for _, e := range b {
			if !fn(e) {
				return
			}
		}
	}
}

// All returns an iterator over a point-in-time copy of the indexed
// references, in bucket-then-element order. Unlike ForEachAll, the lock is
// released before the first yield, so the loop body may re-enter the index.
func (g *Grouped[T, C]) All() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, e := range g.Snapshot() {
			if !yield(e) {
				return
			}
		}
	}
}
