// Package index provides the shared interface of entcache's two indexing
// strategies.
//
// Entcache supports two strategies:
//
//   - dense: a dense table keyed directly by a numeric identifier
//   - grouped: buckets keyed by a derived classification value
//
// # Strategy Selection
//
// Choose based on access pattern:
//
//   - dense: per-identifier lookup and O(1) removal; memory is O(max id)
//   - grouped: per-category iteration; removal scans one bucket
//
// # Shared Interface
//
// Both strategies satisfy the core Index interface:
//
//	type Index[T any] interface {
//	    Rebuild(entities []*T) error
//	    Add(e *T)
//	    Remove(e *T)
//	    Clear()
//	    Len() int
//	    Snapshot() []*T
//	    ForEachAll(fn Visitor[T])
//	}
//
// Strategy-specific operations (Get, ActiveIDs, ForEach by category) live on
// the concrete types, so calling one on the wrong strategy is a compile
// error rather than a runtime one.
package index
