// Package entcache provides a concurrent, in-memory index over
// externally-owned entities.
//
// Entcache does not own the entities it indexes: it stores non-owning
// pointers supplied by the caller and never allocates or frees an entity.
// The caller rebuilds the index from an authoritative snapshot or patches it
// incrementally with Add/Remove as entities come and go.
//
// # Quick Start
//
// Identifier mode (dense table keyed by a small non-negative id):
//
//	c := entcache.NewID(func(a *Actor) uint64 { return a.ID })
//	_ = c.Rebuild(actors)        // full replace from a snapshot
//	c.Add(spawned)               // incremental, O(1)
//	c.Remove(despawned)          // incremental, O(1) swap-removal
//	for _, a := range c.Snapshot() { ... }
//
// Grouped mode (buckets keyed by a derived category):
//
//	c := entcache.NewGrouped(func(a *Actor) Faction { return a.Faction })
//	_ = c.Rebuild(actors)
//	c.ForEach(FactionRed, func(a *Actor) bool { ... ; return true })
//
// # Strategy Selection
//
// Choose based on how the working set is accessed:
//
//   - dense: lookup/iteration by numeric identifier; O(1) add, remove and
//     get without hashing. Table cost is O(max id), so identifiers should be
//     small relative to the active set.
//   - grouped: iteration by classification value (faction, zone, state).
//     Remove is O(bucket size); there is no per-entity position tracking.
//
// The two strategies are separate types constructed by NewID and NewGrouped.
// A cache instance is one strategy for its whole lifetime; operations of the
// other strategy do not exist on it.
//
// # Incremental Updates
//
// When the owner produces periodic full snapshots, Diff computes the
// add/remove delta between two of them:
//
//	toAdd, toRemove := entcache.Diff(prev, curr)
//	for _, e := range toAdd {
//	    c.Add(e)
//	}
//	for _, e := range toRemove {
//	    c.Remove(e)
//	}
//
// # Concurrency
//
// Every cache instance is safe for concurrent use. Mutators (Rebuild, Add,
// Remove, Clear) take a write lock; readers (Len, Snapshot, Get, ForEach,
// ForEachAll, ActiveIDs) take a read lock and proceed concurrently.
// ForEachAll holds the read lock for the visitor's duration, so the visitor
// must not call the same instance's mutators. ForEach and All copy under the
// lock and visit outside it, so their visitors may re-enter freely.
//
// # Caller Obligations
//
//   - Remove an entity from the cache before destroying it; the cache holds
//     a raw pointer and cannot detect a dead referent.
//   - Keep identifiers unique within a Rebuild snapshot, or enable the
//     Strict option to have duplicates rejected.
//   - Remove-then-Add an entity whose category changes; the cache indexes
//     the category computed at insertion time and does not detect drift.
package entcache
