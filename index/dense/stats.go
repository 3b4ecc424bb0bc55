package dense

import "sync/atomic"

// counters tracks operation counts without contending on the index lock.
type counters struct {
	rebuilds atomic.Int64
	adds     atomic.Int64
	removes  atomic.Int64
	grows    atomic.Int64
}

// Stats describes the current shape of a dense index.
type Stats struct {
	// Active is the number of active identifiers (same as Len).
	Active int
	// TableSlots is the current table size, i.e. max seen identifier + 1.
	TableSlots int
	// Holes is the number of empty slots inside the table.
	Holes int
	// Rebuilds, Adds, Removes and Grows count operations since
	// construction. Grows counts incremental table resizes only.
	Rebuilds int64
	Adds     int64
	Removes  int64
	Grows    int64
}

// Stats returns statistics about the dense index.
func (d *Dense[T]) Stats() Stats {
	d.mu.RLock()
	live := int(d.occupied.GetCardinality())
	slots := len(d.table)
	active := len(d.active)
	d.mu.RUnlock()

	return Stats{
		Active:     active,
		TableSlots: slots,
		Holes:      slots - live,
		Rebuilds:   d.counters.rebuilds.Load(),
		Adds:       d.counters.adds.Load(),
		Removes:    d.counters.removes.Load(),
		Grows:      d.counters.grows.Load(),
	}
}
