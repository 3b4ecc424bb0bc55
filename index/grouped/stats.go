package grouped

import "sync/atomic"

// counters tracks operation counts without contending on the index lock.
type counters struct {
	rebuilds atomic.Int64
	adds     atomic.Int64
	removes  atomic.Int64
}

// Stats describes the current shape of a grouped index.
type Stats struct {
	// Categories is the number of distinct categories discovered.
	Categories int
	// Entities is the total number of indexed references (same as Len).
	Entities int
	// LargestBucket is the size of the fullest bucket. Remove cost is
	// bounded by this value.
	LargestBucket int
	// Rebuilds, Adds and Removes count operations since construction.
	Rebuilds int64
	Adds     int64
	Removes  int64
}

// Stats returns statistics about the grouped index.
func (g *Grouped[T, C]) Stats() Stats {
	g.mu.RLock()
	total, largest := 0, 0
	for _, b := range g.buckets {
		total += len(b)
		if len(b) > largest {
			largest = len(b)
		}
	}
	cats := len(g.categories)
	g.mu.RUnlock()

	return Stats{
		Categories:    cats,
		Entities:      total,
		LargestBucket: largest,
		Rebuilds:      g.counters.rebuilds.Load(),
		Adds:          g.counters.adds.Load(),
		Removes:       g.counters.removes.Load(),
	}
}
