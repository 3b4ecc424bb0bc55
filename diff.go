package entcache

// Diff computes the delta between two full snapshots of a working set:
// toAdd holds references present in next but not prev, toRemove holds
// references present in prev but not next. Feed the results to Add and
// Remove to patch a cache incrementally instead of rebuilding:
//
//	toAdd, toRemove := entcache.Diff(prev, curr)
//	for _, e := range toAdd {
//	    c.Add(e)
//	}
//	for _, e := range toRemove {
//	    c.Remove(e)
//	}
//	prev = curr
//
// Both slices are compared by pointer identity and must not contain
// duplicates. Output order follows input order.
func Diff[T any](prev, next []*T) (toAdd, toRemove []*T) {
	remaining := make(map[*T]struct{}, len(prev))
	for _, e := range prev {
		remaining[e] = struct{}{}
	}
	for _, e := range next {
		if _, ok := remaining[e]; ok {
			delete(remaining, e)
		} else {
			toAdd = append(toAdd, e)
		}
	}
	for _, e := range prev {
		if _, ok := remaining[e]; ok {
			toRemove = append(toRemove, e)
		}
	}
	return toAdd, toRemove
}
