package dense

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/entcache/index"
)

type actor struct {
	id   uint64
	name string
}

func actorID(a *actor) uint64 { return a.id }

func TestDense(t *testing.T) {
	t.Run("Rebuild", func(t *testing.T) {
		c := New(actorID)

		err := c.Rebuild([]*actor{{id: 1}, {id: 5}, {id: 2}})
		require.NoError(t, err)

		assert.Equal(t, 3, c.Len())
		assert.ElementsMatch(t, []uint64{1, 5, 2}, c.ActiveIDs())
		// Table must cover the largest identifier.
		assert.GreaterOrEqual(t, c.Stats().TableSlots, 6)

		e, ok := c.Get(5)
		require.True(t, ok)
		assert.Equal(t, uint64(5), e.id)

		c.Remove(e)
		assert.ElementsMatch(t, []uint64{1, 2}, c.ActiveIDs())
		_, ok = c.Get(5)
		assert.False(t, ok, "slot 5 must become empty")
	})

	t.Run("RebuildReplacesState", func(t *testing.T) {
		c := New(actorID)

		require.NoError(t, c.Rebuild([]*actor{{id: 1}, {id: 2}}))
		require.NoError(t, c.Rebuild([]*actor{{id: 7}}))

		assert.Equal(t, 1, c.Len())
		assert.False(t, c.Contains(1))
		assert.False(t, c.Contains(2))
		assert.True(t, c.Contains(7))
	})

	t.Run("AddDuplicateIsNoOp", func(t *testing.T) {
		c := New(actorID)
		first := &actor{id: 3, name: "first"}
		second := &actor{id: 3, name: "second"}

		c.Add(first)
		c.Add(second)

		assert.Equal(t, 1, c.Len())
		e, ok := c.Get(3)
		require.True(t, ok)
		assert.Same(t, first, e, "first writer wins on Add")
	})

	t.Run("RemoveSwapPop", func(t *testing.T) {
		c := New(actorID)
		e1, e2, e3 := &actor{id: 1}, &actor{id: 2}, &actor{id: 3}
		c.Add(e1)
		c.Add(e2)
		c.Add(e3)

		c.Remove(e2)

		assert.ElementsMatch(t, []*actor{e1, e3}, c.Snapshot())
		assert.False(t, c.Contains(2), "slot must be cleared")
		_, ok := c.Get(2)
		assert.False(t, ok)

		// Re-adding the removed identifier must succeed.
		c.Add(e2)
		assert.Equal(t, 3, c.Len())
		e, ok := c.Get(2)
		require.True(t, ok)
		assert.Same(t, e2, e)
	})

	t.Run("RemoveLastEntry", func(t *testing.T) {
		c := New(actorID)
		e := &actor{id: 9}
		c.Add(e)

		c.Remove(e)

		assert.Equal(t, 0, c.Len())
		assert.Empty(t, c.ActiveIDs())

		c.Add(e)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("RemoveAbsentIsNoOp", func(t *testing.T) {
		c := New(actorID)
		c.Add(&actor{id: 1})

		c.Remove(&actor{id: 42})

		assert.Equal(t, 1, c.Len())
	})

	t.Run("AddRemoveInverse", func(t *testing.T) {
		c := New(actorID)
		require.NoError(t, c.Rebuild([]*actor{{id: 1}, {id: 2}, {id: 3}}))
		before := c.Snapshot()

		e := &actor{id: 10}
		c.Add(e)
		c.Remove(e)

		assert.Equal(t, len(before), c.Len())
		assert.ElementsMatch(t, before, c.Snapshot())
	})

	t.Run("Clear", func(t *testing.T) {
		c := New(actorID)
		require.NoError(t, c.Rebuild([]*actor{{id: 1}, {id: 2}}))

		c.Clear()

		assert.Equal(t, 0, c.Len())
		assert.Empty(t, c.Snapshot())
		_, ok := c.Get(1)
		assert.False(t, ok)
	})

	t.Run("DuplicateRebuildLastWriteWins", func(t *testing.T) {
		c := New(actorID)
		first := &actor{id: 1, name: "first"}
		second := &actor{id: 1, name: "second"}

		require.NoError(t, c.Rebuild([]*actor{first, {id: 2}, second}))

		// The table keeps the later entry, but the active list retains
		// the earlier identifier as a stale duplicate.
		e, ok := c.Get(1)
		require.True(t, ok)
		assert.Same(t, second, e)
		assert.Equal(t, 3, c.Len())
		assert.Len(t, c.Snapshot(), 3)
	})

	t.Run("StrictRebuildRejectsDuplicates", func(t *testing.T) {
		c := New(actorID, func(o *Options) {
			o.Strict = true
		})

		err := c.Rebuild([]*actor{{id: 1}, {id: 2}, {id: 1}})
		require.Error(t, err)

		var dup *index.ErrDuplicateID
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, uint64(1), dup.ID)
		// The failed rebuild must not have touched existing state.
		assert.Equal(t, 0, c.Len())
	})

	t.Run("CapacityHint", func(t *testing.T) {
		c := New(actorID, func(o *Options) {
			o.CapacityHint = 64
		})

		c.Add(&actor{id: 10})

		st := c.Stats()
		assert.Equal(t, 64, st.TableSlots)
		assert.Equal(t, int64(0), st.Grows, "add within hint must not grow the table")
	})

	t.Run("ForEachAllTableOrder", func(t *testing.T) {
		c := New(actorID)
		c.Add(&actor{id: 5})
		c.Add(&actor{id: 1})
		c.Add(&actor{id: 3})

		var seen []uint64
		c.ForEachAll(func(e *actor) bool {
			seen = append(seen, e.id)
			return true
		})
		assert.Equal(t, []uint64{1, 3, 5}, seen, "table order is ascending identifier order")

		// Snapshot order is active-list order, which differs.
		snap := c.Snapshot()
		require.Len(t, snap, 3)
		assert.Equal(t, uint64(5), snap[0].id)
	})

	t.Run("ForEachAllEarlyStop", func(t *testing.T) {
		c := New(actorID)
		require.NoError(t, c.Rebuild([]*actor{{id: 1}, {id: 2}, {id: 3}}))

		visited := 0
		c.ForEachAll(func(e *actor) bool {
			visited++
			return false
		})
		assert.Equal(t, 1, visited)
	})

	t.Run("ActiveIDsReturnsCopy", func(t *testing.T) {
		c := New(actorID)
		c.Add(&actor{id: 1})
		c.Add(&actor{id: 2})

		ids := c.ActiveIDs()
		ids[0] = 999

		assert.ElementsMatch(t, []uint64{1, 2}, c.ActiveIDs())
	})

	t.Run("AllIsReentrancySafe", func(t *testing.T) {
		c := New(actorID)
		e1, e2 := &actor{id: 1}, &actor{id: 2}
		c.Add(e1)
		c.Add(e2)

		// Mutating inside the loop body must not deadlock: All yields
		// from a copy taken before the lock was released.
		count := 0
		for e := range c.All() {
			c.Remove(e)
			count++
		}
		assert.Equal(t, 2, count)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Stats", func(t *testing.T) {
		c := New(actorID)
		require.NoError(t, c.Rebuild([]*actor{{id: 0}, {id: 4}}))
		c.Add(&actor{id: 2})
		c.Remove(&actor{id: 4})

		st := c.Stats()
		assert.Equal(t, 2, st.Active)
		assert.Equal(t, 5, st.TableSlots)
		assert.Equal(t, 3, st.Holes)
		assert.Equal(t, int64(1), st.Rebuilds)
		assert.Equal(t, int64(1), st.Adds)
		assert.Equal(t, int64(1), st.Removes)
	})
}

func TestDense_Concurrent(t *testing.T) {
	t.Run("ConcurrentAdds", func(t *testing.T) {
		c := New(actorID)

		var eg errgroup.Group
		for i := range 100 {
			eg.Go(func() error {
				c.Add(&actor{id: uint64(i)})
				return nil
			})
		}
		require.NoError(t, eg.Wait())

		assert.Equal(t, 100, c.Len())
		for i := range uint64(100) {
			assert.True(t, c.Contains(i))
		}
	})

	t.Run("ConcurrentRemoves", func(t *testing.T) {
		c := New(actorID)
		entities := make([]*actor, 100)
		for i := range entities {
			entities[i] = &actor{id: uint64(i)}
			c.Add(entities[i])
		}

		var eg errgroup.Group
		for i := 0; i < 50; i++ {
			eg.Go(func() error {
				c.Remove(entities[i])
				return nil
			})
		}
		require.NoError(t, eg.Wait())

		assert.Equal(t, 50, c.Len())
		for i := uint64(50); i < 100; i++ {
			assert.True(t, c.Contains(i))
		}
	})

	t.Run("ConcurrentReadersSteadyState", func(t *testing.T) {
		c := New(actorID)
		require.NoError(t, c.Rebuild([]*actor{{id: 1}, {id: 2}, {id: 3}}))

		var eg errgroup.Group
		for range 32 {
			eg.Go(func() error {
				for range 100 {
					if got := c.Len(); got != 3 {
						t.Errorf("Len() = %d, want 3", got)
					}
					if got := len(c.Snapshot()); got != 3 {
						t.Errorf("len(Snapshot()) = %d, want 3", got)
					}
				}
				return nil
			})
		}
		require.NoError(t, eg.Wait())
	})

	t.Run("MixedReadersAndWriters", func(t *testing.T) {
		c := New(actorID)

		var wg sync.WaitGroup
		for w := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 250 {
					e := &actor{id: uint64(w*250 + i)}
					c.Add(e)
					if i%2 == 0 {
						c.Remove(e)
					}
				}
			}()
		}
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 250 {
					_ = c.Len()
					_ = c.Snapshot()
					c.ForEachAll(func(e *actor) bool { return true })
				}
			}()
		}
		wg.Wait()

		// The triple must be consistent once all mutators are done.
		assert.Equal(t, 500, c.Len())
		assert.Len(t, c.Snapshot(), 500)
		assert.Len(t, c.ActiveIDs(), 500)
	})
}

func TestDense_NilIDFuncPanics(t *testing.T) {
	assert.Panics(t, func() {
		New[actor](nil)
	})
}

func TestDense_ErrorMessages(t *testing.T) {
	err := &index.ErrDuplicateID{ID: 7}
	assert.Equal(t, "duplicate identifier in snapshot: 7", err.Error())
	assert.True(t, errors.As(error(err), new(*index.ErrDuplicateID)))
}
