package entcache_test

import (
	"fmt"

	"github.com/hupe1980/entcache"
)

type actor struct {
	ID      uint64
	Name    string
	Faction string
}

func ExampleNewID() {
	cache := entcache.NewID(func(a *actor) uint64 { return a.ID })

	_ = cache.Rebuild([]*actor{
		{ID: 1, Name: "guard"},
		{ID: 5, Name: "merchant"},
		{ID: 2, Name: "dog"},
	})

	fmt.Println(cache.Len())

	if a, ok := cache.Get(5); ok {
		fmt.Println(a.Name)
	}

	cache.Remove(&actor{ID: 5})
	fmt.Println(cache.Contains(5))
	// Output:
	// 3
	// merchant
	// false
}

func ExampleNewGrouped() {
	cache := entcache.NewGrouped(func(a *actor) string { return a.Faction })

	_ = cache.Rebuild([]*actor{
		{ID: 1, Name: "knight", Faction: "kingdom"},
		{ID: 2, Name: "raider", Faction: "horde"},
		{ID: 3, Name: "archer", Faction: "kingdom"},
	})

	cache.ForEach("kingdom", func(a *actor) bool {
		fmt.Println(a.Name)
		return true
	})
	// Output:
	// knight
	// archer
}

func ExampleDiff() {
	cache := entcache.NewID(func(a *actor) uint64 { return a.ID })

	prev := []*actor{{ID: 1}, {ID: 2}}
	_ = cache.Rebuild(prev)

	// Next tick: actor 1 despawned, actor 3 spawned.
	curr := []*actor{prev[1], {ID: 3}}

	toAdd, toRemove := entcache.Diff(prev, curr)
	for _, a := range toAdd {
		cache.Add(a)
	}
	for _, a := range toRemove {
		cache.Remove(a)
	}

	fmt.Println(cache.Contains(1), cache.Contains(2), cache.Contains(3))
	// Output:
	// false true true
}
