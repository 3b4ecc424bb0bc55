package entcache

import (
	"github.com/hupe1980/entcache/index"
	"github.com/hupe1980/entcache/index/dense"
	"github.com/hupe1980/entcache/index/grouped"
)

// Index is re-exported so callers holding either strategy behind the shared
// capability don't need to import the index package.
type Index[T any] = index.Index[T]

// NewID creates an identifier-mode cache: a dense table keyed directly by
// the value the id function extracts from each entity.
//
//	c := entcache.NewID(func(a *Actor) uint64 { return a.ID })
func NewID[T any](id dense.IDFunc[T], optFns ...func(o *dense.Options)) *Dense[T] {
	return dense.New(id, optFns...)
}

// NewGrouped creates a category-mode cache: entities are bucketed by the
// value the classify function computes from each entity.
//
//	c := entcache.NewGrouped(func(a *Actor) Faction { return a.Faction })
func NewGrouped[T any, C comparable](classify grouped.ClassifyFunc[T, C], optFns ...func(o *grouped.Options)) *Grouped[T, C] {
	return grouped.New(classify, optFns...)
}

// Dense is the identifier-mode cache type returned by NewID.
type Dense[T any] = dense.Dense[T]

// Grouped is the category-mode cache type returned by NewGrouped.
type Grouped[T any, C comparable] = grouped.Grouped[T, C]
