// Package store declares the keyed record store the domain components keep
// their state in. Implementations live with the adapters.
package store

import (
	"cmp"
	"context"
	"slices"
)

// KeyValue is a keyed record store with get/put semantics. Records are values;
// callers mutate a copy and Put it back.
type KeyValue[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V)
	Len() int
	// Range calls fn for each record until fn returns false. Order is unspecified.
	Range(fn func(key K, value V) bool)
}

// SortedValues returns every value of kv ordered by key.
func SortedValues[K cmp.Ordered, V any](_ context.Context, kv KeyValue[K, V]) []V {
	type pair struct {
		k K
		v V
	}
	pairs := make([]pair, 0, kv.Len())
	kv.Range(func(k K, v V) bool {
		pairs = append(pairs, pair{k, v})
		return true
	})
	slices.SortFunc(pairs, func(a, b pair) int { return cmp.Compare(a.k, b.k) })
	out := make([]V, len(pairs))
	for i, p := range pairs {
		out[i] = p.v
	}
	return out
}
