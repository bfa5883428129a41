package store

import (
	"context"
	"slices"
	"testing"
)

type mapKV map[uint64]string

func (m mapKV) Get(k uint64) (string, bool) {
	v, ok := m[k]
	return v, ok
}

func (m mapKV) Put(k uint64, v string) { m[k] = v }
func (m mapKV) Len() int               { return len(m) }

func (m mapKV) Range(fn func(uint64, string) bool) {
	for k, v := range m {
		if !fn(k, v) {
			return
		}
	}
}

func TestSortedValues(t *testing.T) {
	kv := mapKV{}
	kv.Put(3, "c")
	kv.Put(1, "a")
	kv.Put(2, "b")

	got := SortedValues[uint64, string](context.Background(), kv)
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected order %v", got)
	}
	if empty := SortedValues[uint64, string](context.Background(), mapKV{}); len(empty) != 0 {
		t.Errorf("expected no values, got %v", empty)
	}
}
