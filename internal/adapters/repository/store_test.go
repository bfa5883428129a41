package repository

import (
	"testing"
)

func TestMapStore_GetPut(t *testing.T) {
	s := NewMapStore[string, int]()

	if _, ok := s.Get("a"); ok {
		t.Error("expected empty store")
	}
	s.Put("a", 1)
	s.Put("a", 2)
	s.Put("b", 3)

	if v, ok := s.Get("a"); !ok || v != 2 {
		t.Errorf("expected a=2, got %d %v", v, ok)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 records, got %d", s.Len())
	}
}

func TestMapStore_RangeAllowsReentry(t *testing.T) {
	s := NewMapStore[int, int]()
	for i := 1; i <= 3; i++ {
		s.Put(i, i)
	}

	visited := 0
	s.Range(func(k, v int) bool {
		s.Put(k, v*10)
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("expected range to stop after 2, visited %d", visited)
	}
}
