// Package repository provides the keyed stores injected into the domain
// components and the predictor standings.
package repository

import (
	"sync"

	"github.com/okian/moodmarket/internal/domain/store"
)

var _ store.KeyValue[string, int] = (*MapStore[string, int])(nil)

// MapStore is an in-memory store.KeyValue backed by a map.
type MapStore[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewMapStore creates an empty map-backed store.
func NewMapStore[K comparable, V any]() *MapStore[K, V] {
	return &MapStore[K, V]{data: make(map[K]V)}
}

// Get returns the record stored under key.
func (s *MapStore[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Put stores value under key, replacing any previous record.
func (s *MapStore[K, V]) Put(key K, value V) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
}

// Len returns the number of records.
func (s *MapStore[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Range iterates over a snapshot of the records so fn may call back into s.
func (s *MapStore[K, V]) Range(fn func(key K, value V) bool) {
	s.mu.RLock()
	keys := make([]K, 0, len(s.data))
	vals := make([]V, 0, len(s.data))
	for k, v := range s.data {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	s.mu.RUnlock()

	for i := range keys {
		if !fn(keys[i], vals[i]) {
			return
		}
	}
}
