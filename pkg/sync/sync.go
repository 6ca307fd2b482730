package sync

import "sync"

// TypedSyncMap is a thin generic wrapper around sync.Map. A value of an
// unexpected underlying type loads as the zero value of V.
type TypedSyncMap[K comparable, V any] struct {
	m sync.Map
}

func (m *TypedSyncMap[K, V]) Store(key K, value V) { m.m.Store(key, value) }

func (m *TypedSyncMap[K, V]) Delete(key K) { m.m.Delete(key) }

func (m *TypedSyncMap[K, V]) Load(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		return *new(V), false
	}

	typed, ok := v.(V)
	if !ok {
		return *new(V), false
	}

	return typed, true
}

func (m *TypedSyncMap[K, V]) LoadOrStore(key K, value V) (V, bool) {
	v, loaded := m.m.LoadOrStore(key, value)
	if typed, ok := v.(V); ok {
		return typed, loaded
	}

	return *new(V), loaded
}

func (m *TypedSyncMap[K, V]) Range(fn func(key K, value V) bool) {
	m.m.Range(func(k, v any) bool {
		key, keyOk := k.(K)
		value, valueOk := v.(V)
		if !keyOk || !valueOk {
			return true
		}

		return fn(key, value)
	})
}
