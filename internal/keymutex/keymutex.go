// Package keymutex serialises work per key.
package keymutex

import "sync"

// Map holds one mutex per in-flight key. Entries are reference counted and
// removed once the last holder unlocks.
type Map[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New[K comparable]() *Map[K] {
	return &Map[K]{locks: make(map[K]*entry)}
}

// Lock blocks until key is free and returns the matching unlock function.
// The returned function must be called exactly once.
func (m *Map[K]) Lock(key K) func() {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// InFlight returns the number of keys currently locked or awaited.
func (m *Map[K]) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
