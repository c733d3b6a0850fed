// Package keylock provides mutexes addressed by key.
package keylock

import (
	"cmp"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map hands out one mutex per key. Entries are dropped once no goroutine holds
// or waits on them. The zero value is ready to use.
type Map[K cmp.Ordered] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// Lock blocks until key is held and returns the matching unlock func.
func (m *Map[K]) Lock(key K) func() {
	e := m.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.release(key, e)
	}
}

// LockPair locks both keys in ascending order. Equal keys are locked once.
func (m *Map[K]) LockPair(a, b K) func() {
	if a == b {
		return m.Lock(a)
	}
	if b < a {
		a, b = b, a
	}
	unlockA := m.Lock(a)
	unlockB := m.Lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}

// Len reports how many keys are currently held or awaited.
func (m *Map[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Map[K]) acquire(key K) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[K]*entry)
	}
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *Map[K]) release(key K, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}
