// Package locks provides per-key mutual exclusion for serializing lifecycle
// transitions on individual subscribers.
package locks

import "sync"

// KeyedMutex hands out one mutex per key. Locks for distinct keys never
// contend with each other.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uint]*entry)}
}

// Lock acquires the mutex for key and returns the matching unlock func.
// Entries are dropped once the last holder releases, so the map never grows
// beyond the set of keys currently in flight.
func (k *KeyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
