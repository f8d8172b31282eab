// Package connection holds the in-memory MAIN/FROM/TO connection slots.
// Connections live for the process lifetime only; a restart requires
// re-authorizing each slot.
package connection

import (
	"sync"

	"qbridge/internal/domain"
)

// Store guards the three named connection slots. It replaces process-global
// mutable state with an injected object so concurrent requests observe a
// consistent snapshot per read.
type Store struct {
	mu    sync.RWMutex
	slots map[domain.ConnectionSlot]domain.Connection
}

// NewStore creates an empty Store with all three slots disconnected.
func NewStore() *Store {
	return &Store{slots: make(map[domain.ConnectionSlot]domain.Connection, 3)}
}

// Get returns a copy of the connection in the given slot.
func (s *Store) Get(slot domain.ConnectionSlot) domain.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[slot]
}

// Set replaces the connection in the given slot.
func (s *Store) Set(slot domain.ConnectionSlot, conn domain.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = conn
}

// Clear blanks the given slot.
func (s *Store) Clear(slot domain.ConnectionSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, slot)
}
