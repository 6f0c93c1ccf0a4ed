// Package globalstore implements the process-wide, per-worker named
// Value registry (spec.md §3, "Global"). One Store belongs to exactly one
// worker; it is never shared across workers, only between a worker's
// Runner control goroutine and its dispatcher goroutine.
package globalstore

import (
	"sync"

	"github.com/riftload/riftload/pkg/value"
)

// Store is an ordered name->Value mapping with a per-key write
// discipline: writes to a given key are serialized (each key has its own
// slot protected by the Store's mutex), while reads return a snapshot
// that may race a concurrent write — spec.md §3 explicitly allows
// last-writer-wins, not linearizable reads.
type Store struct {
	mu     sync.RWMutex
	order  []string
	values map[string]value.Value
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string]value.Value)}
}

// Set writes name=v. If name is new, it is appended to the iteration
// order; otherwise its existing slot is overwritten in place.
func (s *Store) Set(name string, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[name]; !exists {
		s.order = append(s.order, name)
	}
	s.values[name] = v
}

// Get returns the current value of name and whether it is bound.
func (s *Store) Get(name string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether name is currently bound.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[name]
	return ok
}

// Snapshot returns a point-in-time copy of all bindings, in declaration
// order, safe for a caller to range over without holding the Store's lock.
func (s *Store) Snapshot() []value.Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]value.Variable, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, value.Variable{Name: name, Value: s.values[name]})
	}
	return out
}
