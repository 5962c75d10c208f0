// Package ledger holds the append-only step-id sets that make progression
// at-most-once per step.
package ledger

import "sync"

// Set is an append-only set of step ids. Entries are never removed.
type Set struct {
	mu    sync.RWMutex
	seen  map[string]struct{}
	order []string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add records id and reports whether it was newly added.
// An empty id is never recorded.
func (s *Set) Add(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Has reports whether id was recorded.
func (s *Set) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of recorded ids.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// IDs returns the recorded ids in insertion order.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Triggers groups the ledgers of one lesson session.
type Triggers struct {
	// Requested holds steps whose narration was requested.
	Requested *Set
	// Crossed holds steps whose pause mark was reached (or whose video ended first).
	Crossed *Set
	// Acknowledged holds steps for which STEP_COMPLETED was sent.
	Acknowledged *Set
}

// NewTriggers returns empty ledgers for a new session.
func NewTriggers() *Triggers {
	return &Triggers{
		Requested:    NewSet(),
		Crossed:      NewSet(),
		Acknowledged: NewSet(),
	}
}
