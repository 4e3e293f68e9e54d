package core

import (
	"sync"
)

// ProcessedSet tracks ticket ids already acted upon during one processing
// cycle. It is created empty at cycle start and discarded at cycle end; it
// provides no cross-run deduplication guarantee. A single-ticket invocation
// gets its own, initially empty set.
type ProcessedSet struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewProcessedSet creates an empty processed set
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{
		ids: make(map[int64]struct{}),
	}
}

// Contains reports whether the ticket id was already processed this cycle
func (s *ProcessedSet) Contains(ticketID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[ticketID]
	return ok
}

// Add marks a ticket id as processed
func (s *ProcessedSet) Add(ticketID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[ticketID] = struct{}{}
}

// Len returns the number of tickets processed this cycle
func (s *ProcessedSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}
