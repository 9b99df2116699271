package utils

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// NewPageLimiter returns a limiter that lets one request through per interval.
// A zero interval disables throttling.
func NewPageLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// IDSet is a thread-safe set for tracking already-collected identifiers.
type IDSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewIDSet creates an empty IDSet.
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[string]struct{})}
}

// Add returns true if the ID was newly added, false if already present.
func (s *IDSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[id]; exists {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Contains returns true if the ID has already been recorded.
func (s *IDSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[id]
	return exists
}

// Size returns the number of unique IDs tracked.
func (s *IDSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
