package utils

import "sync"

// RunTracker tracks booking ids already processed in the current run so a
// duplicated entry in the active list can't be scraped and appended twice
type RunTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewRunTracker creates a new tracker
func NewRunTracker() *RunTracker {
	return &RunTracker{seen: make(map[string]struct{})}
}

// Add returns true if the booking id is new this run, false if duplicate
func (t *RunTracker) Add(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[id]; exists {
		return false
	}
	t.seen[id] = struct{}{}
	return true
}

// Count returns the number of processed bookings
func (t *RunTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
