package asynctask

import "sync"

// Tracker detects stale results from superseded background tasks.
//
// Each time a new task is started for a key, the key's generation is
// incremented. A background result carries the generation it was computed
// under; before it is applied, the generation is compared against the
// tracker's current one for the key, and mismatches are discarded.
//
// All methods are safe to call from any goroutine.
type Tracker[K comparable] struct {
	mu          sync.Mutex
	generations map[K]uint64
}

// NewTracker creates an empty tracker.
func NewTracker[K comparable]() *Tracker[K] {
	return &Tracker[K]{
		generations: make(map[K]uint64),
	}
}

// Start begins a new task generation for key and returns it.
// Any generation handed out earlier for the same key becomes stale.
func (t *Tracker[K]) Start(key K) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generations[key]++
	return t.generations[key]
}

// IsCurrent reports whether generation is still the latest one started for
// key. Returns false for keys that were never started or were forgotten.
func (t *Tracker[K]) IsCurrent(key K, generation uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.generations[key]
	return ok && current == generation
}

// Forget drops all tracking state for key. Results captured under any
// earlier generation of the key are treated as no longer current.
func (t *Tracker[K]) Forget(key K) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.generations, key)
}

// Len returns the number of tracked keys.
func (t *Tracker[K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.generations)
}
