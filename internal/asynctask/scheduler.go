package asynctask

import (
	"sync"

	"terra-lod/internal/profiling"
)

// Scheduler runs work on a background pool and queues the results for
// single-goroutine application, rejecting results that were superseded by a
// newer task for the same key before they were drained.
//
// S is the owning store type handed to apply closures during
// DrainAndApply. Background work never touches the store directly; it only
// sees data captured at Spawn time.
type Scheduler[K comparable, S any] struct {
	tracker *Tracker[K]
	pool    *Pool

	// Optional store-side existence check, re-run at apply time.
	// Nil disables the check.
	exists func(S, K) bool

	results chan func(S)

	pendingMu sync.Mutex
	pending   map[K]struct{}
}

// NewScheduler creates a scheduler on top of pool. queueSize bounds the
// completed-results queue; workers block (rather than drop results) when it
// fills up. exists may be nil.
func NewScheduler[K comparable, S any](pool *Pool, queueSize int, exists func(S, K) bool) *Scheduler[K, S] {
	return &Scheduler[K, S]{
		tracker: NewTracker[K](),
		pool:    pool,
		exists:  exists,
		results: make(chan func(S), queueSize),
		pending: make(map[K]struct{}),
	}
}

// Spawn starts a tracked background task for key.
//
// work runs on a pool worker and must not capture the owning store. apply
// runs later, on the goroutine that calls DrainAndApply, and only if the
// task's generation is still current and (when an existence check is
// configured) key still exists in the store. Stale results are discarded
// silently.
//
// Returns false if the pool's job queue was full and nothing was enqueued;
// the caller may retry on a later frame.
func Spawn[K comparable, S, T any](s *Scheduler[K, S], key K, work func() T, apply func(S, K, T)) bool {
	generation := s.tracker.Start(key)
	s.markPending(key)

	submitted := s.pool.Submit(func() {
		result := work()

		deferred := func(store S) {
			s.clearPending(key)
			if !s.tracker.IsCurrent(key, generation) {
				return
			}
			if s.exists != nil && !s.exists(store, key) {
				return
			}
			apply(store, key, result)
		}

		select {
		case s.results <- deferred:
		case <-s.pool.Done():
		}
	})

	if !submitted {
		// Queue full: rollback the pending mark. The started generation
		// stays; it only supersedes older work.
		s.clearPending(key)
	}
	return submitted
}

// DrainAndApply pops every completed result queued so far and runs it
// against store, in completion order. It never waits for in-flight work.
// Returns the number of deferred results processed, counting discarded
// stale ones.
func (s *Scheduler[K, S]) DrainAndApply(store S) int {
	defer profiling.Track("asynctask.DrainAndApply")()
	n := 0
	for {
		select {
		case deferred := <-s.results:
			deferred(store)
			n++
		default:
			return n
		}
	}
}

// Pending reports whether a task for key has been spawned and not yet
// drained.
func (s *Scheduler[K, S]) Pending(key K) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// PendingCount returns the number of keys with undrained tasks.
func (s *Scheduler[K, S]) PendingCount() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// Forget retires key permanently: its tracking state is dropped and any
// in-flight result for it will be discarded at drain time.
func (s *Scheduler[K, S]) Forget(key K) {
	s.tracker.Forget(key)
	s.clearPending(key)
}

// Tracker returns the scheduler's generation tracker.
func (s *Scheduler[K, S]) Tracker() *Tracker[K] {
	return s.tracker
}

func (s *Scheduler[K, S]) markPending(key K) {
	s.pendingMu.Lock()
	s.pending[key] = struct{}{}
	s.pendingMu.Unlock()
}

func (s *Scheduler[K, S]) clearPending(key K) {
	s.pendingMu.Lock()
	delete(s.pending, key)
	s.pendingMu.Unlock()
}
