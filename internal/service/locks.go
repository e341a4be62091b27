package service

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const lockSweepEvery = 256

// sessionLocks serializes turns per session key with one weighted semaphore
// each. Entries are reference counted: a sweep triggered every N acquisitions
// drops every idle entry, so the map size stays bounded by the number of
// in-flight sessions plus the sweep interval. An entry with holders or
// waiters is never removed, so serialization for a live session cannot be
// split across two semaphores.
type sessionLocks struct {
	mu         sync.Mutex
	entries    map[string]*lockEntry
	ops        int
	sweepEvery int
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

func newSessionLocks(sweepEvery int) *sessionLocks {
	if sweepEvery < 1 {
		sweepEvery = lockSweepEvery
	}
	return &sessionLocks{
		entries:    make(map[string]*lockEntry),
		sweepEvery: sweepEvery,
	}
}

// acquire blocks until the session lock for key is held and returns its
// release func. The entry stays pinned while any caller holds or waits on it.
func (s *sessionLocks) acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		s.entries[key] = e
	}
	e.refs++

	s.ops++
	if s.ops%s.sweepEvery == 0 {
		s.sweep()
	}
	s.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		s.unref(e)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			s.unref(e)
		})
	}, nil
}

func (s *sessionLocks) unref(e *lockEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.refs--
}

// Len returns the number of tracked session locks.
func (s *sessionLocks) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep drops idle entries. Must be called with s.mu held. An idle entry is
// safe to drop: no goroutine holds or is queued on its semaphore, so a later
// turn for the same key starts fresh without losing mutual exclusion.
func (s *sessionLocks) sweep() {
	for k, e := range s.entries {
		if e.refs == 0 {
			delete(s.entries, k)
		}
	}
}
