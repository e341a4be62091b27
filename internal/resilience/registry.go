package resilience

import (
	"sync"
	"time"
)

// Settings configures every breaker in a Registry.
type Settings struct {
	// MaxFailures is the consecutive-failure count that opens a breaker.
	MaxFailures int
	// Cooldown is how long a breaker stays open before a trial turn.
	Cooldown time.Duration
	// MaxTurns is the per-session turn budget; 0 disables it.
	MaxTurns int
	// SweepEvery triggers a sweep after this many Check/Record calls.
	SweepEvery int
	// MaxSessions caps the number of tracked sessions.
	MaxSessions int
}

// Registry holds one circuit breaker per session key. Breakers are created
// lazily on first access and never shared between sessions, so one session's
// failures cannot block another's turns.
//
// Memory is bounded two ways: a sweep (triggered by call count, not time)
// removes closed breakers that never recorded a turn, and a hard cap evicts
// the oldest entries under session-id churn.
type Registry struct {
	mu       sync.Mutex
	settings Settings
	breakers map[string]*breaker
	ops      int
	now      func() time.Time // for testing
}

// NewRegistry creates a breaker registry with the given settings.
func NewRegistry(s Settings) *Registry {
	if s.MaxFailures < 1 {
		s.MaxFailures = 3
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.SweepEvery < 1 {
		s.SweepEvery = 256
	}
	if s.MaxSessions < 1 {
		s.MaxSessions = 10000
	}
	return &Registry{
		settings: s,
		breakers: make(map[string]*breaker),
		now:      time.Now,
	}
}

// Check reports whether the session identified by key may process a turn.
func (r *Registry) Check(key string) (bool, State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tick()
	b := r.get(key)
	b.lastSeen = r.now()
	return b.allow(r.now(), r.settings.Cooldown)
}

// Record applies a turn outcome to the session's breaker.
func (r *Registry) Record(key string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tick()
	b := r.get(key)
	now := r.now()
	b.lastSeen = now
	b.record(now, success, r.settings.MaxFailures, r.settings.MaxTurns)
}

// State returns the session's breaker state without creating a breaker.
// Untracked sessions report closed.
func (r *Registry) State(key string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[key]; ok {
		return b.state
	}
	return StateClosed
}

// Len returns the number of tracked sessions (for metrics and testing).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.breakers)
}

// get returns the breaker for key, creating it lazily.
// Must be called with r.mu held.
func (r *Registry) get(key string) *breaker {
	b, ok := r.breakers[key]
	if !ok {
		b = &breaker{state: StateClosed}
		r.breakers[key] = b
	}
	return b
}

// tick counts an operation and sweeps when the counter wraps the interval.
// Must be called with r.mu held.
func (r *Registry) tick() {
	r.ops++
	if r.ops%r.settings.SweepEvery != 0 {
		return
	}

	// Drop breakers that were created but never recorded a turn.
	for k, b := range r.breakers {
		if b.state == StateClosed && b.turns == 0 {
			delete(r.breakers, k)
		}
	}

	// Enforce the hard cap by evicting the oldest entries.
	for len(r.breakers) > r.settings.MaxSessions {
		var oldestKey string
		var oldest time.Time
		for k, b := range r.breakers {
			if oldestKey == "" || b.lastSeen.Before(oldest) {
				oldestKey = k
				oldest = b.lastSeen
			}
		}
		delete(r.breakers, oldestKey)
	}
}
