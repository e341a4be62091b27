// Package resilience provides the per-session circuit breaker registry that
// suspends a session's ability to keep issuing turns once a failure or usage
// threshold is crossed.
package resilience

import "time"

// State is the circuit breaker state for one session.
type State string

const (
	// StateClosed is normal operation.
	StateClosed State = "closed"
	// StateOpen rejects new turns until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen permits one trial turn.
	StateHalfOpen State = "half_open"
)

// breaker is the per-session state machine. It is owned exclusively by the
// Registry and only ever mutated under the registry lock.
type breaker struct {
	state    State
	failures int
	turns    int
	openedAt time.Time
	lastSeen time.Time
}

// allow reports whether a turn may proceed, transitioning OPEN to HALF_OPEN
// once the cooldown has elapsed.
func (b *breaker) allow(now time.Time, cooldown time.Duration) (bool, State) {
	switch b.state {
	case StateClosed:
		return true, StateClosed
	case StateOpen:
		if now.Sub(b.openedAt) >= cooldown {
			b.state = StateHalfOpen
			return true, StateHalfOpen
		}
		return false, StateOpen
	case StateHalfOpen:
		return true, StateHalfOpen
	}
	return false, b.state
}

// record applies a turn outcome.
func (b *breaker) record(now time.Time, success bool, maxFailures, maxTurns int) {
	b.turns++
	if success {
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
		b.failures = 0
	} else {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= maxFailures {
			b.state = StateOpen
			b.openedAt = now
		}
	}
	// The turn budget trips the breaker regardless of outcome.
	if maxTurns > 0 && b.turns >= maxTurns && b.state != StateOpen {
		b.state = StateOpen
		b.openedAt = now
	}
}
