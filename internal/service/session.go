package service

import (
	"sync"
	"time"

	"github.com/Strob0t/Gatekeeper/internal/domain/session"
)

// SessionTracker keeps in-memory metadata for active sessions. Sessions are
// created lazily on first turn and reclaimed by a sweep triggered every N
// operations, with a hard cap evicting the oldest entries under session-id
// churn.
type SessionTracker struct {
	mu          sync.Mutex
	sessions    map[string]*session.Session
	ops         int
	sweepEvery  int
	maxSessions int
	now         func() time.Time // for testing
}

// NewSessionTracker creates a tracker bounded to maxSessions entries.
func NewSessionTracker(sweepEvery, maxSessions int) *SessionTracker {
	if sweepEvery < 1 {
		sweepEvery = 256
	}
	if maxSessions < 1 {
		maxSessions = 10000
	}
	return &SessionTracker{
		sessions:    make(map[string]*session.Session),
		sweepEvery:  sweepEvery,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Touch records a turn for the (tenant, session) pair, creating the session
// on first access. Returns a copy of the updated session.
func (t *SessionTracker) Touch(tenantID, sessionID string) session.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ops++
	if t.ops%t.sweepEvery == 0 {
		t.sweep()
	}

	key := session.Key(tenantID, sessionID)
	now := t.now()

	s, ok := t.sessions[key]
	if !ok {
		s = &session.Session{
			TenantID:  tenantID,
			SessionID: sessionID,
			CreatedAt: now,
		}
		t.sessions[key] = s
	}
	s.TurnCount++
	s.LastActiveAt = now
	return *s
}

// Get returns a copy of the session for key, if tracked.
func (t *SessionTracker) Get(key string) (session.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[key]
	if !ok {
		return session.Session{}, false
	}
	return *s, true
}

// Len returns the number of tracked sessions.
func (t *SessionTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// sweep enforces the session cap by evicting the least recently active
// entries. Must be called with t.mu held.
func (t *SessionTracker) sweep() {
	for len(t.sessions) > t.maxSessions {
		var oldestKey string
		var oldest time.Time
		for k, s := range t.sessions {
			if oldestKey == "" || s.LastActiveAt.Before(oldest) {
				oldestKey = k
				oldest = s.LastActiveAt
			}
		}
		delete(t.sessions, oldestKey)
	}
}
