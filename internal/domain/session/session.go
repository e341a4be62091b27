// Package session defines the Session domain entity: the conversational
// context scoped to one (tenant, session) pair.
package session

import "time"

// Session holds per-conversation metadata. Sessions are created on first
// turn, never explicitly destroyed, and reclaimed by the tracker's sweep.
type Session struct {
	TenantID     string    `json:"tenant_id"`
	SessionID    string    `json:"session_id"`
	TurnCount    int       `json:"turn_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Key builds the isolation key for a (tenant, session) pair. Session ids are
// not globally unique, so the tenant id is part of every key to prevent
// cross-tenant collisions in breakers, limiters, and locks.
func Key(tenantID, sessionID string) string {
	return tenantID + "/" + sessionID
}

// Key returns the session's isolation key.
func (s *Session) Key() string {
	return Key(s.TenantID, s.SessionID)
}
