// Package proposal defines the Proposal domain entity: a recorded,
// confirmable intent to execute a high-risk tool, distinct from the tool's
// eventual execution.
package proposal

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a proposal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is immutable. Confirm and reject
// against a terminal proposal are conflicts, never re-applied.
func (s Status) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusRejected, StatusExpired, StatusFailed:
		return true
	}
	return false
}

// Proposal is a pending or resolved request to execute a T2/T3 tool.
// At most one pending proposal exists per (session, tool) at a time.
// Resolved proposals are retained for audit.
type Proposal struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	SessionID  string          `json:"session_id"`
	ToolName   string          `json:"tool_name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Status     Status          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// Terminal reports whether the proposal has reached an immutable status.
func (p *Proposal) Terminal() bool { return p.Status.Terminal() }
