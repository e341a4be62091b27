// Package audit defines the audit event publisher port.
//
// Every executed tool call, proposal transition, and breaker trip is
// published as an audit event. Retention and downstream processing belong to
// external consumers of the stream.
package audit

import (
	"context"
	"time"
)

// Event kinds.
const (
	KindTurn      = "turn"
	KindExecution = "execution"
	KindProposal  = "proposal"
	KindBreaker   = "breaker"
)

// Event is one audit record.
type Event struct {
	Kind       string         `json:"kind"`
	TenantID   string         `json:"tenant_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Tool       string         `json:"tool,omitempty"`
	ProposalID string         `json:"proposal_id,omitempty"`
	Outcome    string         `json:"outcome"`
	Detail     map[string]any `json:"detail,omitempty"`
	At         time.Time      `json:"at"`
}

// Publisher is the port interface for emitting audit events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop is a Publisher that discards events. Used in tests and when no
// message broker is configured.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(context.Context, Event) error { return nil }
