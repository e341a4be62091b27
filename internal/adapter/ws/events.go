package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Guardrail event types pushed to connected clients.
const (
	EventProposalPending  = "proposal.pending"
	EventProposalResolved = "proposal.resolved"
	EventNoticeCreated    = "notice.created"
	EventBreakerOpen      = "breaker.open"
)

// ProposalEvent announces a proposal transition.
type ProposalEvent struct {
	ProposalID string `json:"proposal_id"`
	TenantID   string `json:"tenant_id"`
	SessionID  string `json:"session_id"`
	Tool       string `json:"tool"`
	Status     string `json:"status"`
}

// NoticeEvent announces a soft-confirm notice with its undo deadline.
type NoticeEvent struct {
	NoticeID  string    `json:"notice_id"`
	TenantID  string    `json:"tenant_id"`
	SessionID string    `json:"session_id"`
	Tool      string    `json:"tool"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BreakerEvent announces a circuit breaker trip for a session.
type BreakerEvent struct {
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// BroadcastEvent marshals a typed payload into the message envelope and
// broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event marshal failed", "type", eventType, "error", err)
		return
	}
	h.Broadcast(ctx, Message{Type: eventType, Payload: data})
}
