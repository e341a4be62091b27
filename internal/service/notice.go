package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Gatekeeper/internal/adapter/ws"
	"github.com/Strob0t/Gatekeeper/internal/domain"
	"github.com/Strob0t/Gatekeeper/internal/port/cache"
)

// Notice is the visible record of a soft-confirm (T2) execution: the action
// already happened, and the caller has until ExpiresAt to undo or report it
// before it is finalized. A notice exists exactly as long as its cache entry.
type Notice struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	SessionID string          `json:"session_id"`
	Tool      string          `json:"tool"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// NoticeService stores soft-confirm notices in a TTL cache and announces
// them to connected clients.
type NoticeService struct {
	cache cache.Cache
	ttl   time.Duration
	hub   *ws.Hub
	now   func() time.Time // for testing
}

// NewNoticeService creates a notice service. hub may be nil in tests.
func NewNoticeService(c cache.Cache, ttl time.Duration, hub *ws.Hub) *NoticeService {
	return &NoticeService{cache: c, ttl: ttl, hub: hub, now: time.Now}
}

// Create stores a notice for an executed T2 tool call and broadcasts it.
func (s *NoticeService) Create(ctx context.Context, tenantID, sessionID, toolName string, result json.RawMessage) (*Notice, error) {
	now := s.now().UTC()
	n := &Notice{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		Tool:      toolName,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("notice marshal: %w", err)
	}
	if err := s.cache.Set(ctx, noticeKey(n.ID), data, s.ttl); err != nil {
		return nil, fmt.Errorf("notice store: %w", err)
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventNoticeCreated, ws.NoticeEvent{
			NoticeID:  n.ID,
			TenantID:  tenantID,
			SessionID: sessionID,
			Tool:      toolName,
			ExpiresAt: n.ExpiresAt,
		})
	}
	return n, nil
}

// Get returns the notice with the given id while its undo window is open.
func (s *NoticeService) Get(ctx context.Context, id string) (*Notice, error) {
	data, ok, err := s.cache.Get(ctx, noticeKey(id))
	if err != nil {
		return nil, fmt.Errorf("notice load: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFound
	}

	var n Notice
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("notice decode: %w", err)
	}
	return &n, nil
}

// Ack acknowledges the notice, closing its undo window early. Acknowledging
// an expired or unknown notice returns domain.ErrNotFound.
func (s *NoticeService) Ack(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.cache.Delete(ctx, noticeKey(id))
}

func noticeKey(id string) string { return "notice:" + id }
