package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/Gatekeeper/internal/adapter/otel"
	"github.com/Strob0t/Gatekeeper/internal/adapter/ws"
	"github.com/Strob0t/Gatekeeper/internal/domain"
	"github.com/Strob0t/Gatekeeper/internal/domain/proposal"
	"github.com/Strob0t/Gatekeeper/internal/domain/tool"
	"github.com/Strob0t/Gatekeeper/internal/executor"
	"github.com/Strob0t/Gatekeeper/internal/port/audit"
	"github.com/Strob0t/Gatekeeper/internal/port/database"
)

// ProposalService builds, stores, and resolves proposals for tools whose
// tier requires explicit confirmation before any side effect occurs.
type ProposalService struct {
	store   database.ProposalStore
	execs   *executor.Registry
	ttl     time.Duration
	hub     *ws.Hub
	audit   audit.Publisher
	metrics *otel.Metrics
	now     func() time.Time // for testing
}

// NewProposalService creates a proposal engine. hub, pub, and metrics may be
// nil; nil pub is replaced with a no-op publisher.
func NewProposalService(store database.ProposalStore, execs *executor.Registry, ttl time.Duration, hub *ws.Hub, pub audit.Publisher, metrics *otel.Metrics) *ProposalService {
	if pub == nil {
		pub = audit.Nop{}
	}
	return &ProposalService{
		store:   store,
		execs:   execs,
		ttl:     ttl,
		hub:     hub,
		audit:   pub,
		metrics: metrics,
		now:     time.Now,
	}
}

// Propose returns the existing pending proposal for (session, tool) if one
// exists, otherwise creates a new one. The idempotent re-proposal prevents a
// user or agent loop from stacking multiple pending high-risk actions.
func (s *ProposalService) Propose(ctx context.Context, tenantID, sessionID string, t tool.Tool, payload json.RawMessage) (*proposal.Proposal, error) {
	existing, err := s.store.FindPendingProposal(ctx, tenantID, sessionID, t.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find pending: %w", err)
	}

	p := &proposal.Proposal{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		ToolName:  t.Name,
		Payload:   payload,
		Status:    proposal.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("save proposal: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ProposalsCreated.Add(ctx, 1)
	}
	s.publishTransition(ctx, p)
	s.broadcast(ctx, ws.EventProposalPending, p)

	slog.Info("proposal created",
		"proposal_id", p.ID,
		"tenant_id", tenantID,
		"session_id", sessionID,
		"tool", t.Name,
	)
	return p, nil
}

// Confirm transitions a pending proposal to confirmed and invokes the
// registered executor exactly once. Executor failure moves the proposal to
// failed and is surfaced without automatic retry: side effects from write
// tools are not safe to blindly re-run.
func (s *ProposalService) Confirm(ctx context.Context, id string) (*proposal.Proposal, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != proposal.StatusPending {
		return p, &domain.ConflictError{Msg: fmt.Sprintf("proposal %s is %s, not pending", id, p.Status)}
	}

	// Mark confirmed before executing so a crash mid-execution can never
	// lead to a second invocation for the same proposal.
	now := s.now().UTC()
	p.Status = proposal.StatusConfirmed
	p.ResolvedAt = &now
	if err := s.store.SaveProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("save confirmed: %w", err)
	}

	result, execErr := s.execs.Execute(ctx, p.ToolName, p.TenantID, p.Payload)
	if execErr != nil {
		slog.Error("confirmed execution failed",
			"proposal_id", p.ID,
			"tool", p.ToolName,
			"error", execErr,
		)
		p.Status = proposal.StatusFailed
		p.Error = "execution failed"
		if err := s.store.SaveProposal(ctx, p); err != nil {
			return nil, fmt.Errorf("save failed: %w", err)
		}
		s.publishTransition(ctx, p)
		s.broadcast(ctx, ws.EventProposalResolved, p)
		return p, execErr
	}

	p.Result = result
	if err := s.store.SaveProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	s.publishTransition(ctx, p)
	s.broadcast(ctx, ws.EventProposalResolved, p)
	return p, nil
}

// Reject transitions a pending proposal to rejected without invoking any
// executor.
func (s *ProposalService) Reject(ctx context.Context, id string) (*proposal.Proposal, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != proposal.StatusPending {
		return p, &domain.ConflictError{Msg: fmt.Sprintf("proposal %s is %s, not pending", id, p.Status)}
	}

	now := s.now().UTC()
	p.Status = proposal.StatusRejected
	p.ResolvedAt = &now
	if err := s.store.SaveProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("save rejected: %w", err)
	}
	s.publishTransition(ctx, p)
	s.broadcast(ctx, ws.EventProposalResolved, p)
	return p, nil
}

// Get returns the proposal with the given id.
func (s *ProposalService) Get(ctx context.Context, id string) (*proposal.Proposal, error) {
	return s.store.GetProposal(ctx, id)
}

// ExpireStale transitions pending proposals older than the TTL to expired.
// Returns the number of proposals expired.
func (s *ProposalService) ExpireStale(ctx context.Context) (int, error) {
	stale, err := s.store.ListStalePending(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("list stale: %w", err)
	}

	expired := 0
	for i := range stale {
		p := &stale[i]
		now := s.now().UTC()
		p.Status = proposal.StatusExpired
		p.ResolvedAt = &now
		if err := s.store.SaveProposal(ctx, p); err != nil {
			return expired, fmt.Errorf("save expired %s: %w", p.ID, err)
		}
		s.publishTransition(ctx, p)
		s.broadcast(ctx, ws.EventProposalResolved, p)
		expired++
	}
	if expired > 0 {
		slog.Info("expired stale proposals", "count", expired)
	}
	return expired, nil
}

// StartExpirySweep spawns a goroutine that expires stale proposals every
// interval. Returns a cancel function that stops the sweep.
func (s *ProposalService) StartExpirySweep(interval time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.ExpireStale(ctx); err != nil {
					slog.Error("proposal expiry sweep failed", "error", err)
				}
			}
		}
	}()
	return cancel
}

func (s *ProposalService) publishTransition(ctx context.Context, p *proposal.Proposal) {
	ev := audit.Event{
		Kind:       audit.KindProposal,
		TenantID:   p.TenantID,
		SessionID:  p.SessionID,
		Tool:       p.ToolName,
		ProposalID: p.ID,
		Outcome:    string(p.Status),
		At:         s.now().UTC(),
	}
	if err := s.audit.Publish(ctx, ev); err != nil {
		slog.Warn("audit publish failed", "kind", ev.Kind, "error", err)
	}
}

func (s *ProposalService) broadcast(ctx context.Context, eventType string, p *proposal.Proposal) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(ctx, eventType, ws.ProposalEvent{
		ProposalID: p.ID,
		TenantID:   p.TenantID,
		SessionID:  p.SessionID,
		Tool:       p.ToolName,
		Status:     string(p.Status),
	})
}
