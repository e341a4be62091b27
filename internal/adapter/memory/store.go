// Package memory provides an in-memory proposal store for tests and
// single-node development runs without a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Strob0t/Gatekeeper/internal/domain"
	"github.com/Strob0t/Gatekeeper/internal/domain/proposal"
)

// Store implements database.ProposalStore in process memory.
type Store struct {
	mu        sync.RWMutex
	proposals map[string]proposal.Proposal
}

// NewStore creates an empty in-memory proposal store.
func NewStore() *Store {
	return &Store{proposals: make(map[string]proposal.Proposal)}
}

// SaveProposal inserts or updates a proposal.
func (s *Store) SaveProposal(_ context.Context, p *proposal.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = *p
	return nil
}

// GetProposal returns a copy of the proposal with the given id.
func (s *Store) GetProposal(_ context.Context, id string) (*proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// FindPendingProposal returns the pending proposal for (tenant, session, tool).
func (s *Store) FindPendingProposal(_ context.Context, tenantID, sessionID, toolName string) (*proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.proposals {
		if p.Status == proposal.StatusPending &&
			p.TenantID == tenantID && p.SessionID == sessionID && p.ToolName == toolName {
			out := p
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListStalePending returns pending proposals created before olderThan.
func (s *Store) ListStalePending(_ context.Context, olderThan time.Time) ([]proposal.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []proposal.Proposal
	for _, p := range s.proposals {
		if p.Status == proposal.StatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Len returns the number of stored proposals (for testing).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proposals)
}
