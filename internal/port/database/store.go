// Package database defines the proposal store port (interface).
//
// The core defines the required query shapes; the storage technology is an
// adapter concern (PostgreSQL in production, in-memory for tests and
// single-node development).
package database

import (
	"context"
	"time"

	"github.com/Strob0t/Gatekeeper/internal/domain/proposal"
)

// ProposalStore is the port interface for proposal persistence.
type ProposalStore interface {
	// SaveProposal inserts or updates a proposal.
	SaveProposal(ctx context.Context, p *proposal.Proposal) error

	// GetProposal returns the proposal with the given id, or
	// domain.ErrNotFound.
	GetProposal(ctx context.Context, id string) (*proposal.Proposal, error)

	// FindPendingProposal returns the pending proposal for the given
	// (tenant, session, tool), or domain.ErrNotFound. At most one such
	// proposal exists at a time.
	FindPendingProposal(ctx context.Context, tenantID, sessionID, toolName string) (*proposal.Proposal, error)

	// ListStalePending returns pending proposals created before olderThan,
	// for the expiry sweep.
	ListStalePending(ctx context.Context, olderThan time.Time) ([]proposal.Proposal, error)
}
