package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/Gatekeeper/internal/domain"
	"github.com/Strob0t/Gatekeeper/internal/domain/proposal"
)

// Store implements database.ProposalStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveProposal inserts the proposal or updates its mutable fields.
func (s *Store) SaveProposal(ctx context.Context, p *proposal.Proposal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO proposals (id, tenant_id, session_id, tool_name, payload, status, result, error, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET status = EXCLUDED.status,
		     result = EXCLUDED.result,
		     error = EXCLUDED.error,
		     resolved_at = EXCLUDED.resolved_at`,
		p.ID, p.TenantID, p.SessionID, p.ToolName, p.Payload,
		p.Status, p.Result, p.Error, p.CreatedAt, p.ResolvedAt)
	if err != nil {
		return fmt.Errorf("save proposal %s: %w", p.ID, err)
	}
	return nil
}

// GetProposal returns the proposal with the given id.
func (s *Store) GetProposal(ctx context.Context, id string) (*proposal.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, session_id, tool_name, payload, status, result, error, created_at, resolved_at
		 FROM proposals WHERE id = $1`, id)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get proposal %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get proposal %s: %w", id, err)
	}
	return &p, nil
}

// FindPendingProposal returns the pending proposal for (tenant, session, tool).
func (s *Store) FindPendingProposal(ctx context.Context, tenantID, sessionID, toolName string) (*proposal.Proposal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, session_id, tool_name, payload, status, result, error, created_at, resolved_at
		 FROM proposals
		 WHERE tenant_id = $1 AND session_id = $2 AND tool_name = $3 AND status = 'pending'`,
		tenantID, sessionID, toolName)

	p, err := scanProposal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find pending proposal: %w", err)
	}
	return &p, nil
}

// ListStalePending returns pending proposals created before olderThan.
func (s *Store) ListStalePending(ctx context.Context, olderThan time.Time) ([]proposal.Proposal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, session_id, tool_name, payload, status, result, error, created_at, resolved_at
		 FROM proposals
		 WHERE status = 'pending' AND created_at < $1`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	defer rows.Close()

	var out []proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanProposal reads one proposal from a row or rows cursor.
func scanProposal(row pgx.Row) (proposal.Proposal, error) {
	var p proposal.Proposal
	err := row.Scan(&p.ID, &p.TenantID, &p.SessionID, &p.ToolName, &p.Payload,
		&p.Status, &p.Result, &p.Error, &p.CreatedAt, &p.ResolvedAt)
	return p, err
}
