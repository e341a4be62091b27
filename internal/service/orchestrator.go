package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Strob0t/Gatekeeper/internal/adapter/otel"
	"github.com/Strob0t/Gatekeeper/internal/adapter/ws"
	"github.com/Strob0t/Gatekeeper/internal/domain"
	"github.com/Strob0t/Gatekeeper/internal/domain/proposal"
	"github.com/Strob0t/Gatekeeper/internal/domain/session"
	"github.com/Strob0t/Gatekeeper/internal/domain/tool"
	"github.com/Strob0t/Gatekeeper/internal/executor"
	"github.com/Strob0t/Gatekeeper/internal/logger"
	"github.com/Strob0t/Gatekeeper/internal/port/audit"
	"github.com/Strob0t/Gatekeeper/internal/ratelimit"
	"github.com/Strob0t/Gatekeeper/internal/resilience"
	"github.com/Strob0t/Gatekeeper/internal/sanitize"
)

// ToolCall is one tool invocation requested by the model for a turn.
type ToolCall struct {
	Tool    string          `json:"tool"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TurnRequest is one inbound chat turn for a (tenant, session) pair.
// EligibleTools is the subset of the catalog the mode selector allows this
// turn; empty means the whole catalog.
type TurnRequest struct {
	TenantID      string     `json:"-"`
	SessionID     string     `json:"session_id"`
	Input         string     `json:"input"`
	EligibleTools []string   `json:"eligible_tools,omitempty"`
	Calls         []ToolCall `json:"calls,omitempty"`
}

// CallStatus is the per-call outcome within a turn.
type CallStatus string

const (
	// CallExecuted means the tool ran and produced output.
	CallExecuted CallStatus = "executed"
	// CallProposed means a proposal was created (or re-surfaced) instead of
	// executing.
	CallProposed CallStatus = "proposed"
	// CallRejected means the call was refused before execution (unknown
	// tool, ineligible tool, exhausted tool budget).
	CallRejected CallStatus = "rejected"
	// CallFailed means the executor ran and failed.
	CallFailed CallStatus = "failed"
)

// CallResult reports the outcome of one requested tool call.
type CallResult struct {
	Tool     string             `json:"tool"`
	Mode     tool.ExecutionMode `json:"mode,omitempty"`
	Status   CallStatus         `json:"status"`
	Output   json.RawMessage    `json:"output,omitempty"`
	Proposal *proposal.Proposal `json:"proposal,omitempty"`
	Notice   *Notice            `json:"notice,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// TurnResult is the outcome of one handled turn.
type TurnResult struct {
	TenantID      string           `json:"tenant_id"`
	SessionID     string           `json:"session_id"`
	Turn          int              `json:"turn"`
	Input         string           `json:"input"`
	InputFiltered bool             `json:"input_filtered"`
	Calls         []CallResult     `json:"calls"`
	BreakerState  resilience.State `json:"breaker_state"`
}

// OrchestratorDeps carries the components the orchestrator composes.
type OrchestratorDeps struct {
	Limiter   *ratelimit.Limiter
	Breakers  *resilience.Registry
	Catalog   *tool.Catalog
	Executors *executor.Registry
	Proposals *ProposalService
	Notices   *NoticeService
	Sessions  *SessionTracker
	Hub       *ws.Hub
	Audit     audit.Publisher
	Metrics   *otel.Metrics
}

// Orchestrator is the per-turn driver: it admits the request, sanitizes
// input, resolves trust tiers, executes or proposes each requested tool
// call, and records the outcome in the session's circuit breaker.
type Orchestrator struct {
	deps  OrchestratorDeps
	locks *sessionLocks
	now   func() time.Time
}

// NewOrchestrator creates an orchestrator from its dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	return &Orchestrator{deps: deps, locks: newSessionLocks(0), now: time.Now}
}

// HandleTurn processes one inbound turn. Turns for different sessions run
// concurrently; turns for the same session are serialized on a per-session
// semaphore because the breaker counters and the at-most-one-pending
// invariant are not safe under concurrent mutation of the same session.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.TenantID == "" {
		return nil, domain.Validationf("tenant id is required")
	}
	if req.SessionID == "" {
		return nil, domain.Validationf("session id is required")
	}

	ctx, span := otel.StartTurnSpan(ctx, req.TenantID, req.SessionID)
	defer span.End()

	key := session.Key(req.TenantID, req.SessionID)

	release, err := o.locks.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	// Admission: session-scope rate limit.
	if res := o.deps.Limiter.Admit(ratelimit.ScopeSession, key); !res.Allowed {
		o.countDenied(ctx)
		return nil, &domain.AdmissionDeniedError{
			Reason:     "session rate limit exceeded",
			RetryAfter: res.RetryAfter,
		}
	}

	// Circuit check: a tripped breaker suspends the session's turns.
	wasOpen := o.deps.Breakers.State(key) == resilience.StateOpen
	allowed, state := o.deps.Breakers.Check(key)
	if !allowed {
		o.countDenied(ctx)
		return nil, &domain.AdmissionDeniedError{
			Reason: "session suspended: circuit breaker " + string(state),
		}
	}

	sess := o.deps.Sessions.Touch(req.TenantID, req.SessionID)

	// Sanitize the raw input. Flagged content is annotated for the model;
	// the original text is preserved in the audit log, never dropped.
	san := sanitize.Sanitize(req.Input)
	if san.Filtered {
		slog.Warn("input filtered",
			"tenant_id", req.TenantID,
			"session_id", req.SessionID,
		)
	}
	o.publishTurn(ctx, req, san.Filtered)

	eligible := toSet(req.EligibleTools)

	result := &TurnResult{
		TenantID:      req.TenantID,
		SessionID:     req.SessionID,
		Turn:          sess.TurnCount,
		Input:         san.Clean,
		InputFiltered: san.Filtered,
	}

	failed := false
	for _, call := range req.Calls {
		cr := o.handleCall(ctx, req, key, eligible, call)
		if cr.Status == CallFailed {
			failed = true
		}
		result.Calls = append(result.Calls, cr)
	}

	o.deps.Breakers.Record(key, !failed)
	result.BreakerState = o.deps.Breakers.State(key)

	if result.BreakerState == resilience.StateOpen && !wasOpen {
		o.announceTrip(ctx, req.TenantID, req.SessionID)
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.TurnsHandled.Add(ctx, 1)
	}
	return result, nil
}

// handleCall resolves one requested tool call through the trust-tier policy.
func (o *Orchestrator) handleCall(ctx context.Context, req TurnRequest, key string, eligible map[string]struct{}, call ToolCall) CallResult {
	t, ok := o.deps.Catalog.Get(call.Tool)
	if !ok {
		return CallResult{Tool: call.Tool, Status: CallRejected, Error: "unknown tool"}
	}
	if eligible != nil {
		if _, ok := eligible[call.Tool]; !ok {
			return CallResult{Tool: call.Tool, Status: CallRejected, Error: "tool not eligible for current mode"}
		}
	}

	mode, err := tool.ResolveMode(t.TrustTier)
	if err != nil {
		// Unreachable for a validated catalog; fail closed regardless.
		return CallResult{Tool: call.Tool, Status: CallRejected, Error: "invalid trust tier"}
	}

	ctx, span := otel.StartToolSpan(ctx, t.Name, string(mode))
	defer span.End()

	cr := CallResult{Tool: call.Tool, Mode: mode}

	// Mutating tools draw on the per-session tool budget.
	if t.Mutating() {
		if res := o.deps.Limiter.Admit(ratelimit.ScopeTool, key+":"+call.Tool); !res.Allowed {
			cr.Status = CallRejected
			cr.Error = "tool budget exhausted"
			return cr
		}
	}

	switch mode {
	case tool.ModeAuto, tool.ModeSoftConfirm:
		out, execErr := o.deps.Executors.Execute(ctx, t.Name, req.TenantID, call.Payload)
		if o.deps.Metrics != nil {
			o.deps.Metrics.ToolExecutions.Add(ctx, 1)
		}
		if execErr != nil {
			// Internal detail is logged, never returned to the caller.
			slog.Error("tool execution failed",
				"tenant_id", req.TenantID,
				"session_id", req.SessionID,
				"tool", t.Name,
				"error", execErr,
			)
			if o.deps.Metrics != nil {
				o.deps.Metrics.ExecutionFailures.Add(ctx, 1)
			}
			o.publishExecution(ctx, req, t.Name, "failed")
			cr.Status = CallFailed
			cr.Error = "execution failed"
			return cr
		}

		cr.Status = CallExecuted
		cr.Output = out
		o.publishExecution(ctx, req, t.Name, "ok")

		if mode == tool.ModeSoftConfirm {
			n, nErr := o.deps.Notices.Create(ctx, req.TenantID, req.SessionID, t.Name, out)
			if nErr != nil {
				slog.Error("notice create failed", "tool", t.Name, "error", nErr)
			} else {
				cr.Notice = n
			}
		}
		return cr

	case tool.ModeHardConfirm:
		p, pErr := o.deps.Proposals.Propose(ctx, req.TenantID, req.SessionID, t, call.Payload)
		if pErr != nil {
			slog.Error("propose failed", "tool", t.Name, "error", pErr)
			cr.Status = CallFailed
			cr.Error = "proposal creation failed"
			return cr
		}
		cr.Status = CallProposed
		cr.Proposal = p
		return cr
	}

	cr.Status = CallRejected
	cr.Error = "unhandled execution mode"
	return cr
}

// ConfirmProposal confirms a pending proposal and executes its tool. An
// execution failure is recorded as a breaker failure for the proposal's
// session.
func (o *Orchestrator) ConfirmProposal(ctx context.Context, id string) (*proposal.Proposal, error) {
	ctx, span := otel.StartConfirmSpan(ctx, id)
	defer span.End()

	p, err := o.deps.Proposals.Confirm(ctx, id)
	if p != nil && err != nil {
		var execErr *domain.ExecutionError
		if errors.As(err, &execErr) {
			o.deps.Breakers.Record(session.Key(p.TenantID, p.SessionID), false)
		}
	}
	return p, err
}

// GetProposal returns a proposal by id.
func (o *Orchestrator) GetProposal(ctx context.Context, id string) (*proposal.Proposal, error) {
	return o.deps.Proposals.Get(ctx, id)
}

// RejectProposal rejects a pending proposal.
func (o *Orchestrator) RejectProposal(ctx context.Context, id string) (*proposal.Proposal, error) {
	return o.deps.Proposals.Reject(ctx, id)
}

// BreakerState reports the circuit breaker state for a session, for
// observability.
func (o *Orchestrator) BreakerState(tenantID, sessionID string) resilience.State {
	return o.deps.Breakers.State(session.Key(tenantID, sessionID))
}

func (o *Orchestrator) countDenied(ctx context.Context) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.TurnsDenied.Add(ctx, 1)
	}
}

func (o *Orchestrator) publishTurn(ctx context.Context, req TurnRequest, filtered bool) {
	detail := map[string]any{"filtered": filtered, "raw_input": req.Input}
	if id := logger.RequestID(ctx); id != "" {
		detail["request_id"] = id
	}
	ev := audit.Event{
		Kind:      audit.KindTurn,
		TenantID:  req.TenantID,
		SessionID: req.SessionID,
		Outcome:   "accepted",
		Detail:    detail,
		At:        o.now().UTC(),
	}
	if err := o.deps.Audit.Publish(ctx, ev); err != nil {
		slog.Warn("audit publish failed", "kind", ev.Kind, "error", err)
	}
}

func (o *Orchestrator) publishExecution(ctx context.Context, req TurnRequest, toolName, outcome string) {
	ev := audit.Event{
		Kind:      audit.KindExecution,
		TenantID:  req.TenantID,
		SessionID: req.SessionID,
		Tool:      toolName,
		Outcome:   outcome,
		At:        o.now().UTC(),
	}
	if err := o.deps.Audit.Publish(ctx, ev); err != nil {
		slog.Warn("audit publish failed", "kind", ev.Kind, "error", err)
	}
}

func (o *Orchestrator) announceTrip(ctx context.Context, tenantID, sessionID string) {
	slog.Warn("circuit breaker opened", "tenant_id", tenantID, "session_id", sessionID)
	if o.deps.Metrics != nil {
		o.deps.Metrics.BreakerTrips.Add(ctx, 1)
	}
	ev := audit.Event{
		Kind:      audit.KindBreaker,
		TenantID:  tenantID,
		SessionID: sessionID,
		Outcome:   string(resilience.StateOpen),
		At:        o.now().UTC(),
	}
	if err := o.deps.Audit.Publish(ctx, ev); err != nil {
		slog.Warn("audit publish failed", "kind", ev.Kind, "error", err)
	}
	if o.deps.Hub != nil {
		o.deps.Hub.BroadcastEvent(ctx, ws.EventBreakerOpen, ws.BreakerEvent{
			TenantID:  tenantID,
			SessionID: sessionID,
			State:     string(resilience.StateOpen),
		})
	}
}

// toSet converts a tool name list to a lookup set; nil input returns nil
// (meaning: no restriction).
func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
