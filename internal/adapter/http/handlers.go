package http

import (
	"net/http"

	"github.com/Strob0t/Gatekeeper/internal/middleware"
	"github.com/Strob0t/Gatekeeper/internal/service"
)

// maxTurnBody bounds the JSON body of a turn request.
const maxTurnBody = 1 << 20 // 1 MiB

// Handlers bundles the HTTP handlers with their service dependencies.
type Handlers struct {
	orch    *service.Orchestrator
	notices *service.NoticeService
}

// NewHandlers creates the handler set.
func NewHandlers(orch *service.Orchestrator, notices *service.NoticeService) *Handlers {
	return &Handlers{orch: orch, notices: notices}
}

// HandleTurn runs one guarded turn for the calling session.
func (h *Handlers) HandleTurn(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.TurnRequest](w, r, maxTurnBody)
	if !ok {
		return
	}
	req.TenantID = middleware.TenantIDFromContext(r.Context())

	result, err := h.orch.HandleTurn(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetProposal returns a proposal by id.
func (h *Handlers) GetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.orch.GetProposal(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ConfirmProposal confirms a pending proposal and executes its tool.
func (h *Handlers) ConfirmProposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.orch.ConfirmProposal(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RejectProposal rejects a pending proposal.
func (h *Handlers) RejectProposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.orch.RejectProposal(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type breakerStateResponse struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

// GetBreakerState reports the circuit breaker state for a session.
func (h *Handlers) GetBreakerState(w http.ResponseWriter, r *http.Request) {
	sessionID := urlParam(r, "id")
	tenantID := middleware.TenantIDFromContext(r.Context())
	state := h.orch.BreakerState(tenantID, sessionID)
	writeJSON(w, http.StatusOK, breakerStateResponse{
		SessionID: sessionID,
		State:     string(state),
	})
}

// GetNotice returns a soft-confirm notice while its undo window is open.
func (h *Handlers) GetNotice(w http.ResponseWriter, r *http.Request) {
	n, err := h.notices.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// AckNotice acknowledges a notice, closing its undo window early.
func (h *Handlers) AckNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.notices.Ack(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
