package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Turns
		r.Post("/turns", h.HandleTurn)

		// Proposals (hard-confirm T3 actions)
		r.Get("/proposals/{id}", h.GetProposal)
		r.Post("/proposals/{id}/confirm", h.ConfirmProposal)
		r.Post("/proposals/{id}/reject", h.RejectProposal)

		// Notices (soft-confirm T2 undo windows)
		r.Get("/notices/{id}", h.GetNotice)
		r.Post("/notices/{id}/ack", h.AckNotice)

		// Session observability
		r.Get("/sessions/{id}/breaker", h.GetBreakerState)
	})
}
