package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response optimization routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimization", func(r chi.Router) {
		r.Post("/monte-carlo", h.HandleMonteCarlo)
	})
}

// RegisterStreamRoutes registers long-lived websocket routes. They are mounted
// outside the request timeout middleware.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/optimization/stream", h.HandleStream)
}
