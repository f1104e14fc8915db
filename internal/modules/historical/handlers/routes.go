package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all historical data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/historical", func(r chi.Router) {
		r.Get("/prices/daily/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetDailyPrices(w, r, chi.URLParam(r, "symbol"))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", h.HandleGetReturns)
			r.Get("/statistics", h.HandleGetStatistics)
			r.Get("/correlation-matrix", h.HandleGetCorrelationMatrix)
		})
	})
}
