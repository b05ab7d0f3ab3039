package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the portfolio routes.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{portfolioID}", h.HandleGet)
		r.Put("/{portfolioID}", h.HandleUpdate)
		r.Get("/{portfolioID}/performance", h.HandlePerformance)
		r.Post("/{portfolioID}/rebalance", h.HandleRebalance)
	})
}
