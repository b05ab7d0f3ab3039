package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the risk assessment routes.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/assets/{tokenID}", h.HandleAssessAsset)
		r.Get("/portfolios/{portfolioID}", h.HandleAssessPortfolio)
		r.Get("/factors", h.HandleGetFactors)
	})
}
