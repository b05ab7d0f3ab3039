package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the transaction routes.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Post("/{transactionID}/execute", h.HandleExecute)
	})
}
