// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

type createPortfolioRequest struct {
	Name        string `json:"name"`
	RiskProfile string `json:"risk_profile"`
}

// HandleCreate creates a portfolio seeded from the risk profile.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")

	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, err := h.service.CreatePortfolio(userID, req.Name, domain.RiskProfile(req.RiskProfile))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, p)
}

// HandleList returns the caller's portfolios.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-ID")

	portfolios, err := h.service.ListPortfolios(userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, portfolios)
}

// HandleGet returns one portfolio.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	userID := r.Header.Get("X-User-ID")

	p, err := h.service.GetPortfolio(portfolioID, userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

type updatePortfolioRequest struct {
	Name        string `json:"name"`
	RiskProfile string `json:"risk_profile"`
}

// HandleUpdate applies name and risk profile changes.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	userID := r.Header.Get("X-User-ID")

	var req updatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.UpdatePortfolio(portfolioID, userID, req.Name, domain.RiskProfile(req.RiskProfile))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// HandlePerformance returns the portfolio's live performance breakdown.
func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	userID := r.Header.Get("X-User-ID")

	perf, err := h.service.CalculatePerformance(portfolioID, userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, perf)
}

type rebalanceRequest struct {
	Target domain.Allocation `json:"target"`
}

// HandleRebalance validates a target allocation and returns the trade plan.
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	userID := r.Header.Get("X-User-ID")

	var req rebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Target) == 0 {
		h.writeError(w, http.StatusBadRequest, "target allocation is required")
		return
	}

	plan, err := h.service.Rebalance(portfolioID, userID, req.Target)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, plan)
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var violationErr *domain.RiskProfileViolationError
	var sumErr *domain.AllocationSumError

	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &violationErr), errors.As(err, &sumErr):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Portfolio operation failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
