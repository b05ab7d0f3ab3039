// Package handlers provides HTTP handlers for risk assessment.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/internal/modules/portfolio"
	"github.com/wardenlabs/warden/internal/modules/risk"
)

// Handler handles risk assessment HTTP requests
type Handler struct {
	service *risk.Service
	pfRepo  *portfolio.Repository
	invRepo *portfolio.InvestmentRepository
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service *risk.Service, pfRepo *portfolio.Repository, invRepo *portfolio.InvestmentRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		pfRepo:  pfRepo,
		invRepo: invRepo,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleAssessAsset assesses risk for a single asset
func (h *Handler) HandleAssessAsset(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenID")
	assetType := r.URL.Query().Get("asset_type")

	if assetType == "" {
		h.writeError(w, http.StatusBadRequest, "asset_type query parameter is required")
		return
	}

	assessment, err := h.service.AssessAssetRisk(r.Context(), tokenID, assetType)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, assessment)
}

// HandleAssessPortfolio assesses risk for a whole portfolio
func (h *Handler) HandleAssessPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := chi.URLParam(r, "portfolioID")
	userID := r.Header.Get("X-User-ID")

	if _, err := h.pfRepo.GetByID(portfolioID, userID); err != nil {
		h.writeDomainError(w, err)
		return
	}

	investments, err := h.invRepo.ListByPortfolio(portfolioID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	assessment, err := h.service.AssessPortfolioRisk(r.Context(), portfolioID, investments)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, assessment)
}

// HandleGetFactors returns the active scoring policy
func (h *Handler) HandleGetFactors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Policy())
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var providerErr *domain.ProviderError
	var insufficientErr *domain.InsufficientDataError
	var emptyErr *domain.EmptyPortfolioError

	switch {
	case errors.Is(err, domain.ErrPortfolioNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &emptyErr):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &insufficientErr):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &providerErr):
		h.log.Error().Err(err).Msg("Market data provider failure")
		h.writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error().Err(err).Msg("Risk assessment failed")
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
