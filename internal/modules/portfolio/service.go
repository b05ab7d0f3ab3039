package portfolio

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/internal/events"
)

// AssetTypePerformance is the performance breakdown for one asset class.
type AssetTypePerformance struct {
	Value    float64 `json:"value"`
	Invested float64 `json:"invested"`
	Return   float64 `json:"return"`
}

// Performance summarizes a portfolio's value, return, and current allocation
// derived from live position values.
type Performance struct {
	TotalValue    float64                         `json:"total_value"`
	TotalInvested float64                         `json:"total_invested"`
	TotalReturn   float64                         `json:"total_return"`
	ROI           float64                         `json:"roi"`
	ByAssetType   map[string]AssetTypePerformance `json:"by_asset_type"`
	Allocation    domain.Allocation               `json:"allocation"`
}

// Service orchestrates portfolio operations: creation with profile-derived
// allocations, updates, performance calculation, and rebalancing.
type Service struct {
	repo           *Repository
	invRepo        *InvestmentRepository
	publisher      events.Publisher
	driftThreshold float64
	log            zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(repo *Repository, invRepo *InvestmentRepository, publisher events.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		invRepo:        invRepo,
		publisher:      publisher,
		driftThreshold: DefaultDriftThreshold,
		log:            log.With().Str("service", "portfolio").Logger(),
	}
}

// CreatePortfolio creates a portfolio seeded with the profile's initial
// allocations.
func (s *Service) CreatePortfolio(userID, name string, profile domain.RiskProfile) (*domain.Portfolio, error) {
	if !profile.Valid() {
		return nil, fmt.Errorf("unknown risk profile: %s", profile)
	}

	allocations, err := InitialAllocations(profile)
	if err != nil {
		return nil, err
	}

	p := &domain.Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		RiskProfile: profile,
		Allocations: allocations,
	}

	if err := s.repo.Create(p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio", p.ID).
		Str("user", userID).
		Str("profile", string(profile)).
		Msg("Portfolio created")

	return p, nil
}

// GetPortfolio fetches a portfolio scoped to its owner.
func (s *Service) GetPortfolio(portfolioID, userID string) (*domain.Portfolio, error) {
	return s.repo.GetByID(portfolioID, userID)
}

// ListPortfolios returns all portfolios owned by a user.
func (s *Service) ListPortfolios(userID string) ([]domain.Portfolio, error) {
	return s.repo.ListByUser(userID)
}

// UpdatePortfolio applies name and profile changes. Switching profiles
// regenerates the allocations from the new profile's seed, since the old
// targets may violate the new profile's bounds.
func (s *Service) UpdatePortfolio(portfolioID, userID, name string, profile domain.RiskProfile) (*domain.Portfolio, error) {
	p, err := s.repo.GetByID(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		p.Name = name
	}

	if profile != "" && profile != p.RiskProfile {
		if !profile.Valid() {
			return nil, fmt.Errorf("unknown risk profile: %s", profile)
		}
		allocations, err := InitialAllocations(profile)
		if err != nil {
			return nil, err
		}
		p.RiskProfile = profile
		p.Allocations = allocations
	}

	if err := s.repo.Update(p); err != nil {
		return nil, err
	}

	s.log.Info().Str("portfolio", p.ID).Msg("Portfolio updated")
	return p, nil
}

// CalculatePerformance computes value, return, and the current allocation map
// from the portfolio's positions. Position values use the stored current
// price, falling back to purchase price when no live price has been recorded.
func (s *Service) CalculatePerformance(portfolioID, userID string) (*Performance, error) {
	if _, err := s.repo.GetByID(portfolioID, userID); err != nil {
		return nil, err
	}

	investments, err := s.invRepo.ListByPortfolio(portfolioID)
	if err != nil {
		return nil, err
	}

	perf := &Performance{
		ByAssetType: make(map[string]AssetTypePerformance),
		Allocation:  make(domain.Allocation),
	}

	for _, inv := range investments {
		currentValue := inv.Value()
		investedValue := inv.Amount * inv.PurchasePrice

		perf.TotalValue += currentValue
		perf.TotalInvested += investedValue
		perf.TotalReturn += currentValue - investedValue

		byType := perf.ByAssetType[inv.AssetType]
		byType.Value += currentValue
		byType.Invested += investedValue
		byType.Return += currentValue - investedValue
		perf.ByAssetType[inv.AssetType] = byType
	}

	if perf.TotalInvested > 0 {
		perf.ROI = perf.TotalReturn / perf.TotalInvested * 100
	}

	if perf.TotalValue > 0 {
		for assetType, byType := range perf.ByAssetType {
			perf.Allocation[assetType] = byType.Value / perf.TotalValue * 100
		}
	}

	return perf, nil
}

// Rebalance validates a target allocation against the portfolio's risk
// profile, computes the drift-correcting trade plan from live position
// values, persists the new target, and publishes an advisory event when the
// plan contains trades.
//
// The persistence step uses the portfolio version read at the start, so two
// concurrent rebalances of the same portfolio cannot both win: the loser gets
// domain.ErrVersionConflict and must re-read and retry.
func (s *Service) Rebalance(portfolioID, userID string, target domain.Allocation) (*RebalancePlan, error) {
	p, err := s.repo.GetByID(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	if err := ValidateAllocation(p.RiskProfile, target); err != nil {
		return nil, err
	}

	perf, err := s.CalculatePerformance(portfolioID, userID)
	if err != nil {
		return nil, err
	}

	plan := &RebalancePlan{
		PortfolioID: portfolioID,
		Trades:      CalculateRebalancing(perf.Allocation, target, s.driftThreshold),
		Current:     perf.Allocation,
		Target:      target.Clone(),
	}

	p.Allocations = target.Clone()
	if err := s.repo.Update(p); err != nil {
		return nil, err
	}

	if len(plan.Trades) > 0 {
		s.publisher.Publish(events.Event{
			Type:        events.EventRebalanceSuggested,
			PortfolioID: portfolioID,
			UserID:      userID,
			Payload:     plan,
		})
	}

	s.log.Info().
		Str("portfolio", portfolioID).
		Int("trades", len(plan.Trades)).
		Msg("Rebalance plan computed")

	return plan, nil
}
