package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wardenlabs/warden/internal/domain"
)

// DefaultLookbackDays is the historical window used for metric extraction.
const DefaultLookbackDays = 365

// diversificationTargetTypes is the distinct asset type count at which the
// diversification measure reaches 100.
const diversificationTargetTypes = 5

// concentrationWarningWeight is the single-position weight above which the
// portfolio earns a concentration recommendation.
const concentrationWarningWeight = 0.4

// Service performs asset and portfolio risk assessment.
//
// Portfolio assessment fans out per-asset history fetches concurrently with a
// bounded limit, and fails fast on the first unrecoverable error: a partial
// portfolio score computed from a subset of holdings would be silently wrong,
// so no best-effort aggregation is attempted.
type Service struct {
	market        domain.MarketDataClient
	policy        ScoringPolicy
	extractor     *Extractor
	lookbackDays  int
	maxConcurrent int
	log           zerolog.Logger
}

// NewService creates a new risk assessment service. The policy is validated
// up front so a misconfigured weight table fails at startup, not mid-request.
func NewService(market domain.MarketDataClient, policy ScoringPolicy, maxConcurrent int, log zerolog.Logger) (*Service, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring policy: %w", err)
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Service{
		market:        market,
		policy:        policy,
		extractor:     NewExtractor(policy, log),
		lookbackDays:  DefaultLookbackDays,
		maxConcurrent: maxConcurrent,
		log:           log.With().Str("service", "risk").Logger(),
	}, nil
}

// Policy returns the active scoring policy.
func (s *Service) Policy() ScoringPolicy {
	return s.policy
}

// AssessAssetRisk assesses a single asset: fetches its history and the market
// snapshot, extracts metrics, scores them, and derives recommendations.
// Provider failures propagate unmodified.
func (s *Service) AssessAssetRisk(ctx context.Context, tokenID, assetType string) (*RiskAssessment, error) {
	history, err := s.market.GetHistoricalData(ctx, tokenID, s.lookbackDays)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.market.GetMarketOverview(ctx)
	if err != nil {
		return nil, err
	}

	return s.assess(tokenID, assetType, history, snapshot)
}

// AssessPortfolioRisk assesses every investment in a portfolio and aggregates
// the results weighted by position value.
//
// The market snapshot is fetched once and shared; per-asset histories are
// fetched concurrently, capped at the configured limit. An empty investment
// list, or one whose positions have no value, is an *domain.EmptyPortfolioError.
func (s *Service) AssessPortfolioRisk(ctx context.Context, portfolioID string, investments []domain.Investment) (*PortfolioRiskAssessment, error) {
	if len(investments) == 0 {
		return nil, &domain.EmptyPortfolioError{PortfolioID: portfolioID}
	}

	snapshot, err := s.market.GetMarketOverview(ctx)
	if err != nil {
		return nil, err
	}

	assessments := make([]AssetAssessment, len(investments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, inv := range investments {
		i, inv := i, inv
		g.Go(func() error {
			history, err := s.market.GetHistoricalData(gctx, inv.TokenID, s.lookbackDays)
			if err != nil {
				return err
			}

			assessment, err := s.assess(inv.TokenID, inv.AssetType, history, snapshot)
			if err != nil {
				return err
			}

			assessments[i] = AssetAssessment{
				RiskAssessment: *assessment,
				Value:          inv.Value(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var totalValue float64
	for _, a := range assessments {
		totalValue += a.Value
	}
	if totalValue <= 0 {
		return nil, &domain.EmptyPortfolioError{PortfolioID: portfolioID}
	}

	var overall float64
	var concentration float64
	assetTypes := make(map[string]bool)
	for i := range assessments {
		assessments[i].Weight = assessments[i].Value / totalValue
		overall += assessments[i].Weight * assessments[i].RiskScore
		if assessments[i].Weight > concentration {
			concentration = assessments[i].Weight
		}
		assetTypes[assessments[i].AssetType] = true
	}

	diversification := float64(len(assetTypes)) / diversificationTargetTypes
	if diversification > 1 {
		diversification = 1
	}

	result := &PortfolioRiskAssessment{
		PortfolioID:     portfolioID,
		OverallScore:    overall,
		OverallLevel:    DetermineRiskLevel(overall),
		Diversification: diversification * 100,
		Concentration:   concentration,
		Assets:          assessments,
		Recommendations: s.aggregateRecommendations(assessments, concentration, len(assetTypes)),
		AssessedAt:      time.Now().UTC(),
	}

	s.log.Info().
		Str("portfolio", portfolioID).
		Int("assets", len(assessments)).
		Float64("overall_score", overall).
		Str("overall_level", string(result.OverallLevel)).
		Msg("Portfolio risk assessed")

	return result, nil
}

// assess runs extraction and scoring for one asset.
func (s *Service) assess(tokenID, assetType string, history *domain.HistoricalData, snapshot *domain.MarketSnapshot) (*RiskAssessment, error) {
	metrics, err := s.extractor.Extract(tokenID, assetType, history, snapshot)
	if err != nil {
		return nil, err
	}

	score := CalculateRiskScore(s.policy, *metrics)

	return &RiskAssessment{
		TokenID:         tokenID,
		AssetType:       assetType,
		RiskScore:       score,
		RiskLevel:       DetermineRiskLevel(score),
		Metrics:         *metrics,
		Recommendations: Recommendations(s.policy, *metrics),
		AssessedAt:      time.Now().UTC(),
	}, nil
}

// aggregateRecommendations merges per-asset recommendations, de-duplicated
// and ordered by the asset's contribution to the overall score, with
// portfolio-level structural advice first.
func (s *Service) aggregateRecommendations(assets []AssetAssessment, concentration float64, distinctTypes int) []string {
	var recs []string

	if concentration > concentrationWarningWeight {
		recs = append(recs, fmt.Sprintf(
			"Portfolio is concentrated: the largest position holds %.0f%% of total value", concentration*100))
	}
	if distinctTypes < 3 {
		recs = append(recs, "Portfolio spans few asset classes - adding uncorrelated classes would reduce overall risk")
	}

	type weighted struct {
		text         string
		contribution float64
	}
	best := make(map[string]float64)
	for _, a := range assets {
		contribution := a.Weight * a.RiskScore
		for _, r := range a.Recommendations {
			if contribution > best[r] {
				best[r] = contribution
			}
		}
	}

	merged := make([]weighted, 0, len(best))
	for text, contribution := range best {
		merged = append(merged, weighted{text, contribution})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].contribution != merged[j].contribution {
			return merged[i].contribution > merged[j].contribution
		}
		return merged[i].text < merged[j].text
	})

	for _, m := range merged {
		recs = append(recs, m.text)
	}

	return recs
}
