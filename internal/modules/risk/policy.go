package risk

import (
	"fmt"
	"math"

	"github.com/wardenlabs/warden/internal/domain"
)

// Risk level thresholds. The mapping from score to level is fixed policy:
// low for scores up to LowThreshold, medium up to MediumThreshold, high above.
const (
	LowThreshold    = 0.3
	MediumThreshold = 0.6
)

// ScoringPolicy is the named, versioned configuration for the composite risk
// score. Hoisting the weights and scales here keeps behavior changes
// auditable and testable in isolation.
type ScoringPolicy struct {
	Version string `json:"version"`

	// Component weights. Must sum to 1.0 so the composite stays in [0, 1].
	WeightVolatility  float64 `json:"weight_volatility"`
	WeightLiquidity   float64 `json:"weight_liquidity"`
	WeightCorrelation float64 `json:"weight_correlation"`
	WeightMarketCap   float64 `json:"weight_market_cap"`
	WeightAge         float64 `json:"weight_age"`

	// Normalization scales: the metric value at which each component
	// saturates. All monotonic: higher volatility raises risk; higher
	// liquidity, market cap, and age lower it.
	VolatilityScale float64 `json:"volatility_scale"` // daily return stddev
	LiquidityScale  float64 `json:"liquidity_scale"`  // average daily volume, USD
	MarketCapScale  float64 `json:"market_cap_scale"` // market cap, USD
	AgeScaleYears   float64 `json:"age_scale_years"`

	// AssumedCorrelation supplies the per-asset-class correlation used when
	// no market index series is available to measure against. These are
	// documented assumptions, not statistics.
	AssumedCorrelation        map[string]float64 `json:"assumed_correlation"`
	DefaultAssumedCorrelation float64            `json:"default_assumed_correlation"`

	// RecommendationTrigger is the normalized component level above which a
	// component earns an advisory recommendation.
	RecommendationTrigger float64 `json:"recommendation_trigger"`
}

// DefaultScoringPolicy returns the active scoring policy.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Version:           "2026.1",
		WeightVolatility:  0.35,
		WeightLiquidity:   0.20,
		WeightCorrelation: 0.20,
		WeightMarketCap:   0.15,
		WeightAge:         0.10,

		VolatilityScale: 0.10,          // 10% daily stddev saturates volatility risk
		LiquidityScale:  10_000_000,    // $10M average daily volume
		MarketCapScale:  1_000_000_000, // $1B market cap
		AgeScaleYears:   5,

		AssumedCorrelation: map[string]float64{
			domain.AssetCrypto: 0.8,
			domain.AssetDefi:   0.7,
			domain.AssetStable: 0.1,
			domain.AssetNFT:    0.5,
			domain.AssetOther:  0.5,
		},
		DefaultAssumedCorrelation: 0.5,

		RecommendationTrigger: 0.7,
	}
}

// Validate checks that the policy is internally consistent.
func (p ScoringPolicy) Validate() error {
	weightSum := p.WeightVolatility + p.WeightLiquidity + p.WeightCorrelation +
		p.WeightMarketCap + p.WeightAge
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", weightSum)
	}

	for name, scale := range map[string]float64{
		"volatility_scale": p.VolatilityScale,
		"liquidity_scale":  p.LiquidityScale,
		"market_cap_scale": p.MarketCapScale,
		"age_scale_years":  p.AgeScaleYears,
	} {
		if scale <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, scale)
		}
	}

	for class, corr := range p.AssumedCorrelation {
		if corr < -1 || corr > 1 {
			return fmt.Errorf("assumed correlation for %s out of [-1,1]: %f", class, corr)
		}
	}
	if p.DefaultAssumedCorrelation < -1 || p.DefaultAssumedCorrelation > 1 {
		return fmt.Errorf("default assumed correlation out of [-1,1]: %f", p.DefaultAssumedCorrelation)
	}

	if p.RecommendationTrigger < 0 || p.RecommendationTrigger > 1 {
		return fmt.Errorf("recommendation trigger out of [0,1]: %f", p.RecommendationTrigger)
	}

	return nil
}

// assumedCorrelationFor returns the documented correlation assumption for an
// asset class.
func (p ScoringPolicy) assumedCorrelationFor(assetType string) float64 {
	if corr, ok := p.AssumedCorrelation[assetType]; ok {
		return corr
	}
	return p.DefaultAssumedCorrelation
}
