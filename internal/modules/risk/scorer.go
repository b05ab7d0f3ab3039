package risk

import (
	"math"
	"sort"
)

// component is one normalized, weighted contributor to the composite score.
type component struct {
	Name           string  `json:"name"`
	Normalized     float64 `json:"normalized"`
	Weighted       float64 `json:"weighted"`
	recommendation string
}

// CalculateRiskScore combines normalized metric components into a single
// bounded score. Each component is normalized to [0, 1] with a monotonic
// mapping, weighted by the policy, and the sum clamped to [0, 1].
func CalculateRiskScore(policy ScoringPolicy, metrics AssetMetrics) float64 {
	var score float64
	for _, c := range scoreComponents(policy, metrics) {
		score += c.Weighted
	}
	return clamp01(score)
}

// DetermineRiskLevel maps a risk score to its discrete bucket. Pure function:
// low for scores up to 0.3, medium up to 0.6, high above.
func DetermineRiskLevel(score float64) RiskLevel {
	switch {
	case score <= LowThreshold:
		return RiskLow
	case score <= MediumThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Recommendations generates advisory strings from the components that
// dominate the score. Deterministic given the metrics: components above the
// policy trigger are reported in order of weighted contribution, ties broken
// by name.
func Recommendations(policy ScoringPolicy, metrics AssetMetrics) []string {
	comps := scoreComponents(policy, metrics)

	sort.SliceStable(comps, func(i, j int) bool {
		if comps[i].Weighted != comps[j].Weighted {
			return comps[i].Weighted > comps[j].Weighted
		}
		return comps[i].Name < comps[j].Name
	})

	var recs []string
	for _, c := range comps {
		if c.Normalized > policy.RecommendationTrigger {
			recs = append(recs, c.recommendation)
		}
	}

	// Momentum signal is informational, appended after risk-driven advice.
	if metrics.RSI != nil {
		if *metrics.RSI >= 70 {
			recs = append(recs, "Overbought momentum (RSI above 70) - entries at current levels carry elevated drawdown risk")
		} else if *metrics.RSI <= 30 {
			recs = append(recs, "Oversold momentum (RSI below 30) - recent selling pressure may not reflect fundamentals")
		}
	}

	return recs
}

// scoreComponents normalizes each metric to [0, 1] and applies the policy
// weights. Higher volatility raises risk; higher liquidity, market cap, and
// age lower it; correlation maps [-1, 1] onto [0, 1].
func scoreComponents(policy ScoringPolicy, metrics AssetMetrics) []component {
	volatility := saturate(metrics.Volatility, policy.VolatilityScale)
	illiquidity := 1 - saturate(metrics.Liquidity, policy.LiquidityScale)
	correlation := clamp01((metrics.Correlation + 1) / 2)
	smallCap := 1 - saturate(metrics.MarketCap, policy.MarketCapScale)
	youth := 1 - saturate(metrics.AgeYears, policy.AgeScaleYears)

	return []component{
		{
			Name:           "volatility",
			Normalized:     volatility,
			Weighted:       policy.WeightVolatility * volatility,
			recommendation: "High volatility - consider reducing position size",
		},
		{
			Name:           "liquidity",
			Normalized:     illiquidity,
			Weighted:       policy.WeightLiquidity * illiquidity,
			recommendation: "Low liquidity - exiting a large position may move the market against you",
		},
		{
			Name:           "correlation",
			Normalized:     correlation,
			Weighted:       policy.WeightCorrelation * correlation,
			recommendation: "Moves closely with the broader market - adds little diversification benefit",
		},
		{
			Name:           "market_cap",
			Normalized:     smallCap,
			Weighted:       policy.WeightMarketCap * smallCap,
			recommendation: "Small market capitalization - higher tail risk",
		},
		{
			Name:           "age",
			Normalized:     youth,
			Weighted:       policy.WeightAge * youth,
			recommendation: "Limited track record - the asset has little price history to judge by",
		},
	}
}

// saturate maps value monotonically onto [0, 1], saturating at scale.
func saturate(value, scale float64) float64 {
	if value <= 0 {
		return 0
	}
	return math.Min(value/scale, 1)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
