// Package risk implements the asset and portfolio risk assessment engine:
// metric extraction from market history, composite risk scoring, and
// portfolio-level aggregation.
package risk

import (
	"time"
)

// RiskLevel is the discretized risk bucket derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AssetMetrics holds the risk-relevant statistics derived from a raw
// price/volume history. Computed fresh on each assessment; never persisted.
type AssetMetrics struct {
	// Volatility is the population standard deviation of day-over-day
	// percentage returns over the lookback window.
	Volatility float64 `json:"volatility"`

	// Liquidity is the average traded volume over the lookback window.
	Liquidity float64 `json:"liquidity"`

	// Correlation is the asset's correlation to the market in [-1, 1].
	// Measured against the reference index series when available, otherwise
	// an assumed per-asset-class value; CorrelationAssumed tells which.
	Correlation        float64 `json:"correlation"`
	CorrelationAssumed bool    `json:"correlation_assumed"`

	// MarketCap is the market capitalization from the snapshot, 0 if absent.
	MarketCap float64 `json:"market_cap"`

	// AgeYears is the time since the asset's first observed data point.
	AgeYears float64 `json:"age_years"`

	// RSI is the 14-period relative strength index of the price series, nil
	// when there is insufficient data. Informational only: it feeds
	// recommendations, not the risk score.
	RSI *float64 `json:"rsi,omitempty"`
}

// RiskAssessment is the per-asset assessment result.
type RiskAssessment struct {
	TokenID         string       `json:"token_id"`
	AssetType       string       `json:"asset_type"`
	RiskScore       float64      `json:"risk_score"`
	RiskLevel       RiskLevel    `json:"risk_level"`
	Metrics         AssetMetrics `json:"metrics"`
	Recommendations []string     `json:"recommendations"`
	AssessedAt      time.Time    `json:"assessed_at"`
}

// AssetAssessment is a per-asset assessment annotated with its weight in the
// portfolio it was assessed for.
type AssetAssessment struct {
	RiskAssessment
	Weight float64 `json:"weight"`
	Value  float64 `json:"value"`
}

// PortfolioRiskAssessment aggregates per-asset assessments, weighted by
// position value.
type PortfolioRiskAssessment struct {
	PortfolioID string `json:"portfolio_id"`

	// OverallScore is the value-weighted mean of constituent risk scores.
	// It always lies within [min, max] of the constituent scores.
	OverallScore float64   `json:"overall_score"`
	OverallLevel RiskLevel `json:"overall_level"`

	// Diversification scales the count of distinct asset types to [0, 100].
	Diversification float64 `json:"diversification"`

	// Concentration is the largest single position's share of total value.
	Concentration float64 `json:"concentration"`

	Assets          []AssetAssessment `json:"assets"`
	Recommendations []string          `json:"recommendations"`
	AssessedAt      time.Time         `json:"assessed_at"`
}
