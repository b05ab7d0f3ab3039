package risk

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/pkg/formulas"
	"github.com/wardenlabs/warden/pkg/logger"
)

// rsiPeriod is the lookback for the informational RSI signal.
const rsiPeriod = 14

// hoursPerYear converts an age duration to fractional years.
const hoursPerYear = 24 * 365.25

// Extractor derives AssetMetrics from a raw price/volume history and a
// market snapshot.
type Extractor struct {
	policy ScoringPolicy
	now    func() time.Time
	log    zerolog.Logger
}

// NewExtractor creates a new metric extractor.
func NewExtractor(policy ScoringPolicy, log zerolog.Logger) *Extractor {
	return &Extractor{
		policy: policy,
		now:    time.Now,
		log:    logger.Component(log, "metric_extractor"),
	}
}

// Extract computes the risk-relevant statistics for one asset.
// Fewer than two price points is an *domain.InsufficientDataError: volatility
// is undefined and must not be defaulted.
func (e *Extractor) Extract(tokenID, assetType string, history *domain.HistoricalData, snapshot *domain.MarketSnapshot) (*AssetMetrics, error) {
	if history == nil || len(history.Prices) < 2 {
		points := 0
		if history != nil {
			points = len(history.Prices)
		}
		return nil, &domain.InsufficientDataError{TokenID: tokenID, Points: points}
	}

	prices := make([]float64, len(history.Prices))
	for i, p := range history.Prices {
		prices[i] = p.Value
	}
	volumes := make([]float64, len(history.Volumes))
	for i, v := range history.Volumes {
		volumes[i] = v.Value
	}

	returns := formulas.CalculateReturns(prices)

	metrics := &AssetMetrics{
		Volatility: formulas.PopStdDev(returns),
		Liquidity:  formulas.Mean(volumes),
		AgeYears:   e.now().Sub(history.Prices[0].Timestamp).Hours() / hoursPerYear,
		RSI:        formulas.CalculateRSI(prices, rsiPeriod),
	}

	if snapshot != nil {
		metrics.MarketCap = snapshot.MarketCap
	}

	metrics.Correlation, metrics.CorrelationAssumed = e.correlation(assetType, returns, snapshot)

	e.log.Debug().
		Str("token", tokenID).
		Float64("volatility", metrics.Volatility).
		Float64("liquidity", metrics.Liquidity).
		Float64("age_years", metrics.AgeYears).
		Bool("correlation_assumed", metrics.CorrelationAssumed).
		Msg("Extracted asset metrics")

	return metrics, nil
}

// correlation measures the asset's Pearson correlation against the snapshot's
// reference index series when one is present. Without an index series it
// falls back to the policy's documented per-class assumption and reports the
// value as assumed.
func (e *Extractor) correlation(assetType string, assetReturns []float64, snapshot *domain.MarketSnapshot) (float64, bool) {
	if snapshot == nil || len(snapshot.IndexPrices) < 2 {
		return e.policy.assumedCorrelationFor(assetType), true
	}

	indexPrices := make([]float64, len(snapshot.IndexPrices))
	for i, p := range snapshot.IndexPrices {
		indexPrices[i] = p.Value
	}
	indexReturns := formulas.CalculateReturns(indexPrices)

	// The two series may cover slightly different spans; align on the most
	// recent overlapping observations.
	n := len(assetReturns)
	if len(indexReturns) < n {
		n = len(indexReturns)
	}
	if n < 2 {
		return e.policy.assumedCorrelationFor(assetType), true
	}

	corr := formulas.Correlation(
		assetReturns[len(assetReturns)-n:],
		indexReturns[len(indexReturns)-n:],
	)

	// Degenerate series (constant prices) produce NaN; treat as unmeasurable.
	if corr != corr {
		return e.policy.assumedCorrelationFor(assetType), true
	}

	return corr, false
}
