package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for infrastructure-level failures.
var (
	// ErrPortfolioNotFound is returned when a portfolio does not exist or
	// does not belong to the requesting user.
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// ErrInvestmentNotFound is returned when a position lookup misses.
	ErrInvestmentNotFound = errors.New("investment not found")

	// ErrTransactionNotFound is returned when a transaction lookup misses.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrVersionConflict is returned when an optimistic version check fails:
	// the portfolio was modified concurrently between read and write.
	ErrVersionConflict = errors.New("portfolio was modified concurrently")
)

// ProviderError wraps an upstream market data failure. It is surfaced to the
// caller unmodified; this layer never retries or defaults.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("provider %s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// InsufficientDataError is returned when a price history has fewer than two
// points, making volatility undefined. Never defaulted to zero: a silent
// default would corrupt the risk score.
type InsufficientDataError struct {
	TokenID string
	Points  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient price history for %s: %d points, need at least 2", e.TokenID, e.Points)
}

// EmptyPortfolioError is returned when a portfolio has no holdings to assess.
// An overall score is undefined for an empty portfolio, so this is an error
// rather than a zero result.
type EmptyPortfolioError struct {
	PortfolioID string
}

func (e *EmptyPortfolioError) Error() string {
	return fmt.Sprintf("portfolio %s has no investments to assess", e.PortfolioID)
}

// RiskProfileViolationError is returned when a proposed allocation breaches a
// profile bound. It names the offending class, the bound, and the proposed
// value so callers can report exactly what failed.
type RiskProfileViolationError struct {
	Profile    RiskProfile
	AssetClass string
	Bound      string // "max" or "min"
	Limit      float64
	Proposed   float64
}

func (e *RiskProfileViolationError) Error() string {
	if e.Bound == "min" {
		return fmt.Sprintf("%s allocation %.2f%% is below the %s profile minimum of %.2f%%",
			e.AssetClass, e.Proposed, e.Profile, e.Limit)
	}
	return fmt.Sprintf("%s allocation %.2f%% exceeds the %s profile limit of %.2f%%",
		e.AssetClass, e.Proposed, e.Profile, e.Limit)
}

// AllocationSumError is returned when an allocation map does not total 100%.
// Checked before any persistence so an invalid allocation never reaches disk.
type AllocationSumError struct {
	Total float64
}

func (e *AllocationSumError) Error() string {
	return fmt.Sprintf("portfolio allocations must sum to 100%%, got %.4f%%", e.Total)
}
