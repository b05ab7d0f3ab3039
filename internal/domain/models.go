// Package domain contains the shared domain model for the risk and portfolio
// engine. The domain layer is pure: no infrastructure dependencies.
package domain

import (
	"math"
	"time"
)

// RiskProfile is a named policy constraining allowable allocations.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileModerate     RiskProfile = "moderate"
	ProfileAggressive   RiskProfile = "aggressive"
)

// Valid reports whether the profile is one of the known profiles.
func (p RiskProfile) Valid() bool {
	switch p {
	case ProfileConservative, ProfileModerate, ProfileAggressive:
		return true
	}
	return false
}

// Asset classes used in allocation maps. Allocations may contain additional
// user-defined classes; policy bounds only apply to the classes below.
const (
	AssetCrypto = "crypto"
	AssetDefi   = "defi"
	AssetStable = "stable"
	AssetNFT    = "nft"
	AssetOther  = "other"
)

// AllocationSumTolerance is the tolerance applied when checking that an
// allocation map totals 100%.
const AllocationSumTolerance = 0.01

// Allocation maps asset class names to portfolio percentages.
type Allocation map[string]float64

// Sum returns the total percentage across all asset classes.
func (a Allocation) Sum() float64 {
	var total float64
	for _, pct := range a {
		total += pct
	}
	return total
}

// SumsTo100 reports whether the allocation totals 100% within tolerance.
func (a Allocation) SumsTo100() bool {
	return math.Abs(a.Sum()-100) <= AllocationSumTolerance
}

// Clone returns a copy of the allocation map.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Portfolio is owned by exactly one user and carries the risk profile plus
// the current target allocation. Version implements optimistic concurrency:
// writers must present the version they read, and a mismatch means another
// writer got there first.
type Portfolio struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Name          string      `json:"name"`
	RiskProfile   RiskProfile `json:"risk_profile"`
	Allocations   Allocation  `json:"allocations"`
	Version       int64       `json:"version"`
	LastRiskScore *float64    `json:"last_risk_score,omitempty"`
	LastRiskLevel string      `json:"last_risk_level,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// InvestmentStatus tracks the lifecycle of a position.
type InvestmentStatus string

const (
	InvestmentActive InvestmentStatus = "active"
	InvestmentSold   InvestmentStatus = "sold"
	InvestmentStaked InvestmentStatus = "staked"
	InvestmentLocked InvestmentStatus = "locked"
)

// Investment is a position: it belongs to exactly one portfolio and one user.
type Investment struct {
	ID            string           `json:"id"`
	PortfolioID   string           `json:"portfolio_id"`
	UserID        string           `json:"user_id"`
	TokenID       string           `json:"token_id"`
	AssetType     string           `json:"asset_type"`
	Amount        float64          `json:"amount"`
	StakedAmount  float64          `json:"staked_amount"`
	PurchasePrice float64          `json:"purchase_price"`
	CurrentPrice  float64          `json:"current_price"`
	Status        InvestmentStatus `json:"status"`
	PurchaseDate  time.Time        `json:"purchase_date"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Value returns the position's current market value. Falls back to the
// purchase price when no live price is available.
func (i Investment) Value() float64 {
	price := i.CurrentPrice
	if price == 0 {
		price = i.PurchasePrice
	}
	return i.Amount * price
}

// TransactionType enumerates the supported transaction kinds.
type TransactionType string

const (
	TxBuy      TransactionType = "buy"
	TxSell     TransactionType = "sell"
	TxStake    TransactionType = "stake"
	TxUnstake  TransactionType = "unstake"
	TxTransfer TransactionType = "transfer"
)

// Valid reports whether the transaction type is known.
func (t TransactionType) Valid() bool {
	switch t {
	case TxBuy, TxSell, TxStake, TxUnstake, TxTransfer:
		return true
	}
	return false
}

// TransactionStatus tracks transaction execution state.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Transaction records a buy/sell/stake/unstake/transfer against a position.
// The rebalancer produces suggested trades of this shape but never executes.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	PortfolioID string            `json:"portfolio_id"`
	TokenID     string            `json:"token_id"`
	AssetType   string            `json:"asset_type"`
	Type        TransactionType   `json:"type"`
	Amount      float64           `json:"amount"`
	MarketPrice float64           `json:"market_price"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// PricePoint is a single (timestamp, value) observation in a market series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// HistoricalData is the price/volume history for one asset over a lookback
// window, ordered oldest first.
type HistoricalData struct {
	TokenID string       `json:"token_id"`
	Prices  []PricePoint `json:"prices"`
	Volumes []PricePoint `json:"volumes"`
}

// TrendingAsset is an entry in the market snapshot's trending list.
type TrendingAsset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// MarketSnapshot is a point-in-time view of the overall market.
// IndexPrices, when present, is a reference market index series covering the
// same lookback as asset histories; it enables measured (rather than assumed)
// asset-to-market correlation.
type MarketSnapshot struct {
	MarketCap    float64         `json:"market_cap"`
	Volume24h    float64         `json:"volume_24h"`
	BTCDominance float64         `json:"btc_dominance"`
	Trending     []TrendingAsset `json:"trending"`
	IndexPrices  []PricePoint    `json:"index_prices,omitempty"`
}
