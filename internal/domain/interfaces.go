package domain

import "context"

// MarketDataClient is the narrow contract the risk engine needs from a market
// data provider. Implementations live in internal/clients; test doubles
// implement this interface directly.
type MarketDataClient interface {
	// GetHistoricalData returns the price/volume history for an asset over
	// the given lookback in days, ordered oldest first. Failures surface as
	// *ProviderError.
	GetHistoricalData(ctx context.Context, tokenID string, days int) (*HistoricalData, error)

	// GetMarketOverview returns a point-in-time snapshot of the overall
	// market (total market cap, trending assets, reference index series).
	GetMarketOverview(ctx context.Context) (*MarketSnapshot, error)

	// GetTokenPrice returns the current spot price for an asset in USD.
	GetTokenPrice(ctx context.Context, tokenID string) (float64, error)
}
