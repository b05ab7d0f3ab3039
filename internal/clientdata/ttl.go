package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Historical series move slowly; an hour of staleness is acceptable for
	// a 365-day lookback.
	TTLHistoricalData = time.Hour

	// Market overview (total cap, trending) shifts continuously but the
	// risk engine only needs a coarse snapshot.
	TTLMarketOverview = 5 * time.Minute

	// Spot prices feed transaction execution and position valuation.
	TTLTokenPrice = time.Minute
)
