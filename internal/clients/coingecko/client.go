// Package coingecko provides market data fetching from CoinGecko-compatible
// APIs with persistent caching. It is the concrete implementation of
// domain.MarketDataClient used in production.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/clientdata"
	"github.com/wardenlabs/warden/internal/domain"
)

const providerName = "coingecko"

// marketIndexToken is the asset whose price series stands in as the market
// index for correlation measurement. Bitcoin is used as the proxy for the
// overall crypto market.
const marketIndexToken = "bitcoin"

// indexLookbackDays is the lookback for the reference index series; it
// matches the risk engine's default asset lookback.
const indexLookbackDays = 365

// Client for CoinGecko-compatible market data APIs.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new CoinGecko client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		log:       log.With().Str("client", providerName).Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedSeries is the cache representation of a historical series.
type cachedSeries struct {
	Prices  [][2]float64 `msgpack:"prices"`
	Volumes [][2]float64 `msgpack:"volumes"`
}

// cachedOverview is the cache representation of a market snapshot.
type cachedOverview struct {
	MarketCap    float64      `msgpack:"market_cap"`
	Volume24h    float64      `msgpack:"volume_24h"`
	BTCDominance float64      `msgpack:"btc_dominance"`
	TrendingIDs  []string     `msgpack:"trending_ids"`
	TrendingName []string     `msgpack:"trending_names"`
	TrendingSym  []string     `msgpack:"trending_syms"`
	IndexPrices  [][2]float64 `msgpack:"index_prices"`
}

// GetHistoricalData fetches the price/volume history for an asset.
// Cache-first with a 1 hour TTL; on upstream failure the error propagates as
// *domain.ProviderError. Historical data is never served stale: a stale
// series silently shifts volatility and age, which would corrupt the risk
// score.
func (c *Client) GetHistoricalData(ctx context.Context, tokenID string, days int) (*domain.HistoricalData, error) {
	cacheKey := fmt.Sprintf("%s:%d", tokenID, days)

	if c.cacheRepo != nil {
		var cached cachedSeries
		ok, err := c.cacheRepo.GetIfFresh("coingecko_history", cacheKey, &cached)
		if err == nil && ok {
			c.log.Debug().Str("token", tokenID).Int("days", days).Msg("History cache hit")
			return seriesToHistorical(tokenID, cached), nil
		}
	}

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart", c.baseURL, url.PathEscape(tokenID))
	reqURL := fmt.Sprintf("%s?vs_currency=usd&days=%d", endpoint, days)

	var payload struct {
		Prices       [][2]float64 `json:"prices"`
		TotalVolumes [][2]float64 `json:"total_volumes"`
	}
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, err
	}

	series := cachedSeries{Prices: payload.Prices, Volumes: payload.TotalVolumes}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("coingecko_history", cacheKey, series, clientdata.TTLHistoricalData); err != nil {
			c.log.Warn().Err(err).Str("token", tokenID).Msg("Failed to cache historical data")
		}
	}

	return seriesToHistorical(tokenID, series), nil
}

// GetMarketOverview fetches a snapshot of the overall market: total market
// cap, 24h volume, BTC dominance, trending assets, and the reference index
// series used for correlation measurement.
//
// When the upstream is down, an expired cached overview is served instead of
// failing. Unlike per-asset histories, a mildly stale market snapshot does not
// distort any score, and it keeps portfolio assessment available through
// provider outages.
func (c *Client) GetMarketOverview(ctx context.Context) (*domain.MarketSnapshot, error) {
	if c.cacheRepo != nil {
		var cached cachedOverview
		ok, err := c.cacheRepo.GetIfFresh("coingecko_market", "overview", &cached)
		if err == nil && ok {
			c.log.Debug().Msg("Market overview cache hit")
			return overviewToSnapshot(cached), nil
		}
	}

	snap, err := c.fetchMarketOverview(ctx)
	if err == nil {
		return snap, nil
	}

	if c.cacheRepo != nil {
		var cached cachedOverview
		if ok, cacheErr := c.cacheRepo.Get("coingecko_market", "overview", &cached); cacheErr == nil && ok {
			c.log.Warn().Err(err).Msg("Upstream unavailable, serving stale market overview")
			return overviewToSnapshot(cached), nil
		}
	}

	return nil, err
}

// fetchMarketOverview performs the upstream fetches and refreshes the cache.
func (c *Client) fetchMarketOverview(ctx context.Context) (*domain.MarketSnapshot, error) {
	var global struct {
		Data struct {
			TotalMarketCap      map[string]float64 `json:"total_market_cap"`
			TotalVolume         map[string]float64 `json:"total_volume"`
			MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/global", &global); err != nil {
		return nil, err
	}

	var trending struct {
		Coins []struct {
			Item struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				Symbol string `json:"symbol"`
			} `json:"item"`
		} `json:"coins"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/search/trending", &trending); err != nil {
		return nil, err
	}

	// Reference index series for measured correlation. A failure here is not
	// fatal: the extractor falls back to documented class-level assumptions.
	index, err := c.GetHistoricalData(ctx, marketIndexToken, indexLookbackDays)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch market index series, correlation will be assumed")
		index = &domain.HistoricalData{}
	}

	cached := cachedOverview{
		MarketCap:    global.Data.TotalMarketCap["usd"],
		Volume24h:    global.Data.TotalVolume["usd"],
		BTCDominance: global.Data.MarketCapPercentage["btc"],
	}
	for _, coin := range trending.Coins {
		cached.TrendingIDs = append(cached.TrendingIDs, coin.Item.ID)
		cached.TrendingName = append(cached.TrendingName, coin.Item.Name)
		cached.TrendingSym = append(cached.TrendingSym, coin.Item.Symbol)
	}
	for _, p := range index.Prices {
		cached.IndexPrices = append(cached.IndexPrices, [2]float64{float64(p.Timestamp.UnixMilli()), p.Value})
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("coingecko_market", "overview", cached, clientdata.TTLMarketOverview); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache market overview")
		}
	}

	return overviewToSnapshot(cached), nil
}

// GetTokenPrice fetches the current USD spot price for an asset.
func (c *Client) GetTokenPrice(ctx context.Context, tokenID string) (float64, error) {
	if c.cacheRepo != nil {
		var cached float64
		ok, err := c.cacheRepo.GetIfFresh("coingecko_price", tokenID, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}

	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(tokenID))

	var payload map[string]map[string]float64
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return 0, err
	}

	price, ok := payload[tokenID]["usd"]
	if !ok {
		return 0, &domain.ProviderError{
			Provider: providerName,
			Err:      fmt.Errorf("no price returned for %s", tokenID),
		}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("coingecko_price", tokenID, price, clientdata.TTLTokenPrice); err != nil {
			c.log.Warn().Err(err).Str("token", tokenID).Msg("Failed to cache token price")
		}
	}

	return price, nil
}

// getJSON performs a GET request and decodes the JSON response.
// Non-2xx statuses and transport failures surface as *domain.ProviderError.
func (c *Client) getJSON(ctx context.Context, reqURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &domain.ProviderError{Provider: providerName, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &domain.ProviderError{Provider: providerName, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

func seriesToHistorical(tokenID string, s cachedSeries) *domain.HistoricalData {
	h := &domain.HistoricalData{TokenID: tokenID}
	for _, p := range s.Prices {
		h.Prices = append(h.Prices, domain.PricePoint{
			Timestamp: time.UnixMilli(int64(p[0])).UTC(),
			Value:     p[1],
		})
	}
	for _, v := range s.Volumes {
		h.Volumes = append(h.Volumes, domain.PricePoint{
			Timestamp: time.UnixMilli(int64(v[0])).UTC(),
			Value:     v[1],
		})
	}
	return h
}

func overviewToSnapshot(c cachedOverview) *domain.MarketSnapshot {
	snap := &domain.MarketSnapshot{
		MarketCap:    c.MarketCap,
		Volume24h:    c.Volume24h,
		BTCDominance: c.BTCDominance,
	}
	for i := range c.TrendingIDs {
		asset := domain.TrendingAsset{ID: c.TrendingIDs[i]}
		if i < len(c.TrendingName) {
			asset.Name = c.TrendingName[i]
		}
		if i < len(c.TrendingSym) {
			asset.Symbol = c.TrendingSym[i]
		}
		snap.Trending = append(snap.Trending, asset)
	}
	for _, p := range c.IndexPrices {
		snap.IndexPrices = append(snap.IndexPrices, domain.PricePoint{
			Timestamp: time.UnixMilli(int64(p[0])).UTC(),
			Value:     p[1],
		})
	}
	return snap
}
