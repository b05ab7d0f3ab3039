package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/domain"
)

func TestCalculateRebalancing_FiftyFiftyToFortySixty(t *testing.T) {
	current := domain.Allocation{domain.AssetCrypto: 50, domain.AssetStable: 50}
	target := domain.Allocation{domain.AssetCrypto: 40, domain.AssetStable: 60}

	trades := CalculateRebalancing(current, target, DefaultDriftThreshold)
	require.Len(t, trades, 2)

	// Sorted by class name: crypto before stable.
	assert.Equal(t, domain.AssetCrypto, trades[0].AssetType)
	assert.Equal(t, domain.TxSell, trades[0].Action)
	assert.InDelta(t, 10, trades[0].Percentage, 1e-9)

	assert.Equal(t, domain.AssetStable, trades[1].AssetType)
	assert.Equal(t, domain.TxBuy, trades[1].Action)
	assert.InDelta(t, 10, trades[1].Percentage, 1e-9)
}

func TestCalculateRebalancing_Idempotent(t *testing.T) {
	// A portfolio already at its target produces no trades.
	target := domain.Allocation{
		domain.AssetCrypto: 40,
		domain.AssetDefi:   25,
		domain.AssetStable: 30,
		domain.AssetNFT:    5,
	}

	trades := CalculateRebalancing(target.Clone(), target, DefaultDriftThreshold)
	assert.Empty(t, trades)
}

func TestCalculateRebalancing_DriftThreshold(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		target     float64
		wantTrades int
	}{
		{"drift below threshold ignored", 40.5, 40.0, 0},
		{"drift exactly at threshold ignored", 41.0, 40.0, 0},
		{"drift above threshold trades", 41.5, 40.0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := domain.Allocation{domain.AssetCrypto: tt.current, domain.AssetStable: 100 - tt.current}
			target := domain.Allocation{domain.AssetCrypto: tt.target, domain.AssetStable: 100 - tt.target}

			trades := CalculateRebalancing(current, target, DefaultDriftThreshold)

			cryptoTrades := 0
			for _, trade := range trades {
				if trade.AssetType == domain.AssetCrypto {
					cryptoTrades++
				}
			}
			assert.Equal(t, tt.wantTrades, cryptoTrades)
		})
	}
}

func TestCalculateRebalancing_Deterministic(t *testing.T) {
	current := domain.Allocation{
		domain.AssetCrypto: 55,
		domain.AssetDefi:   20,
		domain.AssetStable: 10,
		domain.AssetNFT:    10,
		domain.AssetOther:  5,
	}
	target := domain.Allocation{
		domain.AssetCrypto: 40,
		domain.AssetDefi:   25,
		domain.AssetStable: 25,
		domain.AssetNFT:    5,
		domain.AssetOther:  5,
	}

	first := CalculateRebalancing(current, target, DefaultDriftThreshold)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, CalculateRebalancing(current, target, DefaultDriftThreshold))
	}

	// Output ordering is alphabetical by class.
	require.Len(t, first, 4)
	assert.Equal(t, domain.AssetCrypto, first[0].AssetType)
	assert.Equal(t, domain.AssetDefi, first[1].AssetType)
	assert.Equal(t, domain.AssetNFT, first[2].AssetType)
	assert.Equal(t, domain.AssetStable, first[3].AssetType)
}

func TestCalculateRebalancing_ClassMissingFromOneSide(t *testing.T) {
	// A class only in the target is bought from zero; a class only in the
	// current book is sold to zero.
	current := domain.Allocation{domain.AssetCrypto: 100}
	target := domain.Allocation{domain.AssetStable: 100}

	trades := CalculateRebalancing(current, target, DefaultDriftThreshold)
	require.Len(t, trades, 2)

	assert.Equal(t, domain.TxSell, trades[0].Action)
	assert.InDelta(t, 100, trades[0].Percentage, 1e-9)
	assert.Equal(t, domain.TxBuy, trades[1].Action)
	assert.InDelta(t, 100, trades[1].Percentage, 1e-9)
}
