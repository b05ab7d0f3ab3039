package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
}

func TestPopStdDev(t *testing.T) {
	// Symmetric around zero: population stddev is exactly the magnitude.
	assert.InDelta(t, 0.1, PopStdDev([]float64{0.1, -0.1}), 1e-9)
	assert.Equal(t, 0.0, PopStdDev([]float64{5}))
	assert.Equal(t, 0.0, PopStdDev(nil))
}

func TestPopStdDevVsSample(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	// The population form divides by n, the sample form by n-1.
	assert.Less(t, PopStdDev(data), StdDev(data))
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 110, 99})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-9)
	assert.InDelta(t, -0.10, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
	assert.Empty(t, CalculateReturns(nil))
}

func TestCalculateReturns_ZeroPriceSkipped(t *testing.T) {
	// A zero price cannot produce a defined return; the slot stays zero
	// instead of dividing by zero.
	returns := CalculateReturns([]float64{0, 100, 110})
	require.Len(t, returns, 2)
	assert.Equal(t, 0.0, returns[0])
	assert.InDelta(t, 0.10, returns[1], 1e-9)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	assert.InDelta(t, 1.0, Correlation(x, y), 1e-9)

	inverse := []float64{10, 8, 6, 4, 2}
	assert.InDelta(t, -1.0, Correlation(x, inverse), 1e-9)

	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
	assert.Equal(t, 0.0, Correlation(nil, nil))
}

func TestCalculateRSI(t *testing.T) {
	// Not enough points for the period.
	assert.Nil(t, CalculateRSI([]float64{1, 2, 3}, 14))

	// Monotonically rising series: RSI saturates high.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := CalculateRSI(closes, 14)
	require.NotNil(t, rsi)
	assert.Greater(t, *rsi, 70.0)

	// Monotonically falling series: RSI saturates low.
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	rsi = CalculateRSI(closes, 14)
	require.NotNil(t, rsi)
	assert.Less(t, *rsi, 30.0)
}
