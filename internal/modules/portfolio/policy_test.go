package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/domain"
)

func TestValidateAllocation_SumInvariantFirst(t *testing.T) {
	// Sum violation wins over profile bounds: this allocation also breaches the
	// conservative crypto ceiling, but the sum error is reported.
	err := ValidateAllocation(domain.ProfileConservative, domain.Allocation{
		domain.AssetCrypto: 90,
	})
	require.Error(t, err)

	var sumErr *domain.AllocationSumError
	require.ErrorAs(t, err, &sumErr)
	assert.InDelta(t, 90, sumErr.Total, 1e-9)
}

func TestValidateAllocation_SumTolerance(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		valid bool
	}{
		{"exact", 100.0, true},
		{"within tolerance above", 100.009, true},
		{"within tolerance below", 99.991, true},
		{"outside tolerance above", 100.02, false},
		{"outside tolerance below", 99.98, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAllocation(domain.ProfileAggressive, domain.Allocation{
				domain.AssetCrypto: 50,
				domain.AssetStable: tt.total - 50,
			})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				var sumErr *domain.AllocationSumError
				assert.ErrorAs(t, err, &sumErr)
			}
		})
	}
}

func TestValidateAllocation_ProfileBounds(t *testing.T) {
	tests := []struct {
		name       string
		profile    domain.RiskProfile
		allocation domain.Allocation
		wantClass  string
		wantBound  string
	}{
		{
			name:    "conservative rejects 35% crypto",
			profile: domain.ProfileConservative,
			allocation: domain.Allocation{
				domain.AssetCrypto: 35,
				domain.AssetStable: 65,
			},
			wantClass: domain.AssetCrypto,
			wantBound: "max",
		},
		{
			name:    "conservative rejects defi above 20",
			profile: domain.ProfileConservative,
			allocation: domain.Allocation{
				domain.AssetDefi:   25,
				domain.AssetStable: 75,
			},
			wantClass: domain.AssetDefi,
			wantBound: "max",
		},
		{
			name:    "moderate rejects stable below floor",
			profile: domain.ProfileModerate,
			allocation: domain.Allocation{
				domain.AssetCrypto: 50,
				domain.AssetStable: 15,
				domain.AssetOther:  35,
			},
			wantClass: domain.AssetStable,
			wantBound: "min",
		},
		{
			name:    "negative bucket rejected",
			profile: domain.ProfileAggressive,
			allocation: domain.Allocation{
				domain.AssetCrypto: 80,
				domain.AssetStable: 25,
				domain.AssetOther:  -5,
			},
			wantClass: domain.AssetOther,
			wantBound: "min",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAllocation(tt.profile, tt.allocation)
			require.Error(t, err)

			var violation *domain.RiskProfileViolationError
			require.ErrorAs(t, err, &violation)
			assert.Equal(t, tt.wantClass, violation.AssetClass)
			assert.Equal(t, tt.wantBound, violation.Bound)
		})
	}
}

func TestValidateAllocation_BoundaryValuesPass(t *testing.T) {
	// Exactly at the ceiling and exactly at the floor are both legal.
	err := ValidateAllocation(domain.ProfileConservative, domain.Allocation{
		domain.AssetCrypto: 30,
		domain.AssetDefi:   20,
		domain.AssetStable: 40,
		domain.AssetOther:  10,
	})
	assert.NoError(t, err)
}

func TestValidateAllocation_ExtraClassesAllowed(t *testing.T) {
	// Classes outside the policy table carry no bounds.
	err := ValidateAllocation(domain.ProfileModerate, domain.Allocation{
		domain.AssetStable: 30,
		"real_estate":      70,
	})
	assert.NoError(t, err)
}

func TestInitialAllocations_SumTo100(t *testing.T) {
	for _, profile := range []domain.RiskProfile{
		domain.ProfileConservative,
		domain.ProfileModerate,
		domain.ProfileAggressive,
	} {
		t.Run(string(profile), func(t *testing.T) {
			alloc, err := InitialAllocations(profile)
			require.NoError(t, err)

			assert.True(t, alloc.SumsTo100(), "sum was %.4f", alloc.Sum())
			assert.NoError(t, ValidateAllocation(profile, alloc))
		})
	}
}

func TestInitialAllocations_Conservative(t *testing.T) {
	alloc, err := InitialAllocations(domain.ProfileConservative)
	require.NoError(t, err)

	// 24 + 16 + 48 + 5 = 93, leaving 7 for other.
	assert.InDelta(t, 24, alloc[domain.AssetCrypto], 1e-9)
	assert.InDelta(t, 16, alloc[domain.AssetDefi], 1e-9)
	assert.InDelta(t, 48, alloc[domain.AssetStable], 1e-9)
	assert.InDelta(t, 5, alloc[domain.AssetNFT], 1e-9)
	assert.InDelta(t, 7, alloc[domain.AssetOther], 1e-9)
}

func TestInitialAllocations_OversubscribedKeepsStableFloor(t *testing.T) {
	// Moderate seeds to 48+32+24+5 = 109: the ceiling buckets shrink while the
	// stable bucket stays at its seeded value above the floor.
	alloc, err := InitialAllocations(domain.ProfileModerate)
	require.NoError(t, err)

	assert.InDelta(t, 24, alloc[domain.AssetStable], 1e-9)
	assert.InDelta(t, 0, alloc[domain.AssetOther], 1e-9)
	assert.Less(t, alloc[domain.AssetCrypto], 48.0)
	assert.True(t, alloc.SumsTo100())

	// Aggressive seeds even further over; the stable floor of 10 must survive.
	alloc, err = InitialAllocations(domain.ProfileAggressive)
	require.NoError(t, err)

	assert.InDelta(t, 12, alloc[domain.AssetStable], 1e-9)
	assert.GreaterOrEqual(t, alloc[domain.AssetStable], 10.0)
	assert.True(t, alloc.SumsTo100())
}

func TestInitialAllocations_UnknownProfile(t *testing.T) {
	_, err := InitialAllocations("yolo")
	assert.Error(t, err)
}
