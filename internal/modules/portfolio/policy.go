// Package portfolio implements portfolio management: profile-constrained
// allocation policy, CRUD over portfolio records, performance calculation,
// and drift-based rebalancing plans.
package portfolio

import (
	"fmt"

	"github.com/wardenlabs/warden/internal/domain"
)

// ProfileLimits is the allocation policy bound to one risk profile:
// ceilings on crypto and DeFi exposure, a floor on stablecoins.
type ProfileLimits struct {
	MaxCrypto float64 `json:"max_crypto"`
	MaxDefi   float64 `json:"max_defi"`
	MinStable float64 `json:"min_stable"`
}

// riskProfiles is the fixed policy table, in percentage points.
var riskProfiles = map[domain.RiskProfile]ProfileLimits{
	domain.ProfileConservative: {MaxCrypto: 30, MaxDefi: 20, MinStable: 40},
	domain.ProfileModerate:     {MaxCrypto: 60, MaxDefi: 40, MinStable: 20},
	domain.ProfileAggressive:   {MaxCrypto: 80, MaxDefi: 60, MinStable: 10},
}

// Initial allocation seed factors: new portfolios start below their profile
// ceilings and above the stable floor, with a small fixed NFT bucket.
const (
	seedCeilingFactor = 0.8
	seedFloorFactor   = 1.2
	seedNFTPercent    = 5.0
)

// ProfileLimitsFor returns the limits for a profile and whether it is known.
func ProfileLimitsFor(profile domain.RiskProfile) (ProfileLimits, bool) {
	limits, ok := riskProfiles[profile]
	return limits, ok
}

// ValidateAllocation checks a proposed allocation against a risk profile.
// The 100% sum invariant is checked first, then per-class bounds. Runs before
// any persistence or rebalance; a violation surfaces with the offending class
// and the limit.
func ValidateAllocation(profile domain.RiskProfile, allocation domain.Allocation) error {
	if !allocation.SumsTo100() {
		return &domain.AllocationSumError{Total: allocation.Sum()}
	}

	for class, pct := range allocation {
		if pct < 0 {
			return &domain.RiskProfileViolationError{
				Profile:    profile,
				AssetClass: class,
				Bound:      "min",
				Limit:      0,
				Proposed:   pct,
			}
		}
	}

	limits, ok := riskProfiles[profile]
	if !ok {
		// Unknown profile carries no bounds beyond the sum invariant.
		return nil
	}

	if crypto := allocation[domain.AssetCrypto]; crypto > limits.MaxCrypto {
		return &domain.RiskProfileViolationError{
			Profile:    profile,
			AssetClass: domain.AssetCrypto,
			Bound:      "max",
			Limit:      limits.MaxCrypto,
			Proposed:   crypto,
		}
	}
	if defi := allocation[domain.AssetDefi]; defi > limits.MaxDefi {
		return &domain.RiskProfileViolationError{
			Profile:    profile,
			AssetClass: domain.AssetDefi,
			Bound:      "max",
			Limit:      limits.MaxDefi,
			Proposed:   defi,
		}
	}
	if stable := allocation[domain.AssetStable]; stable < limits.MinStable {
		return &domain.RiskProfileViolationError{
			Profile:    profile,
			AssetClass: domain.AssetStable,
			Bound:      "min",
			Limit:      limits.MinStable,
			Proposed:   stable,
		}
	}

	return nil
}

// InitialAllocations derives the deterministic starting allocation for a
// profile: 80% of each ceiling, 120% of the stable floor, a fixed 5% NFT
// bucket, and the remainder in "other".
//
// For the moderate and aggressive profiles the seed buckets alone exceed
// 100%, which would push "other" negative. In that case the stable bucket is
// kept at its seeded value (it is floor-bound and must not shrink) and the
// ceiling-bound buckets (crypto, defi, nft) are scaled down proportionally to
// fill exactly 100% with other = 0. The scaled buckets can only move further
// under their ceilings, so the result always validates against the profile.
func InitialAllocations(profile domain.RiskProfile) (domain.Allocation, error) {
	limits, ok := riskProfiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown risk profile: %s", profile)
	}

	crypto := limits.MaxCrypto * seedCeilingFactor
	defi := limits.MaxDefi * seedCeilingFactor
	stable := limits.MinStable * seedFloorFactor
	nft := seedNFTPercent

	seeded := crypto + defi + stable + nft
	if seeded <= 100 {
		return domain.Allocation{
			domain.AssetCrypto: crypto,
			domain.AssetDefi:   defi,
			domain.AssetStable: stable,
			domain.AssetNFT:    nft,
			domain.AssetOther:  100 - seeded,
		}, nil
	}

	// Oversubscribed: shrink the ceiling-bound buckets into the room the
	// stable floor leaves.
	scale := (100 - stable) / (crypto + defi + nft)
	return domain.Allocation{
		domain.AssetCrypto: crypto * scale,
		domain.AssetDefi:   defi * scale,
		domain.AssetStable: stable,
		domain.AssetNFT:    nft * scale,
		domain.AssetOther:  0,
	}, nil
}
