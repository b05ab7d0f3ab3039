package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/wardenlabs/warden/internal/domain"
)

// DefaultDriftThreshold is the allocation drift, in percentage points, below
// which no trade is suggested. Trading smaller drifts costs more in fees than
// the correction is worth.
const DefaultDriftThreshold = 1.0

// Trade is one suggested rebalancing action. Trades are advisory: the
// rebalancer never executes transfers, it returns the plan for a human or an
// external transaction layer to act on.
type Trade struct {
	AssetType  string                 `json:"asset_type"`
	Action     domain.TransactionType `json:"action"` // buy or sell
	Percentage float64                `json:"percentage"`
	Current    float64                `json:"current"`
	Target     float64                `json:"target"`
	Reason     string                 `json:"reason"`
}

// RebalancePlan is the full output of a rebalance computation.
type RebalancePlan struct {
	PortfolioID string            `json:"portfolio_id"`
	Trades      []Trade           `json:"trades"`
	Current     domain.Allocation `json:"current"`
	Target      domain.Allocation `json:"target"`
}

// CalculateRebalancing computes the trades needed to move the current
// allocation to the target. A trade is emitted for every asset class present
// in either map whose drift exceeds the threshold.
//
// Output is sorted by asset class name: identical inputs always produce an
// identical, identically-ordered trade list.
func CalculateRebalancing(current, target domain.Allocation, threshold float64) []Trade {
	classes := make(map[string]bool, len(current)+len(target))
	for class := range current {
		classes[class] = true
	}
	for class := range target {
		classes[class] = true
	}

	names := make([]string, 0, len(classes))
	for class := range classes {
		names = append(names, class)
	}
	sort.Strings(names)

	trades := make([]Trade, 0, len(names))
	for _, class := range names {
		cur := current[class]
		tgt := target[class]
		difference := tgt - cur

		if math.Abs(difference) <= threshold {
			continue
		}

		trade := Trade{
			AssetType:  class,
			Percentage: math.Abs(difference),
			Current:    cur,
			Target:     tgt,
		}
		if difference > 0 {
			trade.Action = domain.TxBuy
			trade.Reason = fmt.Sprintf("underweight by %.2f points", difference)
		} else {
			trade.Action = domain.TxSell
			trade.Reason = fmt.Sprintf("overweight by %.2f points", -difference)
		}
		trades = append(trades, trade)
	}

	return trades
}
