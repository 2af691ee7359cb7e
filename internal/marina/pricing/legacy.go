package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrSellingRateNotConfigured is returned by AdjustedQuantity when the
// category has no positive selling rate. The caller must refuse the
// purchase rather than proceed with an undefined margin.
var ErrSellingRateNotConfigured = errors.New("selling rate not configured for category")

var (
	rewardFill  = decimal.New(105, -2) // 1.05
	penaltyFill = decimal.New(50, -2)  // 0.50
	hundred     = decimal.NewFromInt(100)
)

// AdjustedQuantity is the legacy per-order pricing rule: given a category's
// configured selling rate and the purchaser's buy rate, it derives the
// margin percentage and scales the quantity:
//
//	margin >= 30:       quantity * 1.05 (reward a cheap buy)
//	margin < 10:        quantity * 0.50 (penalize a thin margin)
//	10 <= margin < 30:  unchanged
//
// The result is truncated to an integer, never rounded. This rule and
// Allocate are two independently evolved policies over different aggregates
// (whole legacy order vs. per-line-item bid); they stay separate because
// their thresholds and trigger conditions genuinely differ.
func AdjustedQuantity(category string, quantity int, buyRate float64, sellingRates map[string]float64) (int, float64, error) {
	rate, ok := sellingRates[category]
	if !ok || rate == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrSellingRateNotConfigured, category)
	}

	selling := decimal.NewFromFloat(rate)
	margin := selling.Sub(decimal.NewFromFloat(buyRate)).Div(selling).Mul(hundred)

	qty := decimal.NewFromInt(int64(quantity))
	adjusted := int64(quantity)
	switch {
	case margin.GreaterThanOrEqual(decimal.NewFromInt(30)):
		adjusted = qty.Mul(rewardFill).IntPart()
	case margin.LessThan(decimal.NewFromInt(10)):
		adjusted = qty.Mul(penaltyFill).IntPart()
	}

	marginPct, _ := margin.Float64()
	return int(adjusted), marginPct, nil
}
