// Package pricing holds the bid guardrail, recommendation and allocation
// rules for the bid-based purchase flow, plus the older margin-based
// quantity adjustment used by the legacy single-rate flow. Everything here
// is pure: no storage, no clocks, no goroutines.
//
// All rate arithmetic runs on decimals. The band edges are defined as exact
// fractions of the locked rate (0.70 and 1.30, both inclusive) and float64
// multiplication does not land on them (100*0.7 != 70 in float64).
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
)

var (
	bandLow    = decimal.New(70, -2)  // 0.70
	bandHigh   = decimal.New(130, -2) // 1.30
	tenPercent = decimal.New(10, -2)  // 0.10
)

// ValidateBid reports whether a bid is inside the guardrail band
// [0.70*lockedRate, 1.30*lockedRate], boundaries included. Bids outside the
// band stay stored but are never eligible for recommendation.
func ValidateBid(bidRate, lockedRate float64) bool {
	bid := decimal.NewFromFloat(bidRate)
	rate := decimal.NewFromFloat(lockedRate)
	return bid.GreaterThanOrEqual(rate.Mul(bandLow)) &&
		bid.LessThanOrEqual(rate.Mul(bandHigh))
}

// Recommend recomputes the recommendation for one line item's bids, in
// place: every bid is reset to PENDING, then the cheapest bid passing the
// guardrail (first submitted wins ties, so bids must arrive in insertion
// order) becomes RECOMMENDED. Returns the recommended bid, or nil when no
// bid passes validation.
//
// Callers must not invoke this once any bid on the order is APPROVED;
// approval freezes recommendations for the whole order.
func Recommend(lockedRate float64, bids []*entity.Bid) *entity.Bid {
	for _, b := range bids {
		b.Status = entity.BidStatusPending
	}

	var best *entity.Bid
	for _, b := range bids {
		if !ValidateBid(b.BidRate, lockedRate) {
			continue
		}
		if best == nil || b.BidRate < best.BidRate {
			best = b
		}
	}
	if best != nil {
		best.Status = entity.BidStatusRecommended
	}
	return best
}

// Allocate computes the quantity fulfilled against a line item at the moment
// its bid is approved:
//
//   - bid at or below 70% of the locked rate: the buy is cheap enough to
//     fill the full requested quantity;
//   - bid above the locked rate (a losing-margin trade): only 10% of the
//     requested quantity, to cap exposure;
//   - anything between: full requested quantity.
func Allocate(requestedQuantity, lockedRate, bidRate float64) float64 {
	bid := decimal.NewFromFloat(bidRate)
	rate := decimal.NewFromFloat(lockedRate)

	switch {
	case bid.LessThanOrEqual(rate.Mul(bandLow)):
		return requestedQuantity
	case bid.GreaterThan(rate):
		allocated, _ := decimal.NewFromFloat(requestedQuantity).Mul(tenPercent).Float64()
		return allocated
	default:
		return requestedQuantity
	}
}
