package pricing

import (
	"errors"
	"testing"

	"github.com/aiengrshafiq/blue-marina-mvp/internal/marina/entity"
)

func TestValidateBidBand(t *testing.T) {
	cases := []struct {
		name       string
		bidRate    float64
		lockedRate float64
		want       bool
	}{
		{"lower boundary inclusive", 70, 100, true},
		{"upper boundary inclusive", 130, 100, true},
		{"just below band", 69.99, 100, false},
		{"just above band", 130.01, 100, false},
		{"inside band", 100, 100, true},
		{"well below", 50, 100, false},
		{"non-integer rate lower boundary", 58.1, 83, true}, // 83 * 0.70 = 58.10
		{"non-integer rate above band", 107.91, 83, false},  // 83 * 1.30 = 107.90
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateBid(tc.bidRate, tc.lockedRate); got != tc.want {
				t.Fatalf("ValidateBid(%v, %v) = %v, want %v", tc.bidRate, tc.lockedRate, got, tc.want)
			}
		})
	}
}

func TestRecommendPicksLowestValidBid(t *testing.T) {
	bids := []*entity.Bid{
		{ID: "b1", BidRate: 100, Status: entity.BidStatusRecommended}, // stale recommendation
		{ID: "b2", BidRate: 90},
		{ID: "b3", BidRate: 60}, // below band, excluded
	}

	best := Recommend(100, bids)

	if best == nil || best.ID != "b2" {
		t.Fatalf("expected bid b2 recommended, got %+v", best)
	}
	if bids[0].Status != entity.BidStatusPending {
		t.Fatalf("stale recommendation not reset: %s", bids[0].Status)
	}
	if bids[1].Status != entity.BidStatusRecommended {
		t.Fatalf("lowest valid bid not recommended: %s", bids[1].Status)
	}
	if bids[2].Status != entity.BidStatusPending {
		t.Fatalf("invalid bid should stay PENDING, got %s", bids[2].Status)
	}
}

func TestRecommendTieBreakKeepsFirstSubmitted(t *testing.T) {
	bids := []*entity.Bid{
		{ID: "first", BidRate: 85},
		{ID: "second", BidRate: 85},
	}

	best := Recommend(100, bids)
	if best == nil || best.ID != "first" {
		t.Fatalf("tie must go to the first submitted bid, got %+v", best)
	}
}

func TestRecommendNoValidBids(t *testing.T) {
	bids := []*entity.Bid{
		{ID: "b1", BidRate: 10, Status: entity.BidStatusRecommended},
		{ID: "b2", BidRate: 500},
	}

	if best := Recommend(100, bids); best != nil {
		t.Fatalf("expected no recommendation, got %+v", best)
	}
	for _, b := range bids {
		if b.Status != entity.BidStatusPending {
			t.Fatalf("bid %s should be reset to PENDING, got %s", b.ID, b.Status)
		}
	}
}

func TestRecommendIsIdempotent(t *testing.T) {
	bids := []*entity.Bid{
		{ID: "b1", BidRate: 95},
		{ID: "b2", BidRate: 90},
	}

	Recommend(100, bids)
	Recommend(100, bids)

	if bids[0].Status != entity.BidStatusPending || bids[1].Status != entity.BidStatusRecommended {
		t.Fatalf("re-running recommend changed the outcome: %s / %s", bids[0].Status, bids[1].Status)
	}
}

func TestAllocate(t *testing.T) {
	cases := []struct {
		name      string
		requested float64
		locked    float64
		bid       float64
		want      float64
	}{
		{"deep discount fills full", 200, 100, 69, 200},
		{"exact 70 percent belongs to the cheap branch", 200, 100, 70, 200},
		{"bid at locked rate still fills full", 200, 100, 100, 200},
		{"bid above locked rate caps at 10 percent", 200, 100, 100.01, 20},
		{"mid band fills full", 200, 100, 85, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allocate(tc.requested, tc.locked, tc.bid); got != tc.want {
				t.Fatalf("Allocate(%v, %v, %v) = %v, want %v", tc.requested, tc.locked, tc.bid, got, tc.want)
			}
		})
	}
}

func TestAdjustedQuantity(t *testing.T) {
	rates := map[string]float64{"Fish": 100}

	cases := []struct {
		name       string
		buyRate    float64
		wantQty    int
		wantMargin float64
	}{
		{"fat margin rewards 5 percent, truncated", 60, 10, 40}, // 10*1.05 = 10.5 -> 10
		{"thin margin halves the fill", 95, 5, 5},
		{"ordinary margin unchanged", 80, 10, 20},
		{"margin 30 boundary belongs to the reward branch", 70, 10, 30},
		{"margin 10 boundary keeps quantity", 90, 10, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qty, margin, err := AdjustedQuantity("Fish", 10, tc.buyRate, rates)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if qty != tc.wantQty {
				t.Fatalf("quantity = %d, want %d", qty, tc.wantQty)
			}
			if margin != tc.wantMargin {
				t.Fatalf("margin = %v, want %v", margin, tc.wantMargin)
			}
		})
	}
}

func TestAdjustedQuantityUnknownCategory(t *testing.T) {
	if _, _, err := AdjustedQuantity("Spices", 10, 50, map[string]float64{"Fish": 100}); !errors.Is(err, ErrSellingRateNotConfigured) {
		t.Fatalf("expected ErrSellingRateNotConfigured, got %v", err)
	}
	if _, _, err := AdjustedQuantity("Fish", 10, 50, map[string]float64{"Fish": 0}); !errors.Is(err, ErrSellingRateNotConfigured) {
		t.Fatalf("zero rate must be refused, got %v", err)
	}
}
