package sizing

import (
	"math"
	"testing"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

func TestCalculateQuantity(t *testing.T) {
	spec := venue.SymbolSpec{Symbol: "ETH", LotSize: 0.001}
	qty, err := CalculateQuantity(10_000, 2_500, spec)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(qty-4.0) > 1e-9 {
		t.Fatalf("expected 4.000, got %v", qty)
	}
}

func TestCalculateQuantityRejectsZeroMid(t *testing.T) {
	if _, err := CalculateQuantity(10_000, 0, venue.SymbolSpec{LotSize: 0.001}); err == nil {
		t.Fatal("expected error for mid price <= 0")
	}
}

func TestCalculateQuantityFloorsToLotSize(t *testing.T) {
	spec := venue.SymbolSpec{LotSize: 0.01}
	qty, err := CalculateQuantity(105, 100, spec) // raw = 1.05, floor to 1.05 exactly
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(qty-1.05) > 1e-9 {
		t.Fatalf("expected 1.05, got %v", qty)
	}
}

func TestGetCoordinatedPrices(t *testing.T) {
	primary := venue.Ticker{Symbol: "ETH", Bid: 99, Ask: 101}  // mid 100
	hedge := venue.Ticker{Symbol: "ETH", Bid: 104, Ask: 106}   // mid 105
	// spread = 5 / 102.5 * 10^4 ~= 487.8 bps
	coords := GetCoordinatedPrices(primary, hedge, 500)
	if !coords.Acceptable {
		t.Fatalf("expected acceptable spread, got %+v", coords)
	}

	tight := GetCoordinatedPrices(primary, hedge, 1)
	if tight.Acceptable {
		t.Fatalf("expected unacceptable spread under tight max, got %+v", tight)
	}
}

func TestCalculateLimitPrices(t *testing.T) {
	coords := CoordinatedPrice{PrimaryMid: 100, HedgeMid: 200}
	primaryPx, hedgePx := CalculateLimitPrices(coords, true, false, 100) // 1% slippage
	if math.Abs(primaryPx-101) > 1e-9 {
		t.Errorf("expected buy-side primary price 101, got %v", primaryPx)
	}
	wantHedge := 200 / 1.01
	if math.Abs(hedgePx-wantHedge) > 1e-9 {
		t.Errorf("expected sell-side hedge price %v, got %v", wantHedge, hedgePx)
	}
}
