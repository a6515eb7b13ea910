package rebalance

import (
	"math"
	"testing"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

func TestDetectDriftScenario(t *testing.T) {
	primary := venue.Position{Symbol: "ETH", Side: venue.Buy, Size: 1.0}
	hedge := venue.Position{Symbol: "ETH", Side: venue.Sell, Size: 0.98}

	drift := DetectDrift("ETH", primary, hedge, 50)
	if math.Abs(drift.DriftBps-202.02) > 0.1 {
		t.Errorf("expected drift_bps ~202, got %v", drift.DriftBps)
	}
	if !drift.NeedsRebalance {
		t.Fatal("expected rebalance needed")
	}

	action := PlanRebalance(drift)
	if action == nil {
		t.Fatal("expected a rebalance action")
	}
	if action.Side != venue.Sell || math.Abs(action.Quantity-0.02) > 1e-9 {
		t.Errorf("expected SELL 0.02, got %+v", action)
	}
	if action.Venue != "hedge" {
		t.Errorf("expected correction venue hedge, got %s", action.Venue)
	}
}

func TestDetectDriftNoRebalanceBelowThreshold(t *testing.T) {
	primary := venue.Position{Symbol: "ETH", Side: venue.Buy, Size: 1.0}
	hedge := venue.Position{Symbol: "ETH", Side: venue.Sell, Size: 1.0}

	drift := DetectDrift("ETH", primary, hedge, 50)
	if drift.NeedsRebalance {
		t.Fatal("expected no rebalance for perfectly matched positions")
	}
	if PlanRebalance(drift) != nil {
		t.Fatal("expected nil action when rebalance not needed")
	}
}

func TestPlanRebalanceNetShortYieldsBuy(t *testing.T) {
	primary := venue.Position{Symbol: "ETH", Side: venue.Sell, Size: 1.0}
	hedge := venue.Position{Symbol: "ETH", Side: venue.Buy, Size: 0.9}

	drift := DetectDrift("ETH", primary, hedge, 10)
	action := PlanRebalance(drift)
	if action == nil || action.Side != venue.Buy {
		t.Fatalf("expected BUY action for net-short drift, got %+v", action)
	}
}
