package strategy

import "testing"

func TestEvaluateEntryThenExit(t *testing.T) {
	e, err := NewEngine(20, 5)
	if err != nil {
		t.Fatal(err)
	}

	d := e.Evaluate(FundingSnapshot{Symbol: "ETH", PrimaryRateBps: 50, HedgeRateBps: 10}, 1000)
	if d == nil {
		t.Fatal("expected enter decision")
	}
	if d.Action != ActionEnter || d.EdgeBps != 40 || d.Direction != LongHedgeShortPrimary || d.SizeUSD != 1000 {
		t.Fatalf("unexpected decision: %+v", d)
	}

	d2 := e.Evaluate(FundingSnapshot{Symbol: "ETH", PrimaryRateBps: 5, HedgeRateBps: 4}, 1000)
	if d2 == nil || d2.Action != ActionExit || d2.EdgeBps != 1 {
		t.Fatalf("expected exit decision, got %+v", d2)
	}
	if e.IsOpen("ETH") {
		t.Fatal("expected ETH to be closed after exit")
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	e, err := NewEngine(20, 5)
	if err != nil {
		t.Fatal(err)
	}
	d := e.Evaluate(FundingSnapshot{Symbol: "BTC", PrimaryRateBps: 10, HedgeRateBps: 5}, 1000)
	if d != nil {
		t.Fatalf("expected no decision below threshold, got %+v", d)
	}
}

func TestEvaluateNoDoubleEnter(t *testing.T) {
	e, err := NewEngine(20, 5)
	if err != nil {
		t.Fatal(err)
	}
	if d := e.Evaluate(FundingSnapshot{Symbol: "ETH", PrimaryRateBps: 50, HedgeRateBps: 10}, 1000); d == nil {
		t.Fatal("expected first enter")
	}
	// Edge still well above exit threshold: engine must emit nothing, not a
	// second enter.
	if d := e.Evaluate(FundingSnapshot{Symbol: "ETH", PrimaryRateBps: 48, HedgeRateBps: 9}, 1000); d != nil {
		t.Fatalf("expected no decision while already open, got %+v", d)
	}
}

func TestEvaluateTieBreaks(t *testing.T) {
	e, err := NewEngine(20, 5)
	if err != nil {
		t.Fatal(err)
	}
	// Edge exactly equal to min_edge_bps is an entry.
	d := e.Evaluate(FundingSnapshot{Symbol: "SOL", PrimaryRateBps: 20, HedgeRateBps: 0}, 500)
	if d == nil || d.Action != ActionEnter {
		t.Fatalf("expected entry at edge == min_edge_bps, got %+v", d)
	}
	// Edge exactly equal to exit_edge_bps is an exit.
	d2 := e.Evaluate(FundingSnapshot{Symbol: "SOL", PrimaryRateBps: 5, HedgeRateBps: 0}, 500)
	if d2 == nil || d2.Action != ActionExit {
		t.Fatalf("expected exit at edge == exit_edge_bps, got %+v", d2)
	}
}

func TestNewEngineRejectsBadHysteresis(t *testing.T) {
	if _, err := NewEngine(5, 20); err == nil {
		t.Fatal("expected error when exit_edge_bps >= min_edge_bps")
	}
	if _, err := NewEngine(5, 5); err == nil {
		t.Fatal("expected error when exit_edge_bps == min_edge_bps")
	}
}
