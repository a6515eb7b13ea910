package persistence

import (
	"path/filepath"
	"testing"
)

func TestLedgerRecordAndTotals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnl.json")
	ledger := NewLedger(path)

	ledger.RecordTrade("ETH", "primary", "buy", 1.0, 2500, 1.25, true)
	ledger.RecordFunding("ETH", "hedge", 12.5, 10.0, 1.0)

	totals := ledger.GetTotalPnL()
	if totals.TotalFees != 1.25 {
		t.Errorf("expected total fees 1.25, got %v", totals.TotalFees)
	}
	if totals.TotalFunding != 10.0 {
		t.Errorf("expected total funding 10.0, got %v", totals.TotalFunding)
	}
	if totals.RealizedPnL != 10.0 {
		t.Errorf("expected realized pnl 10.0, got %v", totals.RealizedPnL)
	}
}

func TestLedgerPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnl.json")
	ledger := NewLedger(path)
	ledger.RecordFunding("ETH", "hedge", 12.5, 42.0, 1.0)

	reloaded := NewLedger(path)
	totals := reloaded.GetTotalPnL()
	if totals.TotalFunding != 42.0 {
		t.Fatalf("expected funding to persist across reload, got %v", totals.TotalFunding)
	}
}

func TestLedgerPositionPnL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnl.json")
	ledger := NewLedger(path)
	ledger.RecordTrade("ETH", "primary", "buy", 1.0, 2500, 1.0, true)
	ledger.RecordFunding("ETH", "hedge", 12.5, 5.0, 1.0)

	pnl := ledger.PositionPnL("ETH", 1.0, 2500, 2550, -1.0, 2500, 2550)
	// Unrealized: primary (2550-2500)*1 + hedge (2550-2500)*-1 = 50 - 50 = 0
	if pnl.UnrealizedPnL != 0 {
		t.Errorf("expected delta-neutral unrealized pnl 0, got %v", pnl.UnrealizedPnL)
	}
	if pnl.FundingEarned != 5.0 {
		t.Errorf("expected funding earned 5.0, got %v", pnl.FundingEarned)
	}
	if pnl.FeesPaid != 1.0 {
		t.Errorf("expected fees paid 1.0, got %v", pnl.FeesPaid)
	}
	if pnl.NetPnL != 4.0 {
		t.Errorf("expected net pnl 4.0 (0 + 5 - 1), got %v", pnl.NetPnL)
	}
}
