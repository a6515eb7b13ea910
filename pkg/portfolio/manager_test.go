package portfolio

import "testing"

func TestAllocateScalesAndOrdersByEdge(t *testing.T) {
	m := NewManager(10_000, 3_000, 3)
	allocations := m.Allocate([]Opportunity{
		{Symbol: "sym0", EdgeBps: 40},
		{Symbol: "sym1", EdgeBps: 30},
		{Symbol: "sym2", EdgeBps: 10},
	}, 1_000)

	if len(allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d: %+v", len(allocations), allocations)
	}
	if allocations[0].Symbol != "sym0" || allocations[0].AllocatedNotionalUSD != 2_000 || allocations[0].Priority != 0 {
		t.Errorf("unexpected first allocation: %+v", allocations[0])
	}
	if allocations[1].Symbol != "sym1" || allocations[1].AllocatedNotionalUSD != 1_500 || allocations[1].Priority != 1 {
		t.Errorf("unexpected second allocation: %+v", allocations[1])
	}
	if allocations[2].Symbol != "sym2" || allocations[2].AllocatedNotionalUSD != 500 || allocations[2].Priority != 2 {
		t.Errorf("unexpected third allocation: %+v", allocations[2])
	}
}

func TestAllocateSkipsAlreadyOpenSymbols(t *testing.T) {
	m := NewManager(10_000, 3_000, 5)
	m.RegisterPosition("ETH", 1_500)

	allocations := m.Allocate([]Opportunity{
		{Symbol: "ETH", EdgeBps: 40},
		{Symbol: "BTC", EdgeBps: 25},
	}, 1_000)

	if len(allocations) != 1 || allocations[0].Symbol != "BTC" {
		t.Fatalf("expected only BTC allocated, got %+v", allocations)
	}
}

func TestAllocateRespectsMaxPositions(t *testing.T) {
	m := NewManager(100_000, 50_000, 2)
	m.RegisterPosition("OPEN1", 1_000)

	allocations := m.Allocate([]Opportunity{
		{Symbol: "A", EdgeBps: 40},
		{Symbol: "B", EdgeBps: 30},
	}, 1_000)

	if len(allocations) != 1 {
		t.Fatalf("expected only 1 new allocation (1 open + 1 new = max 2), got %+v", allocations)
	}
}

func TestAllocateCapsAgainstTotalNotional(t *testing.T) {
	m := NewManager(2_200, 3_000, 5)

	allocations := m.Allocate([]Opportunity{
		{Symbol: "A", EdgeBps: 40}, // wants 2000
		{Symbol: "B", EdgeBps: 40}, // wants 2000, remaining would be 200 < 0.5*1000 -> stop
	}, 1_000)

	if len(allocations) != 1 || allocations[0].Symbol != "A" {
		t.Fatalf("expected only A allocated under total cap, got %+v", allocations)
	}
}

func TestAllocateTruncatesToRemainingWhenAboveHalfBase(t *testing.T) {
	m := NewManager(2_600, 3_000, 5)

	allocations := m.Allocate([]Opportunity{
		{Symbol: "A", EdgeBps: 40}, // wants 2000, running=2000
		{Symbol: "B", EdgeBps: 40}, // wants 2000, remaining=600 >= 500 -> truncate to 600
	}, 1_000)

	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %+v", allocations)
	}
	if allocations[1].AllocatedNotionalUSD != 600 {
		t.Errorf("expected truncated allocation of 600, got %v", allocations[1].AllocatedNotionalUSD)
	}
}

func TestCloseAndCapacity(t *testing.T) {
	m := NewManager(10_000, 3_000, 5)
	m.RegisterPosition("ETH", 2_000)
	if got := m.GetAvailableCapacity(); got != 8_000 {
		t.Fatalf("expected capacity 8000, got %v", got)
	}
	m.ClosePosition("ETH")
	if got := m.GetAvailableCapacity(); got != 10_000 {
		t.Fatalf("expected capacity 10000 after close, got %v", got)
	}
}
