package paper

import (
	"context"
	"testing"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

func TestPlaceOrderFillsAtMid(t *testing.T) {
	v := New("primary", Book{
		Tickers: map[string]venue.Ticker{
			"ETH": {Symbol: "ETH", Bid: 99, Ask: 101},
		},
	})

	result, err := v.PlaceOrder(context.Background(), venue.OrderRequest{
		ClientID: "primary:ETH:1",
		Symbol:   "ETH",
		Side:     venue.Buy,
		Size:     2,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.AverageFillPrice != 100 {
		t.Errorf("expected fill at mid 100, got %v", result.AverageFillPrice)
	}
	if result.FilledSize != 2 {
		t.Errorf("expected full fill of 2, got %v", result.FilledSize)
	}

	positions, err := v.GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Side != venue.Buy || positions[0].Size != 2 {
		t.Fatalf("unexpected positions: %+v", positions)
	}
}

func TestPlaceOrderFlattensPosition(t *testing.T) {
	v := New("primary", Book{
		Tickers: map[string]venue.Ticker{"ETH": {Symbol: "ETH", Bid: 100, Ask: 100}},
	})
	ctx := context.Background()
	if _, err := v.PlaceOrder(ctx, venue.OrderRequest{Symbol: "ETH", Side: venue.Buy, Size: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := v.PlaceOrder(ctx, venue.OrderRequest{Symbol: "ETH", Side: venue.Sell, Size: 1}); err != nil {
		t.Fatal(err)
	}
	positions, _ := v.GetPositions(ctx)
	if len(positions) != 0 {
		t.Fatalf("expected flat position, got %+v", positions)
	}
}

func TestFundingStreamClosesAfterOneSnapshotPerSymbol(t *testing.T) {
	v := New("hedge", Book{Fundings: map[string]float64{"ETH": 12.5}})
	ch, err := v.FundingStream(context.Background(), []string{"ETH", "BTC"})
	if err != nil {
		t.Fatal(err)
	}
	var got []venue.FundingUpdate
	for u := range ch {
		got = append(got, u)
	}
	if len(got) != 1 || got[0].Symbol != "ETH" || got[0].RateBps != 12.5 {
		t.Fatalf("unexpected funding updates: %+v", got)
	}
}
