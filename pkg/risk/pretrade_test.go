package risk

import (
	"strings"
	"testing"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

func fixedPrice(string) float64 { return 2500 }

func TestPreTradeCheckPasses(t *testing.T) {
	primary := []venue.Position{{Symbol: "ETH", Side: venue.Sell, Size: 0.4}}
	hedge := []venue.Position{{Symbol: "ETH", Side: venue.Buy, Size: 0.4}}

	err := PreTradeCheck(primary, hedge, "BTC", 1000, 10_000, 3_000, fixedPrice)
	if err != nil {
		t.Fatalf("expected check to pass, got %v", err)
	}
}

func TestPreTradeCheckRejectsTotalBreach(t *testing.T) {
	primary := []venue.Position{{Symbol: "ETH", Side: venue.Sell, Size: 2}}
	hedge := []venue.Position{{Symbol: "ETH", Side: venue.Buy, Size: 2}}

	// 4 * 2500 = 10_000 already deployed; any candidate breaches the cap.
	err := PreTradeCheck(primary, hedge, "BTC", 500, 10_000, 3_000, fixedPrice)
	if err == nil || !strings.Contains(err.Error(), "max_total_notional") {
		t.Fatalf("expected max_total_notional rejection, got %v", err)
	}
}

func TestPreTradeCheckRejectsSymbolBreach(t *testing.T) {
	primary := []venue.Position{{Symbol: "ETH", Side: venue.Sell, Size: 1}}

	err := PreTradeCheck(primary, nil, "ETH", 1000, 100_000, 3_000, fixedPrice)
	if err == nil || !strings.Contains(err.Error(), "max_symbol_notional") {
		t.Fatalf("expected max_symbol_notional rejection, got %v", err)
	}
}
