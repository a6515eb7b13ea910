package risk

import (
	"fmt"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// PreTradeCheck sums position notionals across both venues and rejects the
// candidate if it would breach the configured caps.
func PreTradeCheck(primaryPositions, hedgePositions []venue.Position, candidateSymbol string, candidateNotionalUSD, maxTotalNotional, maxSymbolNotional float64, priceLookup func(symbol string) float64) error {
	total := 0.0
	symbolTotal := 0.0

	for _, p := range primaryPositions {
		notional := p.Size * priceLookup(p.Symbol)
		total += notional
		if p.Symbol == candidateSymbol {
			symbolTotal += notional
		}
	}
	for _, p := range hedgePositions {
		notional := p.Size * priceLookup(p.Symbol)
		total += notional
		if p.Symbol == candidateSymbol {
			symbolTotal += notional
		}
	}

	if total+candidateNotionalUSD > maxTotalNotional {
		return fmt.Errorf("risk: candidate notional %v for %s would breach max_total_notional %v (current total %v)", candidateNotionalUSD, candidateSymbol, maxTotalNotional, total)
	}
	if symbolTotal+candidateNotionalUSD > maxSymbolNotional {
		return fmt.Errorf("risk: candidate notional %v for %s would breach max_symbol_notional %v (current symbol total %v)", candidateNotionalUSD, candidateSymbol, maxSymbolNotional, symbolTotal)
	}
	return nil
}
