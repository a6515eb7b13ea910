// Package sizing converts USD notionals into venue-legal order quantities
// and prices.
package sizing

import (
	"fmt"
	"math"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// CalculateQuantity converts a USD notional into a base-asset quantity
// rounded down to a multiple of spec.LotSize. If spec.LotSize is zero the
// raw quantity is returned unrounded.
func CalculateQuantity(notionalUSD, midPrice float64, spec venue.SymbolSpec) (float64, error) {
	if midPrice <= 0 {
		return 0, fmt.Errorf("sizing: mid price must be > 0, got %v", midPrice)
	}
	raw := notionalUSD / midPrice
	if spec.LotSize <= 0 {
		return raw, nil
	}
	lots := math.Floor(raw / spec.LotSize)
	return lots * spec.LotSize, nil
}

// RoundPrice rounds price to the nearest multiple of spec.TickSize. If
// spec.TickSize is zero, price is returned unchanged.
func RoundPrice(price float64, spec venue.SymbolSpec) float64 {
	if spec.TickSize <= 0 {
		return price
	}
	return math.Round(price/spec.TickSize) * spec.TickSize
}

// CoordinatedPrice is the result of comparing both venues' current mids for
// one symbol.
type CoordinatedPrice struct {
	PrimaryMid float64
	HedgeMid   float64
	SpreadBps  float64
	Acceptable bool
}

// GetCoordinatedPrices computes the cross-venue spread from one ticker per
// venue. Callers must skip execution when Acceptable is false.
func GetCoordinatedPrices(primary, hedge venue.Ticker, maxSpreadBps float64) CoordinatedPrice {
	primaryMid := primary.Mid()
	hedgeMid := hedge.Mid()
	avgMid := (primaryMid + hedgeMid) / 2

	var spreadBps float64
	if avgMid != 0 {
		spreadBps = math.Abs(primaryMid-hedgeMid) / avgMid * 10_000
	}

	return CoordinatedPrice{
		PrimaryMid: primaryMid,
		HedgeMid:   hedgeMid,
		SpreadBps:  spreadBps,
		Acceptable: spreadBps <= maxSpreadBps,
	}
}

// CalculateLimitPrices applies a slippage allowance to each leg
// independently: the price is multiplied by (1 + slippage) when buying and
// divided by it when selling. Results are not tick-rounded here; callers
// should pass the result through RoundPrice with the relevant venue's spec.
func CalculateLimitPrices(coords CoordinatedPrice, isBuyPrimary, isBuyHedge bool, slippageBps float64) (primaryPx, hedgePx float64) {
	factor := 1 + slippageBps/10_000

	if isBuyPrimary {
		primaryPx = coords.PrimaryMid * factor
	} else {
		primaryPx = coords.PrimaryMid / factor
	}

	if isBuyHedge {
		hedgePx = coords.HedgeMid * factor
	} else {
		hedgePx = coords.HedgeMid / factor
	}

	return primaryPx, hedgePx
}
