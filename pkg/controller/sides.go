package controller

import (
	"github.com/Gajesh2007/funding-arb-bot/pkg/strategy"
	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// legSides returns the (primary, hedge) order sides for a decision's
// direction. isEntry=false flips both sides to flatten an existing position
// on exit.
func legSides(direction strategy.Direction, isEntry bool) (primary, hedge venue.Side) {
	switch direction {
	case strategy.LongPrimaryShortHedge:
		primary, hedge = venue.Buy, venue.Sell
	case strategy.LongHedgeShortPrimary:
		primary, hedge = venue.Sell, venue.Buy
	}
	if !isEntry {
		primary, hedge = primary.Opposite(), hedge.Opposite()
	}
	return primary, hedge
}
