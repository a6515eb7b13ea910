// Package rebalance implements drift detection and corrective order
// planning. The correction venue is always the hedge venue; picking the
// cheaper leg instead is a possible refinement, not done here.
package rebalance

import (
	"context"
	"fmt"
	"math"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// PositionDrift is the result of comparing both venues' positions for one
// symbol.
type PositionDrift struct {
	Symbol          string
	PrimarySize     float64
	PrimarySide     venue.Side
	HedgeSize       float64
	HedgeSide       venue.Side
	DriftQuantity   float64 // signed total exposure
	DriftBps        float64
	NeedsRebalance bool
}

// DetectDrift compares both venues' signed positions for one symbol.
func DetectDrift(symbol string, primary, hedge venue.Position, thresholdBps float64) PositionDrift {
	signedPrimary := primary.SignedSize()
	signedHedge := hedge.SignedSize()

	total := signedPrimary + signedHedge
	avgSize := (math.Abs(signedPrimary) + math.Abs(signedHedge)) / 2

	var driftBps float64
	if avgSize != 0 {
		driftBps = math.Abs(total) / avgSize * 10_000
	}

	return PositionDrift{
		Symbol:         symbol,
		PrimarySize:    primary.Size,
		PrimarySide:    primary.Side,
		HedgeSize:      hedge.Size,
		HedgeSide:      hedge.Side,
		DriftQuantity:  total,
		DriftBps:       driftBps,
		NeedsRebalance: driftBps >= thresholdBps,
	}
}

// Action is a planned corrective order, always on the hedge venue.
type Action struct {
	Symbol   string
	Venue    string // always "hedge" — see package doc
	Side     venue.Side
	Quantity float64
}

// PlanRebalance turns detected drift into a corrective order: net long
// (total > 0) yields a SELL on the hedge venue; net short yields a BUY.
// Returns nil if drift.NeedsRebalance is false.
func PlanRebalance(drift PositionDrift) *Action {
	if !drift.NeedsRebalance {
		return nil
	}

	side := venue.Buy
	if drift.DriftQuantity > 0 {
		side = venue.Sell
	}

	return &Action{
		Symbol:   drift.Symbol,
		Venue:    "hedge",
		Side:     side,
		Quantity: math.Abs(drift.DriftQuantity),
	}
}

// ExecuteRebalance places action as an IOC limit order on hedgeAdapter, at
// midPrice adjusted by slippageBps in the direction of action.Side.
func ExecuteRebalance(ctx context.Context, hedgeAdapter venue.Adapter, action Action, midPrice, slippageBps float64, unixEpochSeconds int64) (venue.OrderResult, error) {
	factor := 1 + slippageBps/10_000
	limitPrice := midPrice * factor
	if action.Side == venue.Sell {
		limitPrice = midPrice / factor
	}

	req := venue.OrderRequest{
		ClientID:    fmt.Sprintf("rebalance:hedge:%s:%d", action.Symbol, unixEpochSeconds),
		Symbol:      action.Symbol,
		Side:        action.Side,
		Size:        action.Quantity,
		OrderType:   venue.Limit,
		Price:       &limitPrice,
		TimeInForce: venue.IOC,
	}
	return hedgeAdapter.PlaceOrder(ctx, req)
}
