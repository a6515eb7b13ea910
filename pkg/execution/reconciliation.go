package execution

import (
	"fmt"
	"math"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// defaultTolerance is the fractional imbalance threshold between legs.
const defaultTolerance = 0.02

// FillReconciliation is the Reconciler's verdict on one pair of leg fills.
type FillReconciliation struct {
	PrimaryFilled   float64
	HedgeFilled     float64
	Imbalance       float64
	NeedsCorrection bool
	CorrectionSide  venue.Side
	CorrectionVenue string // "primary" or "hedge"
	CorrectionSize  float64
	ReduceOnly      bool
}

// Reconciler compares intended vs. actual fills and decides whether a
// makeup order is needed.
type Reconciler struct {
	tolerance float64
}

// NewReconciler constructs a Reconciler. tolerance <= 0 defaults to 0.02.
func NewReconciler(tolerance float64) *Reconciler {
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	return &Reconciler{tolerance: tolerance}
}

// CheckFills compares both legs' fills against the tolerance.
// legPrimary/legHedge are the original order requests, supplying both the
// intended sizes and the sides each leg was trying to take.
func (r *Reconciler) CheckFills(primaryResult, hedgeResult venue.OrderResult, legPrimary, legHedge venue.OrderRequest) FillReconciliation {
	primaryFilled := primaryResult.FilledSize
	hedgeFilled := hedgeResult.FilledSize

	imbalance := math.Abs(primaryFilled - hedgeFilled)
	avg := (primaryFilled + hedgeFilled) / 2

	rec := FillReconciliation{
		PrimaryFilled: primaryFilled,
		HedgeFilled:   hedgeFilled,
		Imbalance:     imbalance,
	}

	if avg <= 0 {
		return rec
	}
	if imbalance/avg <= r.tolerance {
		return rec
	}

	rec.NeedsCorrection = true
	rec.CorrectionSize = imbalance

	under, underLeg := legPrimary, "primary"
	over, overLeg := legHedge, "hedge"
	overFilled := hedgeFilled
	if primaryFilled > hedgeFilled {
		under, underLeg = legHedge, "hedge"
		over, overLeg = legPrimary, "primary"
		overFilled = primaryFilled
	}

	if overFilled > over.Size {
		// Over-fill (possible with stop-limit semantics): the over-filled leg
		// receives a reduce-only order on the opposite side.
		rec.CorrectionVenue = overLeg
		rec.CorrectionSide = over.Side.Opposite()
		rec.ReduceOnly = true
		return rec
	}

	// Under-fill: the lagging leg receives a makeup order on the same side it
	// was originally trying to take, increasing its filled quantity.
	rec.CorrectionVenue = underLeg
	rec.CorrectionSide = under.Side
	return rec
}

// BuildCorrectionOrder constructs the makeup OrderRequest for rec, with a
// "correction:{target}:{symbol}:{unix_epoch_s}" client id.
func (r *Reconciler) BuildCorrectionOrder(symbol string, rec FillReconciliation, unixEpochSeconds int64) venue.OrderRequest {
	return venue.OrderRequest{
		ClientID:    fmt.Sprintf("correction:%s:%s:%d", rec.CorrectionVenue, symbol, unixEpochSeconds),
		Symbol:      symbol,
		Side:        rec.CorrectionSide,
		Size:        rec.CorrectionSize,
		OrderType:   venue.Market,
		ReduceOnly:  rec.ReduceOnly,
		TimeInForce: venue.IOC,
	}
}
