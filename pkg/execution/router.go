// Package execution implements the dual-leg order router and its
// reconciler: turning two independent, possibly-failing venue calls into
// one reconciled result while preserving the exclusive-position-per-symbol
// invariant.
package execution

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// DualLegIntent is the router's unit of work: matched orders for both
// venues, submitted concurrently. Only the sequential fallback after a
// failed parallel dispatch places the primary leg before the hedge leg.
type DualLegIntent struct {
	Symbol    string
	LegPrimary venue.OrderRequest
	LegHedge   venue.OrderRequest
}

// ExecutionResult is the reconciled outcome of a DualLegIntent.
type ExecutionResult struct {
	Primary    venue.OrderResult
	Hedge      venue.OrderResult
	IsBalanced bool
	Imbalance  float64
}

// ExecutionError surfaces a leg-attributable failure. Leg is one of
// "primary", "hedge", "parallel".
type ExecutionError struct {
	Leg     string
	Err     error
	Partial bool
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error on leg %s (partial=%v): %v", e.Leg, e.Partial, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Router dispatches both legs of an intent in parallel and reconciles the
// result.
type Router struct {
	primary     venue.Adapter
	hedge       venue.Adapter
	reconciler  *Reconciler
	autoReconcile bool
}

// NewRouter constructs a Router. autoReconcile controls whether a correction
// order is placed automatically when the reconciler reports an imbalance.
func NewRouter(primary, hedge venue.Adapter, reconciler *Reconciler, autoReconcile bool) *Router {
	return &Router{primary: primary, hedge: hedge, reconciler: reconciler, autoReconcile: autoReconcile}
}

type legResult struct {
	result venue.OrderResult
	err    error
}

// Execute dispatches both legs of intent and reconciles the outcome.
//
// Both legs are submitted concurrently via goroutines and joined before
// the router advances.
func (r *Router) Execute(ctx context.Context, intent DualLegIntent, unixEpochSeconds int64) (*ExecutionResult, error) {
	primaryRes, hedgeRes := r.dispatchParallel(ctx, intent)

	if primaryRes.err == nil && hedgeRes.err == nil {
		return r.reconcileAndMaybeCorrect(ctx, intent, primaryRes.result, hedgeRes.result, unixEpochSeconds)
	}

	// Parallel dispatch failed on at least one leg. Re-attempt sequentially,
	// primary first.
	log.Printf("[ExecutionRouter] parallel dispatch failed for %s (primary_err=%v hedge_err=%v), retrying sequentially", intent.Symbol, primaryRes.err, hedgeRes.err)

	seqPrimary, perr := r.primary.PlaceOrder(ctx, intent.LegPrimary)
	if perr != nil {
		return nil, &ExecutionError{Leg: "primary", Err: perr, Partial: false}
	}

	seqHedge, herr := r.hedge.PlaceOrder(ctx, intent.LegHedge)
	if herr != nil {
		r.attemptCancel(ctx, r.primary, seqPrimary.ExchangeOrderID)
		return nil, &ExecutionError{Leg: "hedge", Err: herr, Partial: true}
	}

	// Both legs succeeded on sequential retry after a parallel-dispatch
	// failure. Whether the position is actually open is ambiguous, so defer
	// to the reconciler's verdict: a balanced result is treated as success,
	// an imbalanced one surfaces as ExecutionError{leg=parallel}.
	rec := r.reconciler.CheckFills(seqPrimary, seqHedge, intent.LegPrimary, intent.LegHedge)
	if rec.NeedsCorrection {
		return nil, &ExecutionError{
			Leg:     "parallel",
			Err:     fmt.Errorf("sequential retry succeeded but fills are imbalanced: primary=%v hedge=%v", seqPrimary.FilledSize, seqHedge.FilledSize),
			Partial: true,
		}
	}
	return r.applyReconciliation(ctx, intent, seqPrimary, seqHedge, rec, unixEpochSeconds)
}

func (r *Router) dispatchParallel(ctx context.Context, intent DualLegIntent) (legResult, legResult) {
	var wg sync.WaitGroup
	var primaryRes, hedgeRes legResult

	wg.Add(2)
	go func() {
		defer wg.Done()
		res, err := r.primary.PlaceOrder(ctx, intent.LegPrimary)
		primaryRes = legResult{result: res, err: err}
	}()
	go func() {
		defer wg.Done()
		res, err := r.hedge.PlaceOrder(ctx, intent.LegHedge)
		hedgeRes = legResult{result: res, err: err}
	}()
	wg.Wait()

	return primaryRes, hedgeRes
}

func (r *Router) reconcileAndMaybeCorrect(ctx context.Context, intent DualLegIntent, primary, hedge venue.OrderResult, unixEpochSeconds int64) (*ExecutionResult, error) {
	rec := r.reconciler.CheckFills(primary, hedge, intent.LegPrimary, intent.LegHedge)
	return r.applyReconciliation(ctx, intent, primary, hedge, rec, unixEpochSeconds)
}

func (r *Router) applyReconciliation(ctx context.Context, intent DualLegIntent, primary, hedge venue.OrderResult, rec FillReconciliation, unixEpochSeconds int64) (*ExecutionResult, error) {
	result := &ExecutionResult{
		Primary:    primary,
		Hedge:      hedge,
		IsBalanced: !rec.NeedsCorrection,
		Imbalance:  rec.Imbalance,
	}

	if !rec.NeedsCorrection || !r.autoReconcile {
		return result, nil
	}

	correctionReq := r.reconciler.BuildCorrectionOrder(intent.Symbol, rec, unixEpochSeconds)
	target := r.hedge
	if rec.CorrectionVenue == "primary" {
		target = r.primary
	}

	correctionRes, err := target.PlaceOrder(ctx, correctionReq)
	if err != nil {
		// Makeup failure is non-fatal but recorded.
		log.Printf("[ExecutionRouter] makeup order failed for %s on %s leg: %v", intent.Symbol, rec.CorrectionVenue, err)
		return result, nil
	}

	delta := correctionRes.FilledSize
	if rec.ReduceOnly {
		delta = -delta
	}
	if rec.CorrectionVenue == "primary" {
		result.Primary.FilledSize += delta
	} else {
		result.Hedge.FilledSize += delta
	}
	result.IsBalanced = true
	result.Imbalance = 0
	return result, nil
}

// attemptCancel best-effort cancels exchangeOrderID on adapter, swallowing
// any error: the order may already be filled or rejected.
func (r *Router) attemptCancel(ctx context.Context, adapter venue.Adapter, exchangeOrderID string) {
	if exchangeOrderID == "" {
		return
	}
	if err := adapter.CancelOrder(ctx, exchangeOrderID); err != nil {
		log.Printf("[ExecutionRouter] best-effort cancel of %s failed (ignored): %v", exchangeOrderID, err)
	}
}
