// Package strategy implements the per-symbol entry/exit decision engine.
// It is pure and synchronous: the controller calls Evaluate once per
// tracked symbol per tick and is responsible for serializing those calls.
package strategy

import (
	"fmt"
	"math"
	"sync"
)

// Direction indicates which venue carries the long leg.
type Direction string

const (
	LongPrimaryShortHedge Direction = "long_primary_short_hedge"
	LongHedgeShortPrimary Direction = "long_hedge_short_primary"
)

// Action distinguishes opening from closing a position.
type Action string

const (
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
)

// FundingSnapshot pairs both venues' funding rates for one symbol at one
// point in time. Distinct from venue.FundingUpdate, which is a single
// venue's raw observation.
type FundingSnapshot struct {
	Symbol         string
	PrimaryRateBps float64
	HedgeRateBps   float64
	TimestampMs    int64
}

// Decision is the engine's output: created here and consumed by the
// Portfolio Manager and then the Execution Router. It is not re-sized in
// place; the controller pairs it with the Manager's allocation instead.
type Decision struct {
	Symbol    string
	EdgeBps   float64
	Direction Direction
	SizeUSD   float64
	Action    Action
}

// Engine holds the per-symbol open-decision map. It is safe for concurrent
// use, though the controller's per-symbol serialization means calls never
// actually overlap for the same symbol.
type Engine struct {
	minEdgeBps float64
	exitEdgeBps float64

	mu   sync.Mutex
	open map[string]Decision
}

// NewEngine validates the hysteresis constraint (exit < min) and returns an
// Engine with an empty open-position map.
func NewEngine(minEdgeBps, exitEdgeBps float64) (*Engine, error) {
	if minEdgeBps <= 0 {
		return nil, fmt.Errorf("strategy: min_edge_bps must be > 0, got %v", minEdgeBps)
	}
	if exitEdgeBps <= 0 {
		return nil, fmt.Errorf("strategy: exit_edge_bps must be > 0, got %v", exitEdgeBps)
	}
	if exitEdgeBps >= minEdgeBps {
		return nil, fmt.Errorf("strategy: exit_edge_bps (%v) must be < min_edge_bps (%v)", exitEdgeBps, minEdgeBps)
	}
	return &Engine{
		minEdgeBps:  minEdgeBps,
		exitEdgeBps: exitEdgeBps,
		open:        make(map[string]Decision),
	}, nil
}

// Evaluate applies the hysteresis decision table to a single snapshot. It
// returns nil when no decision should be emitted. notionalUSD sizes a new
// enter decision; the size actually traded comes from the portfolio
// manager's allocation.
func (e *Engine) Evaluate(snapshot FundingSnapshot, notionalUSD float64) *Decision {
	edge := snapshot.PrimaryRateBps - snapshot.HedgeRateBps

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.open[snapshot.Symbol]; ok {
		if math.Abs(edge) <= e.exitEdgeBps {
			delete(e.open, snapshot.Symbol)
			return &Decision{
				Symbol:    snapshot.Symbol,
				EdgeBps:   edge,
				Direction: existing.Direction,
				SizeUSD:   existing.SizeUSD,
				Action:    ActionExit,
			}
		}
		return nil
	}

	if math.Abs(edge) < e.minEdgeBps {
		return nil
	}

	direction := LongHedgeShortPrimary
	if edge < 0 {
		direction = LongPrimaryShortHedge
	}
	decision := Decision{
		Symbol:    snapshot.Symbol,
		EdgeBps:   edge,
		Direction: direction,
		SizeUSD:   notionalUSD,
		Action:    ActionEnter,
	}
	e.open[snapshot.Symbol] = decision
	return &decision
}

// Seed installs d into the open map without emitting anything. Used to
// restore engine state for positions recovered from disk, so a restored
// symbol exits through the normal hysteresis path instead of being stranded
// between the entry and exit thresholds.
func (e *Engine) Seed(symbol string, d Decision) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open[symbol] = d
}

// IsOpen reports whether the engine currently considers symbol open.
func (e *Engine) IsOpen(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.open[symbol]
	return ok
}

// OpenSymbols returns the symbols the engine currently tracks as open.
func (e *Engine) OpenSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	symbols := make([]string, 0, len(e.open))
	for s := range e.open {
		symbols = append(symbols, s)
	}
	return symbols
}
