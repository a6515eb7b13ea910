// Package controller implements the trade-lifecycle controller: the
// orchestrator that drives the strategy engine, portfolio manager, sizing,
// execution router, reconciler, rebalancer, and safety plane through one
// periodic tick per tracked symbol.
package controller

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Gajesh2007/funding-arb-bot/pkg/config"
	"github.com/Gajesh2007/funding-arb-bot/pkg/execution"
	"github.com/Gajesh2007/funding-arb-bot/pkg/metrics"
	"github.com/Gajesh2007/funding-arb-bot/pkg/persistence"
	"github.com/Gajesh2007/funding-arb-bot/pkg/portfolio"
	"github.com/Gajesh2007/funding-arb-bot/pkg/rebalance"
	"github.com/Gajesh2007/funding-arb-bot/pkg/retry"
	"github.com/Gajesh2007/funding-arb-bot/pkg/risk"
	"github.com/Gajesh2007/funding-arb-bot/pkg/sizing"
	"github.com/Gajesh2007/funding-arb-bot/pkg/strategy"
	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// SizedIntent pairs an immutable strategy.Decision with the portfolio
// manager's allocation, rather than overwriting decision.SizeUSD in place.
type SizedIntent struct {
	Decision   strategy.Decision
	Allocation portfolio.Allocation
}

// Controller orchestrates one tick across the core subsystems.
type Controller struct {
	cfg     *config.TraderConfig
	primary venue.Adapter
	hedge   venue.Adapter

	engine        *strategy.Engine
	portfolioMgr  *portfolio.Manager
	router        *execution.Router
	reconciler    *execution.Reconciler
	killSwitch    *risk.KillSwitch
	marginMonitor *risk.MarginMonitor
	positionStore *persistence.PositionStore
	ledger        *persistence.Ledger

	primarySpecs map[string]venue.SymbolSpec
	hedgeSpecs   map[string]venue.SymbolSpec

	mu        sync.Mutex
	running   bool
	positions map[string]*PositionView

	latestFunding struct {
		sync.Mutex
		primary map[string]venue.FundingUpdate
		hedge   map[string]venue.FundingUpdate
	}
	latestTicker struct {
		sync.Mutex
		primary map[string]venue.Ticker
		hedge   map[string]venue.Ticker
	}

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Controller from cfg and the two venue adapters.
// Initialize must be called before Start.
func New(cfg *config.TraderConfig, primary, hedge venue.Adapter) (*Controller, error) {
	engine, err := strategy.NewEngine(cfg.Strategy.MinEdgeBps, cfg.Strategy.ExitEdgeBps)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}

	c := &Controller{
		cfg:           cfg,
		primary:       primary,
		hedge:         hedge,
		engine:        engine,
		portfolioMgr:  portfolio.NewManager(cfg.Risk.MaxTotalNotional, cfg.Risk.MaxSymbolNotional, cfg.MaxPositions),
		reconciler:    execution.NewReconciler(0),
		killSwitch:    risk.NewKillSwitch(0, 0),
		marginMonitor: risk.NewMarginMonitor(cfg.Risk.MarginBufferRatio),
		positionStore: persistence.NewPositionStore(cfg.PositionsFile),
		ledger:        persistence.NewLedger(cfg.PnLFile),
		positions:     make(map[string]*PositionView),
		stopCh:        make(chan struct{}),
	}
	c.router = execution.NewRouter(primary, hedge, c.reconciler, true)
	c.latestFunding.primary = make(map[string]venue.FundingUpdate)
	c.latestFunding.hedge = make(map[string]venue.FundingUpdate)
	c.latestTicker.primary = make(map[string]venue.Ticker)
	c.latestTicker.hedge = make(map[string]venue.Ticker)
	return c, nil
}

// Initialize loads venue symbol specs and restores persisted positions,
// merging them into the portfolio manager and the open-position map.
func (c *Controller) Initialize(ctx context.Context) error {
	log.Println("[Controller] ══════════════════════════════════════")
	log.Println("[Controller] initializing trade-lifecycle controller")

	primarySpecs, err := c.getSymbolsWithRetry(ctx, c.primary)
	if err != nil {
		return fmt.Errorf("controller: failed to load primary symbols: %w", err)
	}
	c.primarySpecs = specsBySymbol(primarySpecs)
	log.Printf("[Controller] ✓ loaded %d primary symbol specs", len(c.primarySpecs))

	hedgeSpecs, err := c.getSymbolsWithRetry(ctx, c.hedge)
	if err != nil {
		return fmt.Errorf("controller: failed to load hedge symbols: %w", err)
	}
	c.hedgeSpecs = specsBySymbol(hedgeSpecs)
	log.Printf("[Controller] ✓ loaded %d hedge symbol specs", len(c.hedgeSpecs))

	restored := c.positionStore.Load()
	for symbol, rec := range restored {
		c.portfolioMgr.RegisterPosition(symbol, rec.SizeUSD)
		c.engine.Seed(symbol, strategy.Decision{
			Symbol:    symbol,
			Direction: strategy.Direction(rec.Direction),
			SizeUSD:   rec.SizeUSD,
			Action:    strategy.ActionEnter,
		})
		c.positions[symbol] = &PositionView{
			Symbol:           symbol,
			State:            Hedged,
			Direction:        rec.Direction,
			SizeUSD:          rec.SizeUSD,
			PrimaryFilledQty: rec.PrimaryFilled,
			HedgeFilledQty:   rec.HedgeFilled,
			PrimaryEntryPx:   rec.PrimaryEntryPx,
			HedgeEntryPx:     rec.HedgeEntryPx,
			IsBalanced:       rec.IsBalanced,
		}
	}
	log.Printf("[Controller] ✓ restored %d open positions from %s", len(restored), c.cfg.PositionsFile)
	log.Println("[Controller] ══════════════════════════════════════")
	return nil
}

func (c *Controller) getSymbolsWithRetry(ctx context.Context, v venue.Adapter) ([]venue.SymbolSpec, error) {
	var specs []venue.SymbolSpec
	err := retry.Do(ctx, 0, retry.IsTransportError, func() error {
		var err error
		specs, err = v.GetSymbols(ctx)
		return err
	})
	return specs, err
}

func (c *Controller) getPositionsWithRetry(ctx context.Context, v venue.Adapter) ([]venue.Position, error) {
	var positions []venue.Position
	err := retry.Do(ctx, 0, retry.IsTransportError, func() error {
		var err error
		positions, err = v.GetPositions(ctx)
		return err
	})
	return positions, err
}

func specsBySymbol(specs []venue.SymbolSpec) map[string]venue.SymbolSpec {
	out := make(map[string]venue.SymbolSpec, len(specs))
	for _, s := range specs {
		out[s.Symbol] = s
	}
	return out
}

// Start subscribes to funding/ticker streams and begins the periodic tick
// loop. It returns immediately; call Stop (or cancel ctx) to shut down.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("controller: already running")
	}
	c.running = true
	c.mu.Unlock()

	c.subscribeFunding(ctx, c.primary, &c.latestFunding.primary)
	c.subscribeFunding(ctx, c.hedge, &c.latestFunding.hedge)
	c.subscribeTickers(ctx, c.primary, &c.latestTicker.primary)
	c.subscribeTickers(ctx, c.hedge, &c.latestTicker.hedge)

	interval := time.Duration(c.cfg.PollIntervalSeconds * float64(time.Second))
	c.wg.Add(1)
	go c.runLoop(ctx, interval)

	log.Printf("[Controller] started, poll_interval=%s", interval)
	return nil
}

// Stop signals the tick loop to exit and waits for it to finish.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()
	log.Println("[Controller] stopped")
}

func (c *Controller) runLoop(ctx context.Context, interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil {
				log.Printf("[Controller] tick error: %v", err)
			}
		}
	}
}

func (c *Controller) trackedSymbols() []string {
	symbols := append([]string(nil), c.cfg.Strategy.TrackedSymbols...)
	sort.Strings(symbols)
	return symbols
}

// Tick runs one full data-flow pass: poll funding -> strategy engine ->
// portfolio allocation -> sizing/price coordination -> risk gate ->
// execution router -> reconciler for entries, then exits, a rebalance pass
// over every open position, funding accrual, and finally persistence.
func (c *Controller) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
		metrics.OpenPositions.Set(float64(len(c.portfolioMgr.GetOpenSymbols())))
		if c.killSwitch.IsTripped() {
			metrics.KillSwitchTripped.Set(1)
		} else {
			metrics.KillSwitchTripped.Set(0)
		}
	}()

	tripped := c.killSwitch.IsTripped()

	var opportunities []portfolio.Opportunity
	var enterDecisions = make(map[string]strategy.Decision)
	var exitDecisions []strategy.Decision

	for _, symbol := range c.trackedSymbols() {
		snapshot, ok := c.buildSnapshot(symbol)
		if !ok {
			continue
		}
		decision := c.engine.Evaluate(snapshot, c.cfg.Execution.OrderNotional)
		if decision == nil {
			continue
		}
		metrics.DecisionsTotal.WithLabelValues(string(decision.Action)).Inc()

		switch decision.Action {
		case strategy.ActionEnter:
			if tripped {
				log.Printf("[Controller] kill switch tripped, suppressing enter for %s", symbol)
				continue
			}
			opportunities = append(opportunities, portfolio.Opportunity{Symbol: symbol, EdgeBps: decision.EdgeBps})
			enterDecisions[symbol] = *decision
		case strategy.ActionExit:
			exitDecisions = append(exitDecisions, *decision)
		}
	}

	if len(opportunities) > 0 {
		allocations := c.portfolioMgr.Allocate(opportunities, c.cfg.Execution.OrderNotional)
		for _, alloc := range allocations {
			decision := enterDecisions[alloc.Symbol]
			c.processEnter(ctx, SizedIntent{Decision: decision, Allocation: alloc})
		}
	}

	for _, decision := range exitDecisions {
		c.processExit(ctx, decision)
	}

	if !tripped {
		for _, symbol := range c.portfolioMgr.GetOpenSymbols() {
			c.processRebalance(ctx, symbol)
		}
	}

	c.accrueFunding()
	c.persist()
	return nil
}

// KillSwitchTripped reports whether the safety plane has latched halt.
func (c *Controller) KillSwitchTripped() bool {
	return c.killSwitch.IsTripped()
}

func (c *Controller) buildSnapshot(symbol string) (strategy.FundingSnapshot, bool) {
	c.latestFunding.Lock()
	primaryFunding, okP := c.latestFunding.primary[symbol]
	hedgeFunding, okH := c.latestFunding.hedge[symbol]
	c.latestFunding.Unlock()
	if !okP || !okH {
		return strategy.FundingSnapshot{}, false
	}

	staleAfterMs := int64(c.cfg.Strategy.StaleDataSeconds * 1000)
	nowMs := time.Now().UnixMilli()
	if staleAfterMs > 0 {
		if primaryFunding.LastUpdated > 0 && nowMs-primaryFunding.LastUpdated > staleAfterMs {
			return strategy.FundingSnapshot{}, false
		}
		if hedgeFunding.LastUpdated > 0 && nowMs-hedgeFunding.LastUpdated > staleAfterMs {
			return strategy.FundingSnapshot{}, false
		}
	}

	return strategy.FundingSnapshot{
		Symbol:         symbol,
		PrimaryRateBps: primaryFunding.RateBps,
		HedgeRateBps:   hedgeFunding.RateBps,
		TimestampMs:    nowMs,
	}, true
}

func (c *Controller) processEnter(ctx context.Context, intent SizedIntent) {
	symbol := intent.Decision.Symbol

	c.latestTicker.Lock()
	primaryTicker, okP := c.latestTicker.primary[symbol]
	hedgeTicker, okH := c.latestTicker.hedge[symbol]
	c.latestTicker.Unlock()
	if !okP || !okH {
		log.Printf("[Controller] skipping %s entry: no ticker data yet", symbol)
		return
	}

	coords := sizing.GetCoordinatedPrices(primaryTicker, hedgeTicker, c.cfg.Execution.MaxSpreadBps)
	if !coords.Acceptable {
		log.Printf("[Controller] skipping %s entry: cross-venue spread %.2fbps unacceptable", symbol, coords.SpreadBps)
		return
	}

	if err := c.preTradeCheck(ctx, symbol, intent.Allocation.AllocatedNotionalUSD); err != nil {
		log.Printf("[Controller] skipping %s entry: %v", symbol, err)
		return
	}

	primarySpec := c.primarySpecs[symbol]
	hedgeSpec := c.hedgeSpecs[symbol]

	primaryQty, err := sizing.CalculateQuantity(intent.Allocation.AllocatedNotionalUSD, coords.PrimaryMid, primarySpec)
	if err != nil {
		c.killSwitch.RecordFailure(fmt.Sprintf("sizing error for %s: %v", symbol, err))
		return
	}
	hedgeQty, err := sizing.CalculateQuantity(intent.Allocation.AllocatedNotionalUSD, coords.HedgeMid, hedgeSpec)
	if err != nil {
		c.killSwitch.RecordFailure(fmt.Sprintf("sizing error for %s: %v", symbol, err))
		return
	}

	primarySide, hedgeSide := legSides(intent.Decision.Direction, true)
	primaryPx, hedgePx := sizing.CalculateLimitPrices(coords, primarySide == venue.Buy, hedgeSide == venue.Buy, c.cfg.Execution.SlippageBps)
	primaryPx = sizing.RoundPrice(primaryPx, primarySpec)
	hedgePx = sizing.RoundPrice(hedgePx, hedgeSpec)

	now := time.Now().Unix()
	result, err := c.router.Execute(ctx, execution.DualLegIntent{
		Symbol: symbol,
		LegPrimary: venue.OrderRequest{
			ClientID:    venue.BuildClientID(c.primary.Name(), symbol, now),
			Symbol:      symbol,
			Side:        primarySide,
			Size:        primaryQty,
			OrderType:   venue.Limit,
			Price:       &primaryPx,
			TimeInForce: venue.TimeInForce(c.cfg.Execution.TimeInForce),
		},
		LegHedge: venue.OrderRequest{
			ClientID:    venue.BuildClientID(c.hedge.Name(), symbol, now),
			Symbol:      symbol,
			Side:        hedgeSide,
			Size:        hedgeQty,
			OrderType:   venue.Limit,
			Price:       &hedgePx,
			TimeInForce: venue.TimeInForce(c.cfg.Execution.TimeInForce),
		},
	}, now)

	if err != nil {
		// A failed or unbalanced dual-leg fill never reaches the
		// open-position map.
		c.killSwitch.RecordFailure(fmt.Sprintf("entry execution failed for %s: %v", symbol, err))
		log.Printf("[Controller] entry failed for %s: %v", symbol, err)
		return
	}

	c.killSwitch.RecordSuccess()
	metrics.OrdersTotal.WithLabelValues(c.primary.Name(), string(primarySide)).Inc()
	metrics.OrdersTotal.WithLabelValues(c.hedge.Name(), string(hedgeSide)).Inc()
	metrics.ReconciliationImbalance.Observe(result.Imbalance)

	c.portfolioMgr.RegisterPosition(symbol, intent.Allocation.AllocatedNotionalUSD)
	c.ledger.RecordTrade(symbol, c.primary.Name(), string(primarySide), result.Primary.FilledSize, result.Primary.AverageFillPrice, 0, true)
	c.ledger.RecordTrade(symbol, c.hedge.Name(), string(hedgeSide), result.Hedge.FilledSize, result.Hedge.AverageFillPrice, 0, true)

	c.mu.Lock()
	c.positions[symbol] = &PositionView{
		Symbol:           symbol,
		State:            Hedged,
		Direction:        string(intent.Decision.Direction),
		SizeUSD:          intent.Allocation.AllocatedNotionalUSD,
		PrimaryFilledQty: result.Primary.FilledSize,
		HedgeFilledQty:   result.Hedge.FilledSize,
		PrimaryEntryPx:   result.Primary.AverageFillPrice,
		HedgeEntryPx:     result.Hedge.AverageFillPrice,
		IsBalanced:       result.IsBalanced,
	}
	c.mu.Unlock()

	log.Printf("[Controller] ✓ entered %s: primary_filled=%v hedge_filled=%v balanced=%v", symbol, result.Primary.FilledSize, result.Hedge.FilledSize, result.IsBalanced)
}

func (c *Controller) processExit(ctx context.Context, decision strategy.Decision) {
	symbol := decision.Symbol

	c.mu.Lock()
	view, ok := c.positions[symbol]
	c.mu.Unlock()
	if !ok {
		return
	}

	primarySide, hedgeSide := legSides(toDirection(view.Direction), false)
	now := time.Now().Unix()

	result, err := c.router.Execute(ctx, execution.DualLegIntent{
		Symbol: symbol,
		LegPrimary: venue.OrderRequest{
			ClientID:    venue.BuildClientID(c.primary.Name(), symbol, now) + "-exit",
			Symbol:      symbol,
			Side:        primarySide,
			Size:        view.PrimaryFilledQty,
			OrderType:   venue.Market,
			ReduceOnly:  true,
			TimeInForce: venue.IOC,
		},
		LegHedge: venue.OrderRequest{
			ClientID:    venue.BuildClientID(c.hedge.Name(), symbol, now) + "-exit",
			Symbol:      symbol,
			Side:        hedgeSide,
			Size:        view.HedgeFilledQty,
			OrderType:   venue.Market,
			ReduceOnly:  true,
			TimeInForce: venue.IOC,
		},
	}, now)

	if err != nil {
		c.killSwitch.RecordFailure(fmt.Sprintf("exit execution failed for %s: %v", symbol, err))
		log.Printf("[Controller] exit failed for %s, will retry next tick: %v", symbol, err)
		// Evaluate already released the symbol; re-open it so the next tick
		// emits the exit again.
		c.engine.Seed(symbol, strategy.Decision{
			Symbol:    symbol,
			Direction: decision.Direction,
			SizeUSD:   decision.SizeUSD,
			Action:    strategy.ActionEnter,
		})
		return
	}

	c.killSwitch.RecordSuccess()
	c.portfolioMgr.ClosePosition(symbol)

	c.ledger.RecordTrade(symbol, c.primary.Name(), string(primarySide), result.Primary.FilledSize, result.Primary.AverageFillPrice, 0, false)
	c.ledger.RecordTrade(symbol, c.hedge.Name(), string(hedgeSide), result.Hedge.FilledSize, result.Hedge.AverageFillPrice, 0, false)

	// Price PnL per leg: the exit side is the opposite of the entry side, so
	// a long leg realizes (exit - entry) * qty and a short leg the negation.
	primaryPnL := (result.Primary.AverageFillPrice - view.PrimaryEntryPx) * view.PrimaryFilledQty
	if primarySide == venue.Buy {
		primaryPnL = -primaryPnL
	}
	hedgePnL := (result.Hedge.AverageFillPrice - view.HedgeEntryPx) * view.HedgeFilledQty
	if hedgeSide == venue.Buy {
		hedgePnL = -hedgePnL
	}
	c.ledger.RecordRealizedPnL(symbol, primaryPnL+hedgePnL)

	c.mu.Lock()
	delete(c.positions, symbol)
	c.mu.Unlock()

	log.Printf("[Controller] ✓ exited %s: primary_filled=%v hedge_filled=%v", symbol, result.Primary.FilledSize, result.Hedge.FilledSize)
}

func (c *Controller) processRebalance(ctx context.Context, symbol string) {
	c.mu.Lock()
	view, ok := c.positions[symbol]
	c.mu.Unlock()
	if !ok || view.State != Hedged {
		return
	}

	primaryPositions, err := c.getPositionsWithRetry(ctx, c.primary)
	if err != nil {
		c.killSwitch.RecordFailure(fmt.Sprintf("failed to fetch primary positions for rebalance of %s: %v", symbol, err))
		return
	}
	hedgePositions, err := c.getPositionsWithRetry(ctx, c.hedge)
	if err != nil {
		c.killSwitch.RecordFailure(fmt.Sprintf("failed to fetch hedge positions for rebalance of %s: %v", symbol, err))
		return
	}

	c.checkMarginHealth(c.primary.Name(), primaryPositions)
	c.checkMarginHealth(c.hedge.Name(), hedgePositions)

	primaryPos, okP := findPosition(primaryPositions, symbol)
	hedgePos, okH := findPosition(hedgePositions, symbol)
	if !okP || !okH {
		return
	}

	drift := rebalance.DetectDrift(symbol, primaryPos, hedgePos, c.cfg.Risk.DriftThresholdBps)
	action := rebalance.PlanRebalance(drift)
	if action == nil {
		return
	}

	c.mu.Lock()
	view.State = Rebalancing
	c.mu.Unlock()

	c.latestTicker.Lock()
	hedgeTicker := c.latestTicker.hedge[symbol]
	c.latestTicker.Unlock()

	now := time.Now().Unix()
	result, err := rebalance.ExecuteRebalance(ctx, c.hedge, *action, hedgeTicker.Mid(), c.cfg.Execution.SlippageBps, now)
	if err != nil {
		// Correction failures are logged and retried next tick.
		log.Printf("[Controller] rebalance failed for %s, will retry next tick: %v", symbol, err)
		c.mu.Lock()
		view.State = Hedged
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if action.Side == venue.Sell {
		view.HedgeFilledQty -= result.FilledSize
	} else {
		view.HedgeFilledQty += result.FilledSize
	}
	view.State = Hedged
	c.mu.Unlock()

	metrics.OrdersTotal.WithLabelValues(c.hedge.Name(), string(action.Side)).Inc()
	log.Printf("[Controller] rebalanced %s: %s %v on hedge venue (drift_bps=%.1f)", symbol, action.Side, action.Quantity, drift.DriftBps)
}

func (c *Controller) persist() {
	c.mu.Lock()
	records := make(map[string]persistence.PositionRecord, len(c.positions))
	for symbol, view := range c.positions {
		records[symbol] = persistence.PositionRecord{
			Symbol:         symbol,
			SizeUSD:        view.SizeUSD,
			Direction:      view.Direction,
			PrimaryFilled:  view.PrimaryFilledQty,
			HedgeFilled:    view.HedgeFilledQty,
			PrimaryEntryPx: view.PrimaryEntryPx,
			HedgeEntryPx:   view.HedgeEntryPx,
			IsBalanced:     view.IsBalanced,
		}
	}
	c.mu.Unlock()
	// Flush synchronously before the tick returns so a crash can never
	// observe an unpersisted position.
	c.positionStore.Save(records)
}

// preTradeCheck validates the candidate notional against both venues' live
// positions before any leg is dispatched, using the latest ticker mids as
// the price reference.
func (c *Controller) preTradeCheck(ctx context.Context, symbol string, notionalUSD float64) error {
	primaryPositions, err := c.getPositionsWithRetry(ctx, c.primary)
	if err != nil {
		return fmt.Errorf("pre-trade position fetch on %s failed: %w", c.primary.Name(), err)
	}
	hedgePositions, err := c.getPositionsWithRetry(ctx, c.hedge)
	if err != nil {
		return fmt.Errorf("pre-trade position fetch on %s failed: %w", c.hedge.Name(), err)
	}
	return risk.PreTradeCheck(primaryPositions, hedgePositions, symbol, notionalUSD,
		c.cfg.Risk.MaxTotalNotional, c.cfg.Risk.MaxSymbolNotional, c.markPrice)
}

func (c *Controller) markPrice(symbol string) float64 {
	c.latestTicker.Lock()
	defer c.latestTicker.Unlock()
	if t, ok := c.latestTicker.primary[symbol]; ok {
		return t.Mid()
	}
	if t, ok := c.latestTicker.hedge[symbol]; ok {
		return t.Mid()
	}
	return 0
}

// checkMarginHealth approximates venue margin utilization as deployed
// notional against the configured total cap; the adapter surface carries no
// account-equity data, so the cap stands in for available capital.
func (c *Controller) checkMarginHealth(venueName string, positions []venue.Position) {
	var notional float64
	for _, p := range positions {
		notional += p.Size * p.EntryPrice
	}
	utilization := notional / c.cfg.Risk.MaxTotalNotional
	critical, warning := c.marginMonitor.UpdateMarginUsage(venueName, utilization)
	if critical {
		log.Printf("[Controller] CRITICAL: margin utilization %.2f on %s exceeds buffer", utilization, venueName)
	} else if warning {
		log.Printf("[Controller] margin utilization %.2f on %s approaching buffer", utilization, venueName)
	}
}

// accrueFunding books the funding each open position earns over one poll
// interval, pro-rated from the per-horizon rate. Longs pay a positive rate,
// shorts collect it.
func (c *Controller) accrueFunding() {
	horizonHours := c.cfg.Strategy.FundingHorizonHours
	if horizonHours <= 0 {
		return
	}
	fraction := c.cfg.PollIntervalSeconds / (horizonHours * 3600)

	c.mu.Lock()
	views := make([]*PositionView, 0, len(c.positions))
	for _, v := range c.positions {
		views = append(views, v)
	}
	c.mu.Unlock()

	for _, view := range views {
		c.latestFunding.Lock()
		primaryFunding, okP := c.latestFunding.primary[view.Symbol]
		hedgeFunding, okH := c.latestFunding.hedge[view.Symbol]
		c.latestFunding.Unlock()
		if !okP || !okH {
			continue
		}

		primarySide, hedgeSide := legSides(toDirection(view.Direction), true)
		primaryPayment := fundingPayment(primarySide, view.PrimaryFilledQty*view.PrimaryEntryPx, primaryFunding.RateBps, fraction)
		hedgePayment := fundingPayment(hedgeSide, view.HedgeFilledQty*view.HedgeEntryPx, hedgeFunding.RateBps, fraction)

		c.ledger.RecordFunding(view.Symbol, c.primary.Name(), primaryFunding.RateBps, primaryPayment, view.PrimaryFilledQty)
		c.ledger.RecordFunding(view.Symbol, c.hedge.Name(), hedgeFunding.RateBps, hedgePayment, view.HedgeFilledQty)
	}
}

func fundingPayment(side venue.Side, notionalUSD, rateBps, fraction float64) float64 {
	payment := notionalUSD * rateBps / 10_000 * fraction
	if side == venue.Buy {
		return -payment
	}
	return payment
}

func findPosition(positions []venue.Position, symbol string) (venue.Position, bool) {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return venue.Position{}, false
}

func toDirection(s string) strategy.Direction {
	return strategy.Direction(s)
}

// streamMaxRetries bounds the resilient stream's consecutive reconnect
// attempts; one successfully relayed item resets the counter.
const streamMaxRetries = 30

func (c *Controller) subscribeFunding(ctx context.Context, v venue.Adapter, dest *map[string]venue.FundingUpdate) {
	ch := retry.ResilientStream(ctx, v.Name()+"-funding", streamMaxRetries, func(ctx context.Context) (<-chan venue.FundingUpdate, error) {
		return v.FundingStream(ctx, c.cfg.Strategy.TrackedSymbols)
	})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for update := range ch {
			if update.LastUpdated == 0 {
				update.LastUpdated = time.Now().UnixMilli()
			}
			c.latestFunding.Lock()
			(*dest)[update.Symbol] = update
			c.latestFunding.Unlock()
		}
	}()
}

func (c *Controller) subscribeTickers(ctx context.Context, v venue.Adapter, dest *map[string]venue.Ticker) {
	ch := retry.ResilientStream(ctx, v.Name()+"-ticker", streamMaxRetries, func(ctx context.Context) (<-chan venue.Ticker, error) {
		return v.TickerStream(ctx, c.cfg.Strategy.TrackedSymbols)
	})
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for tick := range ch {
			c.latestTicker.Lock()
			(*dest)[tick.Symbol] = tick
			c.latestTicker.Unlock()
		}
	}()
}
