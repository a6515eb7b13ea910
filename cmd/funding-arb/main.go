package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/Gajesh2007/funding-arb-bot/pkg/config"
	"github.com/Gajesh2007/funding-arb-bot/pkg/controller"
	"github.com/Gajesh2007/funding-arb-bot/pkg/metrics"
	"github.com/Gajesh2007/funding-arb-bot/pkg/persistence"
	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
	"github.com/Gajesh2007/funding-arb-bot/pkg/venue/live"
	"github.com/Gajesh2007/funding-arb-bot/pkg/venue/paper"
)

const (
	appName    = "FundingArbBot"
	appVersion = "1.0.0"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "spot":
		os.Exit(cmdSpot(os.Args[2:]))
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "funding-scan":
		os.Exit(cmdFundingScan(os.Args[2:]))
	case "pnl":
		os.Exit(cmdPnL(os.Args[2:]))
	case "version", "--version":
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	case "help", "-h", "--help":
		printHelp()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(2)
	}
}

// stringSliceFlag collects a repeatable flag value.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	default:
		log.SetFlags(log.LstdFlags)
	}
}

// cmdSpot is the dry-run scanner: it polls one funding snapshot per venue
// per tracked symbol, prints the edge table, and never places orders.
func cmdSpot(args []string) int {
	fs := flag.NewFlagSet("spot", flag.ExitOnError)
	configFile := fs.String("config", "./config/trader.yaml", "Configuration file path")
	minEdgeBps := fs.Float64("min-edge-bps", 0, "Minimum edge in bps to flag (defaults to strategy.min_edge_bps)")
	verbose := fs.Bool("verbose", false, "Print every symbol, not just candidates")
	logLevel := fs.String("log-level", "info", "Log level: debug, info")
	var symbols stringSliceFlag
	fs.Var(&symbols, "symbol", "Symbol to scan (repeatable; defaults to strategy.tracked_symbols)")
	fs.Var(&symbols, "s", "Shorthand for --symbol")
	fs.BoolVar(verbose, "v", false, "Shorthand for --verbose")
	_ = fs.Parse(args)
	applyLogLevel(*logLevel)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("[Spot] failed to load config: %v", err)
		return 1
	}
	if len(symbols) > 0 {
		cfg.Strategy.TrackedSymbols = symbols
	}
	if *minEdgeBps <= 0 {
		*minEdgeBps = cfg.Strategy.MinEdgeBps
	}

	primary, hedge, closeVenues, err := buildVenues(cfg)
	if err != nil {
		log.Printf("[Spot] failed to connect venues: %v", err)
		return 1
	}
	defer closeVenues()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	primaryRates, err := pollFunding(ctx, primary, cfg.Strategy.TrackedSymbols)
	if err != nil {
		log.Printf("[Spot] failed to poll %s funding: %v", primary.Name(), err)
		return 1
	}
	hedgeRates, err := pollFunding(ctx, hedge, cfg.Strategy.TrackedSymbols)
	if err != nil {
		log.Printf("[Spot] failed to poll %s funding: %v", hedge.Name(), err)
		return 1
	}

	fmt.Printf("%-12s %12s %12s %10s  %s\n", "SYMBOL", primary.Name(), hedge.Name(), "EDGE", "SIGNAL")
	scanned := append([]string(nil), cfg.Strategy.TrackedSymbols...)
	sort.Strings(scanned)
	candidates := 0
	for _, symbol := range scanned {
		p, okP := primaryRates[symbol]
		h, okH := hedgeRates[symbol]
		if !okP || !okH {
			if *verbose {
				fmt.Printf("%-12s %12s %12s %10s  no data\n", symbol, "-", "-", "-")
			}
			continue
		}
		edge := p - h
		signal := ""
		if math.Abs(edge) >= *minEdgeBps {
			candidates++
			if edge > 0 {
				signal = "ENTER long hedge / short primary"
			} else {
				signal = "ENTER long primary / short hedge"
			}
		}
		if signal != "" || *verbose {
			fmt.Printf("%-12s %11.2fbp %11.2fbp %9.2fbp  %s\n", symbol, p, h, edge, signal)
		}
	}
	fmt.Printf("\n%d candidate(s) at min edge %.1f bps (dry run, no orders placed)\n", candidates, *minEdgeBps)
	return 0
}

// pollFunding pulls the first funding update per symbol from the venue's
// stream and discards the rest.
func pollFunding(ctx context.Context, v venue.Adapter, symbols []string) (map[string]float64, error) {
	ch, err := v.FundingStream(ctx, symbols)
	if err != nil {
		return nil, err
	}
	rates := make(map[string]float64, len(symbols))
	for {
		select {
		case update, ok := <-ch:
			if !ok {
				return rates, nil
			}
			if _, seen := rates[update.Symbol]; !seen {
				rates[update.Symbol] = update.RateBps
			}
			if len(rates) == len(symbols) {
				return rates, nil
			}
		case <-ctx.Done():
			return rates, nil
		}
	}
}

// cmdRun starts the trade-lifecycle controller against the configured venues
// and blocks until SIGINT/SIGTERM.
func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	profile := fs.String("profile", "./config/trader.yaml", "Configuration profile path")
	logLevel := fs.String("log-level", "info", "Log level: debug, info")
	_ = fs.Parse(args)
	applyLogLevel(*logLevel)

	printBanner()

	log.Printf("[Main] Loading configuration from: %s", *profile)
	cfg, err := config.Load(*profile)
	if err != nil {
		log.Printf("[Main] Failed to load config: %v", err)
		return 1
	}
	log.Println("[Main] ✓ Configuration loaded successfully")
	printConfigSummary(cfg)

	primary, hedge, closeVenues, err := buildVenues(cfg)
	if err != nil {
		log.Printf("[Main] Failed to connect venues: %v", err)
		return 1
	}
	defer closeVenues()

	ctrl, err := controller.New(cfg, primary, hedge)
	if err != nil {
		log.Printf("[Main] Failed to create controller: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Initialize(ctx); err != nil {
		log.Printf("[Main] Failed to initialize controller: %v", err)
		return 1
	}

	if cfg.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Printf("[Main] metrics listening on %s/metrics", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("[Main] metrics server error: %v", err)
			}
		}()
		defer srv.Close()
	}

	if err := ctrl.Start(ctx); err != nil {
		log.Printf("[Main] Failed to start controller: %v", err)
		return 1
	}

	for _, a := range []venue.Adapter{primary, hedge} {
		if lv, ok := a.(*live.Venue); ok {
			go watchOrderUpdates(ctx, lv)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("[Main] ════════════════════════════════════════════════════════════")
	log.Println("[Main] Controller is running. Press Ctrl+C to stop...")
	log.Println("[Main] ════════════════════════════════════════════════════════════")

	sig := <-sigChan
	log.Printf("[Main] Received signal: %v", sig)

	cancel()
	ctrl.Stop()

	if ctrl.KillSwitchTripped() {
		log.Println("[Main] kill switch is tripped; exiting with failure status")
		return 3
	}
	log.Println("[Main] ✓ Clean shutdown")
	return 0
}

// watchOrderUpdates relays push order-status messages to the log; resting
// GTT/PostOnly orders surface their fills here without polling.
func watchOrderUpdates(ctx context.Context, lv *live.Venue) {
	conn, err := lv.DialOrderUpdatesWebsocket(ctx)
	if err != nil {
		log.Printf("[Main] order-update stream unavailable for %s: %v", lv.Name(), err)
		return
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		log.Printf("[Main] %s order update: %s", lv.Name(), msg)
	}
}

// cmdFundingScan dumps current funding rates from a single gateway and
// projects the cumulative payment over a time window.
func cmdFundingScan(args []string) int {
	fs := flag.NewFlagSet("funding-scan", flag.ExitOnError)
	baseURL := fs.String("lighter-base-url", "https://mainnet.zklighter.elliot.ai", "Gateway base URL to scan")
	hours := fs.Float64("hours", 8, "Projection window in hours")
	logLevel := fs.String("log-level", "info", "Log level: debug, info")
	var symbols stringSliceFlag
	fs.Var(&symbols, "hl-symbol", "Symbol to scan (repeatable)")
	fs.Var(&symbols, "s", "Shorthand for --hl-symbol")
	_ = fs.Parse(args)
	applyLogLevel(*logLevel)

	v, err := live.Dial(live.Config{Name: "scan", BaseURL: *baseURL})
	if err != nil {
		log.Printf("[FundingScan] failed to dial %s: %v", *baseURL, err)
		return 1
	}
	defer v.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	updates, err := v.GetFundingRates(ctx, symbols)
	if err != nil {
		log.Printf("[FundingScan] funding fetch failed: %v", err)
		return 1
	}
	if len(updates) == 0 {
		fmt.Println("no funding data returned")
		return 1
	}

	sort.Slice(updates, func(i, j int) bool { return updates[i].Symbol < updates[j].Symbol })
	fmt.Printf("%-12s %12s %16s\n", "SYMBOL", "RATE/HOUR", fmt.Sprintf("PROJ %.0fH", *hours))
	for _, u := range updates {
		fmt.Printf("%-12s %11.3fbp %15.3fbp\n", u.Symbol, u.RateBps, u.RateBps*(*hours))
	}
	return 0
}

// cmdPnL prints the ledger's aggregate totals.
func cmdPnL(args []string) int {
	fs := flag.NewFlagSet("pnl", flag.ExitOnError)
	configFile := fs.String("config", "./config/trader.yaml", "Configuration file path")
	_ = fs.Parse(args)

	path := ".pnl_state.json"
	if cfg, err := config.Load(*configFile); err == nil && cfg.PnLFile != "" {
		path = cfg.PnLFile
	}

	totals := persistence.NewLedger(path).GetTotalPnL()
	fmt.Printf("Realized PnL:   %12.4f USD\n", totals.RealizedPnL)
	fmt.Printf("Total funding:  %12.4f USD\n", totals.TotalFunding)
	fmt.Printf("Total fees:     %12.4f USD\n", totals.TotalFees)
	fmt.Printf("Net PnL:        %12.4f USD\n", totals.NetPnL)
	return 0
}

// buildVenues returns live adapters when a venue block carries transport
// endpoints, falling back to a deterministic paper book for dev profiles.
func buildVenues(cfg *config.TraderConfig) (primary, hedge venue.Adapter, closeAll func(), err error) {
	var closers []func()
	build := func(vc config.VenueConfig, fallback string) (venue.Adapter, error) {
		name := vc.Name
		if name == "" {
			name = fallback
		}
		if vc.BaseURL == "" && vc.NATSURL == "" {
			return paperVenue(name, cfg), nil
		}
		lv, err := live.Dial(live.Config{
			Name:         name,
			NATSURL:      vc.NATSURL,
			BaseURL:      vc.BaseURL,
			WebsocketURL: vc.WebsocketURL,
			APIKey:       vc.Credentials.APIKey,
			APISecret:    vc.Credentials.APISecret,
		})
		if err != nil {
			return nil, err
		}
		closers = append(closers, lv.Close)
		return lv, nil
	}

	primary, err = build(cfg.Primary, "primary")
	if err != nil {
		return nil, nil, nil, err
	}
	hedge, err = build(cfg.Hedge, "hedge")
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, nil, err
	}
	closeAll = func() {
		for _, c := range closers {
			c()
		}
	}
	return primary, hedge, closeAll, nil
}

// paperVenue seeds an offline venue covering every tracked symbol so `spot`
// and dev-profile `run` work without network access.
func paperVenue(name string, cfg *config.TraderConfig) *paper.Venue {
	book := paper.Book{
		Fundings: make(map[string]float64),
		Tickers:  make(map[string]venue.Ticker),
	}
	for i, symbol := range cfg.Strategy.TrackedSymbols {
		book.Specs = append(book.Specs, venue.SymbolSpec{
			Symbol:      symbol,
			TickSize:    0.01,
			LotSize:     0.001,
			MaxLeverage: cfg.Risk.MaxLeverage,
		})
		rate := 2.0 + float64(i)
		if name == "primary" {
			rate += cfg.Strategy.MinEdgeBps
		}
		book.Fundings[symbol] = rate
		px := 100.0 * float64(i+1)
		book.Tickers[symbol] = venue.Ticker{Symbol: symbol, Bid: px - 0.05, Ask: px + 0.05}
	}
	return paper.New(name, book)
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║  %s v%-46s║\n", appName, appVersion)
	fmt.Println("║  Delta-Neutral Funding-Rate Arbitrage Engine              ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func printConfigSummary(cfg *config.TraderConfig) {
	log.Println("[Main] ────────────────────────────────────────────────────────────")
	log.Println("[Main] Configuration Summary")
	log.Println("[Main] ────────────────────────────────────────────────────────────")
	log.Printf("[Main] Environment:       %s", cfg.Environment)
	log.Printf("[Main] Base Currency:     %s", cfg.BaseCurrency)
	log.Printf("[Main] Tracked Symbols:   %v", cfg.Strategy.TrackedSymbols)
	log.Printf("[Main] Poll Interval:     %.1fs", cfg.PollIntervalSeconds)
	log.Printf("[Main] Min/Exit Edge:     %.1f / %.1f bps", cfg.Strategy.MinEdgeBps, cfg.Strategy.ExitEdgeBps)
	log.Printf("[Main] Max Notional:      %.0f total / %.0f per symbol", cfg.Risk.MaxTotalNotional, cfg.Risk.MaxSymbolNotional)
	log.Printf("[Main] Max Positions:     %d", cfg.MaxPositions)
	log.Println("[Main] ────────────────────────────────────────────────────────────")
}

func printHelp() {
	fmt.Printf("Usage: %s COMMAND [OPTIONS]\n\n", appName)
	fmt.Println("A delta-neutral funding-rate arbitrage engine for perpetual futures.")
	fmt.Println("\nCommands:")
	fmt.Println("  spot          Dry-run scanner: print current edges, place no orders")
	fmt.Println("  run           Start the trade-lifecycle controller")
	fmt.Println("  funding-scan  Diagnostic funding-rate dump from one gateway")
	fmt.Println("  pnl           Print ledger totals")
	fmt.Println("  version       Print version and exit")
	fmt.Println("\nExamples:")
	fmt.Printf("  %s spot --min-edge-bps 20 -s ETH -s BTC -v\n", appName)
	fmt.Printf("  %s run --profile ./config/trader.yaml\n", appName)
	fmt.Printf("  %s funding-scan --hours 8 -s ETH\n", appName)
}
