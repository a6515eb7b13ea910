// Package paper implements a deterministic in-memory venue.Adapter used by
// the `spot` scanner and by unit tests across the other packages. It never
// touches the network.
package paper

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// Book seeds a paper venue with fixed market data.
type Book struct {
	Specs    []venue.SymbolSpec
	Fundings map[string]float64 // symbol -> rate bps
	Tickers  map[string]venue.Ticker
}

// Venue is a synchronous, in-memory venue.Adapter.
type Venue struct {
	name string

	mu        sync.Mutex
	specs     []venue.SymbolSpec
	fundings  map[string]float64
	tickers   map[string]venue.Ticker
	positions map[string]venue.Position
	nextOrder int
}

// New constructs a paper Venue named name, seeded from book.
func New(name string, book Book) *Venue {
	fundings := make(map[string]float64, len(book.Fundings))
	for k, v := range book.Fundings {
		fundings[k] = v
	}
	tickers := make(map[string]venue.Ticker, len(book.Tickers))
	for k, v := range book.Tickers {
		tickers[k] = v
	}
	return &Venue{
		name:      name,
		specs:     append([]venue.SymbolSpec(nil), book.Specs...),
		fundings:  fundings,
		tickers:   tickers,
		positions: make(map[string]venue.Position),
	}
}

func (v *Venue) Name() string { return v.name }

// SetFundingRate updates the simulated funding rate for symbol, in bps.
func (v *Venue) SetFundingRate(symbol string, rateBps float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fundings[symbol] = rateBps
}

// SetTicker updates the simulated top-of-book for symbol.
func (v *Venue) SetTicker(t venue.Ticker) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tickers[t.Symbol] = t
}

func (v *Venue) GetSymbols(ctx context.Context) ([]venue.SymbolSpec, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]venue.SymbolSpec(nil), v.specs...), nil
}

// FundingStream emits one snapshot per symbol that has a seeded rate, then
// closes the channel immediately. Paper venue data does not change on its
// own between pushes.
func (v *Venue) FundingStream(ctx context.Context, symbols []string) (<-chan venue.FundingUpdate, error) {
	ch := make(chan venue.FundingUpdate, len(symbols))
	v.mu.Lock()
	for _, s := range symbols {
		rate, ok := v.fundings[s]
		if !ok {
			continue
		}
		ch <- venue.FundingUpdate{Symbol: s, RateBps: rate}
	}
	v.mu.Unlock()
	close(ch)
	return ch, nil
}

func (v *Venue) TickerStream(ctx context.Context, symbols []string) (<-chan venue.Ticker, error) {
	ch := make(chan venue.Ticker, len(symbols))
	v.mu.Lock()
	for _, s := range symbols {
		t, ok := v.tickers[s]
		if !ok {
			continue
		}
		ch <- t
	}
	v.mu.Unlock()
	close(ch)
	return ch, nil
}

func (v *Venue) GetPositions(ctx context.Context) ([]venue.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]venue.Position, 0, len(v.positions))
	for _, p := range v.positions {
		out = append(out, p)
	}
	return out, nil
}

// PlaceOrder fills immediately and in full at the current ticker mid (or at
// req.Price for limit orders), updating the simulated position book.
func (v *Venue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	px := req.Price
	if px == nil {
		t, ok := v.tickers[req.Symbol]
		if !ok {
			return venue.OrderResult{}, fmt.Errorf("paper venue %s: no ticker for %s", v.name, req.Symbol)
		}
		mid := t.Mid()
		px = &mid
	}

	v.nextOrder++
	result := venue.OrderResult{
		ClientID:         req.ClientID,
		ExchangeOrderID:  fmt.Sprintf("%s-%d", v.name, v.nextOrder),
		Status:           venue.StatusFilled,
		FilledSize:       req.Size,
		AverageFillPrice: *px,
	}

	existing := v.positions[req.Symbol]
	signed := existing.SignedSize()
	if req.Side == venue.Sell {
		signed -= req.Size
	} else {
		signed += req.Size
	}
	if signed == 0 {
		delete(v.positions, req.Symbol)
	} else {
		side := venue.Buy
		if signed < 0 {
			side = venue.Sell
		}
		size := signed
		if size < 0 {
			size = -size
		}
		v.positions[req.Symbol] = venue.Position{
			Symbol:     req.Symbol,
			Side:       side,
			Size:       size,
			EntryPrice: *px,
			Leverage:   existing.Leverage,
		}
	}

	return result, nil
}

func (v *Venue) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	return nil
}
