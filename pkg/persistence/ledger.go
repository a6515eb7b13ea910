package persistence

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TradeRecord is one fill, entry or exit, on one venue.
type TradeRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Venue     string    `json:"venue"`
	Side      string    `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	IsEntry   bool      `json:"is_entry"`
}

// FundingPayment is one funding-rate settlement received or paid.
type FundingPayment struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Symbol       string    `json:"symbol"`
	Venue        string    `json:"venue"`
	RateBps      float64   `json:"rate_bps"`
	PaymentUSD   float64   `json:"payment_usd"`
	PositionSize float64   `json:"position_size"`
}

// PositionPnL is the computed per-symbol breakdown.
type PositionPnL struct {
	Symbol          string  `json:"symbol"`
	EntryValueUSD   float64 `json:"entry_value_usd"`
	CurrentValueUSD float64 `json:"current_value_usd"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
	FundingEarned   float64 `json:"funding_earned"`
	FeesPaid        float64 `json:"fees_paid"`
	NetPnL          float64 `json:"net_pnl"`
}

// TotalPnL aggregates ledger-wide totals.
type TotalPnL struct {
	RealizedPnL  float64 `json:"realized_pnl"`
	TotalFunding float64 `json:"total_funding"`
	TotalFees    float64 `json:"total_fees"`
	NetPnL       float64 `json:"net_pnl"`
}

type ledgerState struct {
	Trades          []TradeRecord    `json:"trades"`
	FundingPayments []FundingPayment `json:"funding_payments"`
	TotalFees       float64          `json:"total_fees"`
	TotalFunding    float64          `json:"total_funding"`
	RealizedPnL     float64          `json:"realized_pnl"`
}

// Ledger is the append-only PnL book-keeping store.
type Ledger struct {
	path string

	mu    sync.Mutex
	state ledgerState
}

// NewLedger constructs a Ledger backed by path (default ".pnl_state.json"),
// loading any existing state immediately.
func NewLedger(path string) *Ledger {
	if path == "" {
		path = ".pnl_state.json"
	}
	l := &Ledger{path: path}
	l.load()
	return l
}

func (l *Ledger) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Ledger] failed to read %s: %v", l.path, err)
		}
		return
	}
	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("[Ledger] CRITICAL: corrupt ledger file %s, treating as empty: %v", l.path, err)
		return
	}
	l.state = state
}

func (l *Ledger) save() {
	if err := writeJSONAtomic(l.path, l.state); err != nil {
		log.Printf("[Ledger] failed to save ledger to %s: %v", l.path, err)
	}
}

// RecordTrade appends a trade and flushes the ledger to disk.
func (l *Ledger) RecordTrade(symbol, venueName, side string, quantity, price, fee float64, isEntry bool) TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := TradeRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Symbol:    symbol,
		Venue:     venueName,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Fee:       fee,
		IsEntry:   isEntry,
	}
	l.state.Trades = append(l.state.Trades, rec)
	l.state.TotalFees += fee
	l.save()
	log.Printf("[Ledger] recorded trade %s %s %s qty=%v px=%v fee=%v", symbol, venueName, side, quantity, price, fee)
	return rec
}

// RecordFunding appends a funding payment and flushes the ledger to disk.
func (l *Ledger) RecordFunding(symbol, venueName string, rateBps, paymentUSD, positionSize float64) FundingPayment {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := FundingPayment{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		Symbol:       symbol,
		Venue:        venueName,
		RateBps:      rateBps,
		PaymentUSD:   paymentUSD,
		PositionSize: positionSize,
	}
	l.state.FundingPayments = append(l.state.FundingPayments, rec)
	l.state.TotalFunding += paymentUSD
	l.state.RealizedPnL += paymentUSD
	l.save()
	return rec
}

// RecordRealizedPnL folds a closed position's price PnL into the aggregate
// totals and flushes the ledger to disk.
func (l *Ledger) RecordRealizedPnL(symbol string, amountUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.RealizedPnL += amountUSD
	l.save()
	log.Printf("[Ledger] realized %.4f USD on %s (total realized %.4f)", amountUSD, symbol, l.state.RealizedPnL)
}

// PositionPnL computes the unrealized/net PnL for symbol given both legs'
// current marks.
func (l *Ledger) PositionPnL(symbol string, primaryQty, primaryEntryPx, primaryCurrentPx, hedgeQty, hedgeEntryPx, hedgeCurrentPx float64) PositionPnL {
	l.mu.Lock()
	defer l.mu.Unlock()

	unrealized := (primaryCurrentPx-primaryEntryPx)*primaryQty + (hedgeCurrentPx-hedgeEntryPx)*hedgeQty
	entryValue := abs(primaryEntryPx*primaryQty) + abs(hedgeEntryPx*hedgeQty)
	currentValue := abs(primaryCurrentPx*primaryQty) + abs(hedgeCurrentPx*hedgeQty)

	var funding, fees float64
	for _, fp := range l.state.FundingPayments {
		if fp.Symbol == symbol {
			funding += fp.PaymentUSD
		}
	}
	for _, tr := range l.state.Trades {
		if tr.Symbol == symbol {
			fees += tr.Fee
		}
	}

	return PositionPnL{
		Symbol:          symbol,
		EntryValueUSD:   entryValue,
		CurrentValueUSD: currentValue,
		UnrealizedPnL:   unrealized,
		FundingEarned:   funding,
		FeesPaid:        fees,
		NetPnL:          unrealized + funding - fees,
	}
}

// GetTotalPnL returns the ledger-wide totals.
func (l *Ledger) GetTotalPnL() TotalPnL {
	l.mu.Lock()
	defer l.mu.Unlock()
	return TotalPnL{
		RealizedPnL:  l.state.RealizedPnL,
		TotalFunding: l.state.TotalFunding,
		TotalFees:    l.state.TotalFees,
		NetPnL:       l.state.RealizedPnL - l.state.TotalFees,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
