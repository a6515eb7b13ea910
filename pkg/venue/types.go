// Package venue defines the uniform capability surface exposed by a perpetual
// futures exchange, consumed by the core trade-lifecycle controller. Concrete
// venues (paper, live) implement Adapter; the controller never imports a
// venue-specific package directly.
package venue

import "fmt"

// Side is the direction of an order or a venue position.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType selects market or limit execution.
type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// TimeInForce controls how long an order rests before cancellation.
type TimeInForce string

const (
	IOC      TimeInForce = "ioc"
	GTT      TimeInForce = "gtt"
	PostOnly TimeInForce = "post_only"
)

// SymbolSpec carries the per-venue trading constraints for one symbol.
type SymbolSpec struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	TickSize    float64
	LotSize     float64
	MaxLeverage float64
}

// FundingUpdate is one venue's raw funding-rate observation for a symbol.
// It is distinct from strategy.FundingSnapshot, which pairs rates from both
// venues for the same symbol.
type FundingUpdate struct {
	Symbol                string
	RateBps               float64
	NextFundingTimestampMs int64
	LastUpdated           int64
}

// Ticker is a best bid/ask snapshot.
type Ticker struct {
	Symbol      string
	Bid         float64
	Ask         float64
	TimestampMs int64
}

// Mid returns the midpoint of bid and ask.
func (t Ticker) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// Position is the venue's own view of an open position, used for drift
// detection and exit sizing.
type Position struct {
	Symbol     string
	Side       Side
	Size       float64
	EntryPrice float64
	Leverage   float64
}

// SignedSize returns Size with a sign matching Side (positive for buy/long).
func (p Position) SignedSize() float64 {
	if p.Side == Sell {
		return -p.Size
	}
	return p.Size
}

// OrderRequest is submitted to PlaceOrder. Price is nil for market orders.
type OrderRequest struct {
	ClientID    string
	Symbol      string
	Side        Side
	Size        float64
	OrderType   OrderType
	Price       *float64
	ReduceOnly  bool
	TimeInForce TimeInForce
}

// OrderStatus reflects the venue's reported terminal or interim state.
type OrderStatus string

const (
	StatusFilled         OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusRejected       OrderStatus = "rejected"
	StatusCanceled       OrderStatus = "canceled"
	StatusOpen           OrderStatus = "open"
)

// OrderResult is returned by PlaceOrder.
type OrderResult struct {
	ClientID          string
	ExchangeOrderID   string
	Status            OrderStatus
	FilledSize        float64
	AverageFillPrice  float64
}

// TransportError marks a connection/timeout/socket class failure, retryable
// with exponential backoff. Semantic errors (insufficient margin, unknown
// symbol, rejected price) must not be wrapped in TransportError.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BuildClientID assembles the idempotency key convention
// "{venue}:{symbol}:{unix_epoch_s}", or a caller-supplied prefix such as
// "correction" / "rebalance" in place of the venue name.
func BuildClientID(prefix, symbol string, unixEpochSeconds int64) string {
	return fmt.Sprintf("%s:%s:%d", prefix, symbol, unixEpochSeconds)
}
