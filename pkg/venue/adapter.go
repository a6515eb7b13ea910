package venue

import "context"

// Adapter is the capability set a venue must expose to the controller.
// Implementations marshal results back onto the caller's goroutine before
// returning; no shared controller state is mutated off the calling task.
type Adapter interface {
	// Name identifies the venue for logging and client_id construction.
	Name() string

	// GetSymbols returns the tradable symbol specs for this venue.
	GetSymbols(ctx context.Context) ([]SymbolSpec, error)

	// FundingStream returns a channel of funding-rate updates for the given
	// symbols. The channel is closed when ctx is done or the underlying
	// subscription ends; the caller is expected to pull the latest item and
	// discard stale ones.
	FundingStream(ctx context.Context, symbols []string) (<-chan FundingUpdate, error)

	// TickerStream returns a channel of best bid/ask updates.
	TickerStream(ctx context.Context, symbols []string) (<-chan Ticker, error)

	// GetPositions returns the venue's current open positions.
	GetPositions(ctx context.Context) ([]Position, error)

	// PlaceOrder submits an order and returns its immediate result. For IOC
	// orders this is the terminal result; for GTT/PostOnly it may reflect a
	// resting order.
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)

	// CancelOrder best-effort cancels a resting order. Callers must not
	// treat a cancel failure as fatal — the order may already be filled or
	// rejected.
	CancelOrder(ctx context.Context, exchangeOrderID string) error
}
