// Package live implements venue.Adapter against a real exchange gateway:
// funding and ticker data arrive over NATS subject subscriptions, while
// order placement, cancellation, and position queries go over a REST +
// websocket gateway.
package live

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// Config wires a Venue to its NATS and HTTP/websocket endpoints.
type Config struct {
	Name         string
	NATSURL      string
	BaseURL      string
	WebsocketURL string
	APIKey       string
	APISecret    string
	HTTPTimeout  time.Duration
}

// Venue is a NATS + REST/websocket venue.Adapter.
type Venue struct {
	cfg        Config
	nc         *nats.Conn
	httpClient *http.Client
}

// Dial connects to NATS (if configured) and returns a ready Venue. A nil
// NATS connection degrades FundingStream/TickerStream to immediately-closed
// channels, which is acceptable for venues that only serve REST.
func Dial(cfg Config) (*Venue, error) {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	v := &Venue{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}

	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.MaxReconnects(-1), nats.ReconnectWait(2*time.Second))
		if err != nil {
			return nil, &venue.TransportError{Op: "nats.Connect", Err: err}
		}
		v.nc = nc
		log.Printf("[LiveVenue:%s] connected to NATS at %s", cfg.Name, cfg.NATSURL)
	}

	return v, nil
}

func (v *Venue) Name() string { return v.cfg.Name }

// Close releases the NATS connection.
func (v *Venue) Close() {
	if v.nc != nil {
		v.nc.Close()
	}
}

func (v *Venue) GetSymbols(ctx context.Context) ([]venue.SymbolSpec, error) {
	var specs []venue.SymbolSpec
	if err := v.getJSON(ctx, "/symbols", &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// FundingStream subscribes to "funding.{venue}.{symbol}" for each symbol.
func (v *Venue) FundingStream(ctx context.Context, symbols []string) (<-chan venue.FundingUpdate, error) {
	out := make(chan venue.FundingUpdate, 64)
	if v.nc == nil {
		close(out)
		return out, nil
	}

	var subs []*nats.Subscription
	for _, symbol := range symbols {
		symbol := symbol
		subject := fmt.Sprintf("funding.%s.%s", v.cfg.Name, symbol)
		sub, err := v.nc.Subscribe(subject, func(msg *nats.Msg) {
			var update venue.FundingUpdate
			if err := json.Unmarshal(msg.Data, &update); err != nil {
				log.Printf("[LiveVenue:%s] malformed funding message on %s: %v", v.cfg.Name, subject, err)
				return
			}
			update.Symbol = symbol
			select {
			case out <- update:
			default:
				log.Printf("[LiveVenue:%s] funding channel full, dropping update for %s", v.cfg.Name, symbol)
			}
		})
		if err != nil {
			return nil, &venue.TransportError{Op: "nats.Subscribe(" + subject + ")", Err: err}
		}
		subs = append(subs, sub)
	}

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
		close(out)
	}()

	return out, nil
}

// TickerStream subscribes to "ticker.{venue}.{symbol}" for each symbol.
func (v *Venue) TickerStream(ctx context.Context, symbols []string) (<-chan venue.Ticker, error) {
	out := make(chan venue.Ticker, 64)
	if v.nc == nil {
		close(out)
		return out, nil
	}

	var subs []*nats.Subscription
	for _, symbol := range symbols {
		symbol := symbol
		subject := fmt.Sprintf("ticker.%s.%s", v.cfg.Name, symbol)
		sub, err := v.nc.Subscribe(subject, func(msg *nats.Msg) {
			var tick venue.Ticker
			if err := json.Unmarshal(msg.Data, &tick); err != nil {
				log.Printf("[LiveVenue:%s] malformed ticker message on %s: %v", v.cfg.Name, subject, err)
				return
			}
			tick.Symbol = symbol
			select {
			case out <- tick:
			default:
				log.Printf("[LiveVenue:%s] ticker channel full, dropping update for %s", v.cfg.Name, symbol)
			}
		})
		if err != nil {
			return nil, &venue.TransportError{Op: "nats.Subscribe(" + subject + ")", Err: err}
		}
		subs = append(subs, sub)
	}

	go func() {
		<-ctx.Done()
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
		close(out)
	}()

	return out, nil
}

// GetFundingRates polls the gateway's REST funding endpoint once. Used by
// diagnostic tooling that wants a snapshot without a NATS subscription.
func (v *Venue) GetFundingRates(ctx context.Context, symbols []string) ([]venue.FundingUpdate, error) {
	path := "/funding"
	if len(symbols) > 0 {
		path += "?symbols=" + strings.Join(symbols, ",")
	}
	var updates []venue.FundingUpdate
	if err := v.getJSON(ctx, path, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (v *Venue) GetPositions(ctx context.Context) ([]venue.Position, error) {
	var positions []venue.Position
	if err := v.getJSON(ctx, "/positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (v *Venue) PlaceOrder(ctx context.Context, req venue.OrderRequest) (venue.OrderResult, error) {
	var result venue.OrderResult
	if err := v.postJSON(ctx, "/orders", req, &result); err != nil {
		return venue.OrderResult{}, err
	}
	return result, nil
}

func (v *Venue) CancelOrder(ctx context.Context, exchangeOrderID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, v.cfg.BaseURL+"/orders/"+exchangeOrderID, nil)
	if err != nil {
		return err
	}
	v.authorize(httpReq)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return &venue.TransportError{Op: "DELETE /orders/" + exchangeOrderID, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &venue.TransportError{Op: "DELETE /orders/" + exchangeOrderID, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("live venue %s: cancel rejected with status %d", v.cfg.Name, resp.StatusCode)
	}
	return nil
}

func (v *Venue) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	v.authorize(httpReq)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return &venue.TransportError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &venue.TransportError{Op: "GET " + path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("live venue %s: %s returned status %d", v.cfg.Name, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (v *Venue) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	v.authorize(httpReq)

	resp, err := v.httpClient.Do(httpReq)
	if err != nil {
		return &venue.TransportError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &venue.TransportError{Op: "POST " + path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("live venue %s: %s returned status %d (semantic rejection)", v.cfg.Name, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (v *Venue) authorize(req *http.Request) {
	if v.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", v.cfg.APIKey)
	}
}

// DialOrderUpdatesWebsocket opens a best-effort websocket connection for
// push-based order status updates, used to refresh resting GTT/PostOnly
// orders without polling. Callers that only trade IOC do not need this.
func (v *Venue) DialOrderUpdatesWebsocket(ctx context.Context) (*websocket.Conn, error) {
	if v.cfg.WebsocketURL == "" {
		return nil, fmt.Errorf("live venue %s: no websocket_url configured", v.cfg.Name)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, v.cfg.WebsocketURL, nil)
	if err != nil {
		return nil, &venue.TransportError{Op: "websocket.Dial", Err: err}
	}
	return conn, nil
}
