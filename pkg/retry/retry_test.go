package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestDoRetriesTransportErrorsAndSucceeds(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 3, IsTransportError, func() error {
		attempts++
		if attempts < 2 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoDoesNotRetrySemanticErrors(t *testing.T) {
	attempts := 0
	semanticErr := errors.New("insufficient margin")
	err := Do(context.Background(), 3, IsTransportError, func() error {
		attempts++
		return semanticErr
	})
	if !errors.Is(err, semanticErr) {
		t.Fatalf("expected semantic error surfaced unchanged, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("semantic error must not be retried, got %d attempts", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	netErr := &net.OpError{Op: "dial", Err: errors.New("timeout")}
	err := Do(context.Background(), 2, IsTransportError, func() error {
		attempts++
		return netErr
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestResilientStreamRelaysItemsAndResetsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	factory := func(ctx context.Context) (<-chan int, error) {
		calls++
		ch := make(chan int, 1)
		ch <- calls
		close(ch)
		return ch, nil
	}

	// maxRetries 2: each stream ends after one item, so without the reset
	// the second end would exhaust the budget before a third connect.
	out := ResilientStream(ctx, "test", 2, factory)

	first := <-out
	if first != 1 {
		t.Fatalf("expected first item 1, got %d", first)
	}
	second := <-out
	if second != 2 {
		t.Fatalf("expected second item 2 (stream re-established), got %d", second)
	}
	third, ok := <-out
	if !ok || third != 3 {
		t.Fatalf("expected third item 3 (retry counter reset by relayed items), got %d ok=%v", third, ok)
	}
	cancel()
	// Channel must eventually close once ctx is done.
	select {
	case _, ok := <-out:
		if ok {
			// drain until closed
			for range out {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected channel to close after cancel")
	}
}
