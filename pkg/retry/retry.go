// Package retry implements the generic backoff and stream-reconnection
// helpers used around venue transport calls.
package retry

import (
	"context"
	"errors"
	"log"
	"math"
	"net"
	"time"

	"github.com/Gajesh2007/funding-arb-bot/pkg/venue"
)

// Transport calls get 3 attempts with waits of clamp(2^attempt, 1, 10)s;
// the last error is returned after exhaustion.
const (
	defaultMaxAttempts = 3
	minWait            = 1 * time.Second
	maxWait            = 10 * time.Second
)

// IsTransportError reports whether err is a transport-class failure
// (connection, timeout, socket) eligible for retry, as opposed to a
// semantic error like "insufficient margin" which must never be retried.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var transportErr *venue.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do retries fn up to maxAttempts times (default 3 when <= 0) with
// exponential backoff clamped to [1s, 10s], but only while isRetryable(err)
// is true; a non-retryable error is returned immediately. The final
// attempt's error is returned on exhaustion.
func Do(ctx context.Context, maxAttempts int, isRetryable func(error) bool, fn func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		wait := backoffDuration(attempt, minWait, maxWait)
		log.Printf("[Retry] attempt %d/%d failed (%v), retrying in %s", attempt, maxAttempts, lastErr, wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func backoffDuration(attempt int, min, max time.Duration) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// streamBackoffCap bounds reconnect waits at min(2^retry, 60)s.
const streamBackoffCap = 60 * time.Second

// ResilientStream wraps factory, a function that (re)establishes a stream,
// relaying its items onto the returned channel. On any factory error or
// stream-read error it reconnects after a backoff of min(2^retry, 60)
// seconds, up to maxRetries consecutive failures; any single successfully
// relayed item resets the retry counter. The returned channel is closed
// when ctx is done or maxRetries is exhausted.
func ResilientStream[T any](ctx context.Context, name string, maxRetries int, factory func(context.Context) (<-chan T, error)) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		retryCount := 0

		for {
			if ctx.Err() != nil {
				return
			}

			source, err := factory(ctx)
			if err != nil {
				retryCount++
				log.Printf("[ResilientStream:%s] connect failed (attempt %d): %v", name, retryCount, err)
				if retryCount >= maxRetries {
					log.Printf("[ResilientStream:%s] CRITICAL: giving up after %d attempts", name, retryCount)
					return
				}
				if !sleepOrDone(ctx, streamBackoff(retryCount)) {
					return
				}
				continue
			}

			drained := false
			for item := range source {
				retryCount = 0
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
				drained = true
			}
			_ = drained

			retryCount++
			log.Printf("[ResilientStream:%s] stream ended (attempt %d)", name, retryCount)
			if retryCount >= maxRetries {
				log.Printf("[ResilientStream:%s] CRITICAL: giving up after %d attempts", name, retryCount)
				return
			}
			if !sleepOrDone(ctx, streamBackoff(retryCount)) {
				return
			}
		}
	}()

	return out
}

func streamBackoff(retry int) time.Duration {
	d := time.Duration(math.Pow(2, float64(retry))) * time.Second
	if d > streamBackoffCap {
		return streamBackoffCap
	}
	return d
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
