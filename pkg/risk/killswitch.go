// Package risk implements the safety plane: the kill switch latch, the
// margin monitor, and the pre-trade notional check.
package risk

import (
	"log"
	"sync"
	"time"
)

const (
	defaultMaxConsecutiveFailures = 3
	defaultMaxFailuresPerHour     = 10
	failureWindow                 = time.Hour
)

// KillSwitch is a sticky latch: once tripped, only Reset (an explicit
// out-of-band operator action) clears it. Success resets the consecutive
// counter but never the windowed one.
type KillSwitch struct {
	maxConsecutiveFailures int
	maxFailuresPerHour     int

	mu                 sync.Mutex
	consecutiveFailures int
	totalFailures      int
	failureTimestamps  []time.Time
	tripped            bool
	tripReason         string
}

// NewKillSwitch constructs a KillSwitch. Zero values fall back to the
// defaults (3 consecutive, 10/hour).
func NewKillSwitch(maxConsecutiveFailures, maxFailuresPerHour int) *KillSwitch {
	if maxConsecutiveFailures <= 0 {
		maxConsecutiveFailures = defaultMaxConsecutiveFailures
	}
	if maxFailuresPerHour <= 0 {
		maxFailuresPerHour = defaultMaxFailuresPerHour
	}
	return &KillSwitch{
		maxConsecutiveFailures: maxConsecutiveFailures,
		maxFailuresPerHour:     maxFailuresPerHour,
	}
}

// RecordSuccess resets the consecutive-failure counter to 0.
func (k *KillSwitch) RecordSuccess() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.consecutiveFailures = 0
}

// RecordFailure increments both counters, prunes timestamps older than the
// 1-hour window, and trips the switch if either threshold is reached. It
// returns whether the switch is now tripped.
func (k *KillSwitch) RecordFailure(reason string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	k.consecutiveFailures++
	k.totalFailures++
	k.failureTimestamps = append(k.failureTimestamps, now)
	k.failureTimestamps = pruneOlderThan(k.failureTimestamps, now.Add(-failureWindow))

	if k.tripped {
		return true
	}
	if k.consecutiveFailures >= k.maxConsecutiveFailures || len(k.failureTimestamps) >= k.maxFailuresPerHour {
		k.tripLocked(reason)
	}
	return k.tripped
}

// Trip manually trips the switch with reason, logging it as critical.
func (k *KillSwitch) Trip(reason string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.tripLocked(reason)
}

func (k *KillSwitch) tripLocked(reason string) {
	k.tripped = true
	k.tripReason = reason
	log.Printf("[KillSwitch] CRITICAL: tripped — %s", reason)
}

// Reset clears all counters and the tripped flag. Must only be invoked by an
// explicit operator action; the controller never calls this automatically.
func (k *KillSwitch) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.consecutiveFailures = 0
	k.totalFailures = 0
	k.failureTimestamps = nil
	k.tripped = false
	k.tripReason = ""
}

// IsTripped reports the current latch state.
func (k *KillSwitch) IsTripped() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tripped
}

// TripReason returns the reason given when the switch was tripped, if any.
func (k *KillSwitch) TripReason() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tripReason
}

func pruneOlderThan(timestamps []time.Time, cutoff time.Time) []time.Time {
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
