// Package retry provides the exponential backoff schedule used by the
// WebSocket Session's reconnect loop.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential backoff durations with jitter, capped at a
// configured ceiling.
type Backoff struct {
	// Initial is the delay before the first reconnect attempt.
	Initial time.Duration
	// Ceiling caps the computed delay.
	Ceiling time.Duration
	// Multiplier is the factor applied after each attempt. 2.0 doubles the
	// delay every attempt.
	Multiplier float64
	// Jitter adds up to this fraction of randomness to the computed delay,
	// e.g. 0.1 adds up to +/-10%.
	Jitter float64
}

// DefaultBackoff returns the schedule the WebSocket Session uses when the
// caller configures none.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    500 * time.Millisecond,
		Ceiling:    30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// Next returns the delay to wait before the given attempt (1-indexed: the
// delay before the first retry is Next(1)).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := b.Initial
	if initial <= 0 {
		initial = DefaultBackoff().Initial
	}
	ceiling := b.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultBackoff().Ceiling
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = DefaultBackoff().Multiplier
	}

	delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if delay > float64(ceiling) {
		delay = float64(ceiling)
	}
	if b.Jitter > 0 {
		delay += delay * b.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter does not need crypto rand
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
