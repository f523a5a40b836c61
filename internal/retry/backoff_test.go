package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/ari-client/internal/retry"
)

func TestBackoffGrowsExponentially(t *testing.T) {
	b := retry.Backoff{Initial: 100 * time.Millisecond, Ceiling: time.Hour, Multiplier: 2.0}
	require.Equal(t, 100*time.Millisecond, b.Next(1))
	require.Equal(t, 200*time.Millisecond, b.Next(2))
	require.Equal(t, 400*time.Millisecond, b.Next(3))
}

func TestBackoffCapsAtCeiling(t *testing.T) {
	b := retry.Backoff{Initial: 1 * time.Second, Ceiling: 5 * time.Second, Multiplier: 2.0}
	require.Equal(t, 5*time.Second, b.Next(10))
}

func TestBackoffJitterStaysWithinBounds(t *testing.T) {
	b := retry.Backoff{Initial: 1 * time.Second, Ceiling: time.Minute, Multiplier: 1.0, Jitter: 0.1}
	for i := 0; i < 50; i++ {
		d := b.Next(1)
		require.GreaterOrEqual(t, d, 900*time.Millisecond)
		require.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestBackoffZeroValueUsesDefaults(t *testing.T) {
	b := retry.Backoff{}
	d := b.Next(1)
	require.Equal(t, retry.DefaultBackoff().Initial, d)
}

func TestBackoffAttemptBelowOneClampsToFirst(t *testing.T) {
	b := retry.Backoff{Initial: 100 * time.Millisecond, Ceiling: time.Hour, Multiplier: 2.0}
	require.Equal(t, b.Next(1), b.Next(0))
	require.Equal(t, b.Next(1), b.Next(-5))
}
