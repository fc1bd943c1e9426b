package crawler

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseRetryMode("")
	require.NoError(t, err)
	assert.Equal(t, RetryModeFixed, mode)

	mode, err = ParseRetryMode("exponential")
	require.NoError(t, err)
	assert.Equal(t, RetryModeExponential, mode)

	_, err = ParseRetryMode("linear")
	require.Error(t, err)
}

func TestFixedBackOffKeepsDelay(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(RetryConfig{Mode: RetryModeFixed, Delay: time.Second})
	b := p.NewBackOff()
	for i := 0; i < 50; i++ {
		require.Equal(t, time.Second, b.NextBackOff())
	}
}

func TestExponentialBackOffGrowsAndNeverStops(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(RetryConfig{
		Mode:     RetryModeExponential,
		Delay:    100 * time.Millisecond,
		MaxDelay: 2 * time.Second,
	})
	b := p.NewBackOff()
	first := b.NextBackOff()
	assert.InDelta(t, float64(100*time.Millisecond), float64(first), float64(20*time.Millisecond))

	var last time.Duration
	for i := 0; i < 200; i++ {
		last = b.NextBackOff()
		require.NotEqual(t, backoff.Stop, last)
		require.LessOrEqual(t, last, 2*time.Second+200*time.Millisecond)
	}
	assert.Greater(t, last, time.Second)
}

func TestRetryPolicyAlertThreshold(t *testing.T) {
	t.Parallel()

	p := NewRetryPolicy(RetryConfig{Delay: time.Second, AlertAfter: 3})
	assert.False(t, p.ShouldAlert(2))
	assert.True(t, p.ShouldAlert(3))
	assert.False(t, p.ShouldAlert(4))
	assert.False(t, p.Stalled(2))
	assert.True(t, p.Stalled(4))

	disabled := NewRetryPolicy(RetryConfig{Delay: time.Second})
	assert.False(t, disabled.ShouldAlert(0))
	assert.False(t, disabled.Stalled(1000))
}
