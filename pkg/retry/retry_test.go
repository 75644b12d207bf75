package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *Config {
	return &Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestExponentialBackoff_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := NewExponentialBackoff(fastConfig(3)).Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExponentialBackoff_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("webhook rejected row: 400")

	err := NewExponentialBackoff(fastConfig(5)).Execute(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.False(t, IsMaxRetriesExceeded(err))
}

func TestFixedDelay_ReportsExhaustion(t *testing.T) {
	calls := 0
	err := NewFixedDelay(fastConfig(2)).Execute(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errors.New("upstream 502"))
	})

	require.Error(t, err)
	assert.True(t, IsMaxRetriesExceeded(err))
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "upstream 502")
}

func TestExecute_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewFixedDelay(fastConfig(3)).Execute(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestCalculateDelay_IsCapped(t *testing.T) {
	eb := NewExponentialBackoff(&Config{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2})

	assert.Equal(t, time.Second, eb.calculateDelay(1))
	assert.Equal(t, 2*time.Second, eb.calculateDelay(2))
	assert.Equal(t, 3*time.Second, eb.calculateDelay(5))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("i/o timeout")))
	assert.True(t, IsRetryable(Retryable(errors.New("anything"))))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(errors.New("bad request")))
}
