package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errUpstream = errors.New("upstream down")

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []string
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := newCircuitBreaker(&Config{
		Name:             "sheet_webhook",
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
		OnStateChange: func(name string, from, to CircuitState) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	}, clock.Now)

	assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, Closed, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock.Advance(2 * time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, Closed, cb.State())

	assert.Equal(t, []string{
		"sheet_webhook:closed->open",
		"sheet_webhook:open->half_open",
		"sheet_webhook:half_open->closed",
	}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := newCircuitBreaker(&Config{FailureThreshold: 1, RecoveryTimeout: time.Second, SuccessThreshold: 2}, clock.Now)

	_ = cb.Call(func() error { return errUpstream })
	require.Equal(t, Open, cb.State())

	clock.Advance(2 * time.Second)
	_ = cb.Call(func() error { return errUpstream })
	assert.Equal(t, Open, cb.State())

	metrics := cb.GetMetrics()
	assert.Equal(t, 2, metrics.FailureCount)
	assert.True(t, metrics.NextAttempt.After(clock.Now()))
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(&Config{FailureThreshold: 1})
	assert.Equal(t, "default", cb.Name())

	_ = cb.Call(func() error { return errUpstream })
	require.Equal(t, Open, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}
