package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestBreakerTripsAndRecovers(t *testing.T) {
	var changes []State
	b := NewBreaker("redis", BreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange:    func(_ string, _, to State) { changes = append(changes, to) },
	})
	clock := time.Unix(0, 0)
	b.now = func() time.Time { return clock }

	assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	clock = clock.Add(time.Minute)
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, changes)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker("redis", BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	clock := time.Unix(0, 0)
	b.now = func() time.Time { return clock }

	_ = b.Do(func() error { return errBoom })
	clock = clock.Add(2 * time.Second)
	_ = b.Do(func() error { return errBoom })

	assert.Equal(t, StateOpen, b.State())
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestRetryEventuallySucceeds(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), "flaky", RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}, func(context.Context) error {
		if calls.Add(1) < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetryGivesUp(t *testing.T) {
	err := Retry(context.Background(), "broken", RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond}, func(context.Context) error {
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	var calls atomic.Int32
	err := Retry(context.Background(), "fatal", RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(error) bool { return false },
	}, func(context.Context) error {
		calls.Add(1)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.EqualValues(t, 1, calls.Load())
}

func TestWithTimeout(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "fast", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = WithTimeout(context.Background(), 5*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
