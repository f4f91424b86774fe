package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier(opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
	}
	return New(append(base, opts...)...)
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastRetrier().Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fastRetrier().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PlainErrorsAreNotRetriedByDefault(t *testing.T) {
	calls := 0
	err := fastRetrier().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("plain")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfOverridesClassification(t *testing.T) {
	calls := 0
	r := fastRetrier(WithRetryIf(func(err error) bool { return err != nil }))
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("plain but retried")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "exhausts all attempts")
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	underlying := errors.New("bad request")
	r := fastRetrier(WithRetryIf(func(err error) bool { return true }))
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(underlying)
	})

	assert.ErrorIs(t, err, underlying)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastRetrier().Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	r := fastRetrier(
		WithRetryIf(func(err error) bool { return true }),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) {
			attempts = append(attempts, attempt)
		}),
	)

	_ = r.Do(context.Background(), func(context.Context) error {
		return errors.New("always fails")
	})

	assert.Equal(t, []int{1, 2}, attempts, "called before each retry, not after the last attempt")
}

func TestDelayFor_Backoff(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(time.Second),
	)
	r.config.JitterFactor = 0 // deterministic for the assertion

	assert.Equal(t, 100*time.Millisecond, r.delayFor(1))
	assert.Equal(t, 200*time.Millisecond, r.delayFor(2))
	assert.Equal(t, 400*time.Millisecond, r.delayFor(3))
	assert.Equal(t, time.Second, r.delayFor(10), "capped at max delay")
}
