package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func fast(opts ...Option) Config {
	return New(append([]Option{WithBackoff(time.Millisecond, 2*time.Millisecond), WithJitter(0)}, opts...)...)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var waits []time.Duration
	cfg := fast(WithMaxAttempts(5), WithOnRetry(func(_ int, err error, wait time.Duration) {
		assert.ErrorIs(t, err, errFlaky)
		waits = append(waits, wait)
	}))

	attempts, err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 4 {
			return errFlaky
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDo_Exhausted(t *testing.T) {
	attempts, err := Do(context.Background(), fast(), func(context.Context) error { return errFlaky })
	assert.Equal(t, 3, attempts)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 3, rerr.Attempts)
	assert.ErrorIs(t, err, errFlaky)
	assert.EqualError(t, err, "after 3 attempts: flaky")
}

func TestDo_SingleAttempt(t *testing.T) {
	attempts, err := Do(context.Background(), None, func(context.Context) error { return errFlaky })
	assert.Equal(t, 1, attempts)
	assert.Equal(t, errFlaky, err)

	attempts, err = Do(context.Background(), Config{}, func(context.Context) error { return nil })
	assert.Equal(t, 1, attempts)
	assert.NoError(t, err)
}

func TestDo_Permanent(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fast(), func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Equal(t, errFlaky, err)
	assert.False(t, IsPermanent(err))
	assert.True(t, IsPermanent(Permanent(errFlaky)))
	assert.Nil(t, Permanent(nil))
}

func TestDo_NotRetryable(t *testing.T) {
	cfg := fast(WithRetryable(func(err error) bool { return !errors.Is(err, errFlaky) }))
	attempts, err := Do(context.Background(), cfg, func(context.Context) error { return errFlaky })
	assert.Equal(t, 1, attempts)
	assert.Equal(t, errFlaky, err)
}

func TestDo_Context(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		attempts, err := Do(ctx, fast(), func(context.Context) error { return nil })
		assert.Equal(t, 0, attempts)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("cancelled during wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := New(WithBackoff(time.Hour, time.Hour))
		attempts, err := Do(ctx, cfg, func(context.Context) error {
			cancel()
			return errFlaky
		})
		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("context errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := Do(context.Background(), fast(), func(context.Context) error {
			calls++
			return context.DeadlineExceeded
		})
		assert.Equal(t, 1, calls)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestJittered(t *testing.T) {
	assert.Equal(t, time.Second, jittered(time.Second, 0))
	for i := 0; i < 100; i++ {
		d := jittered(time.Second, 0.5)
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}
