package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastPolicy(retries uint64) Policy {
	return Policy{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	boom := errors.New("bad credentials")
	err := fastPolicy(5).Do(context.Background(), func() error {
		calls++
		return Permanent(boom)
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func() error {
		calls++
		return errors.New("still down")
	})

	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)
}

func TestNoRetry(t *testing.T) {
	calls := 0
	err := NoRetry().Do(context.Background(), func() error {
		calls++
		return errors.New("once")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNotifyReportsRetries(t *testing.T) {
	var notified int
	_ = fastPolicy(2).Notify(context.Background(), func() error {
		return errors.New("down")
	}, func(error, time.Duration) { notified++ })

	assert.Equal(t, 2, notified)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Policy{MaxRetries: 10, InitialInterval: time.Second}.Do(ctx, func() error {
		calls++
		return errors.New("down")
	})

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}

func TestIsTransientStatus(t *testing.T) {
	assert.True(t, IsTransientStatus(429))
	assert.True(t, IsTransientStatus(500))
	assert.True(t, IsTransientStatus(503))
	assert.False(t, IsTransientStatus(404))
	assert.False(t, IsTransientStatus(401))
	assert.False(t, IsTransientStatus(200))
	assert.Nil(t, Permanent(nil))
}
