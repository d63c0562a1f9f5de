package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingBackoff(base time.Duration, retries int) (Backoff, *[]time.Duration) {
	var waits []time.Duration
	b := NewBackoff(base, retries)
	b.jitter = 0
	b.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return b, &waits
}

func TestBackoffDoublesAndStops(t *testing.T) {
	b, waits := recordingBackoff(10*time.Millisecond, 3)
	calls := 0
	err := b.Do(context.Background(), func(int) error {
		calls++
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, *waits)
}

func TestBackoffSucceedsEarly(t *testing.T) {
	b, waits := recordingBackoff(time.Millisecond, 5)
	err := b.Do(context.Background(), func(i int) error {
		if i < 1 {
			return errors.New("retry")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Len(t, *waits, 1)
}

func TestBackoffHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBackoff(time.Second, 3)
	err := b.Do(ctx, func(int) error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffStopsOnPermanent(t *testing.T) {
	b, waits := recordingBackoff(time.Millisecond, 3)
	notFound := errors.New("not found")
	calls := 0
	err := b.Do(context.Background(), func(int) error {
		calls++
		return fmt.Errorf("get: %w", Permanent(notFound))
	})
	assert.ErrorIs(t, err, notFound)
	assert.EqualError(t, err, "not found")
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
	assert.Nil(t, Permanent(nil))
}
