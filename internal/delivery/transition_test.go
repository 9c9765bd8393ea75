package delivery_test

import (
	"errors"
	"testing"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/delivery"
	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"

	"github.com/stretchr/testify/assert"
)

func policy(maxRetries int) subscription.RetryPolicy {
	return subscription.RetryPolicy{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Minute,
		BackoffMultiplier: 2,
	}
}

func TestNextState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("2xx on first attempt succeeds", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusPending}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 200, Body: "ok"}, policy(3), now)

		assert.Equal(t, delivery.StatusSuccess, next.Status)
		assert.Equal(t, 1, next.Attempts)
		assert.Nil(t, next.NextRetryAt)
		assert.Equal(t, 200, next.LastStatusCode)
		assert.Equal(t, "ok", next.LastResponseBody)
		assert.Empty(t, next.LastError)
	})

	t.Run("5xx schedules retry with initial delay", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusPending}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 500}, policy(3), now)

		assert.Equal(t, delivery.StatusRetrying, next.Status)
		assert.Equal(t, 1, next.Attempts)
		assert.NotNil(t, next.NextRetryAt)
		assert.Equal(t, now.Add(time.Minute), *next.NextRetryAt)
	})

	t.Run("backoff grows by multiplier per attempt", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusRetrying, Attempts: 1}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 503}, policy(5), now)
		assert.Equal(t, 2, next.Attempts)
		assert.Equal(t, now.Add(2*time.Minute), *next.NextRetryAt)

		next = delivery.NextState(next, delivery.Outcome{StatusCode: 503}, policy(5), now)
		assert.Equal(t, 3, next.Attempts)
		assert.Equal(t, now.Add(4*time.Minute), *next.NextRetryAt)
	})

	t.Run("exhausting max retries terminates in failed", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusPending}
		pol := policy(3)

		for i := 0; i < 2; i++ {
			d = delivery.NextState(d, delivery.Outcome{StatusCode: 500}, pol, now)
			assert.Equal(t, delivery.StatusRetrying, d.Status)
		}

		d = delivery.NextState(d, delivery.Outcome{StatusCode: 500}, pol, now)
		assert.Equal(t, delivery.StatusFailed, d.Status)
		assert.Equal(t, 3, d.Attempts)
		assert.Nil(t, d.NextRetryAt)
	})

	t.Run("network error counts as a failed attempt", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusPending}
		next := delivery.NextState(d, delivery.Outcome{Err: errors.New("connection refused")}, policy(3), now)

		assert.Equal(t, delivery.StatusRetrying, next.Status)
		assert.Equal(t, "connection refused", next.LastError)
	})

	t.Run("2xx with transport error does not succeed", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusPending}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 200, Err: errors.New("read body: timeout")}, policy(3), now)
		assert.NotEqual(t, delivery.StatusSuccess, next.Status)
	})

	t.Run("terminal success never regresses", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusSuccess, Attempts: 1}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 500}, policy(3), now)
		assert.Equal(t, d, next)
	})

	t.Run("terminal failed never regresses", func(t *testing.T) {
		d := delivery.Delivery{Status: delivery.StatusFailed, Attempts: 3}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 200}, policy(3), now)
		assert.Equal(t, d, next)
		assert.Equal(t, 3, next.Attempts)
	})

	t.Run("response body is truncated", func(t *testing.T) {
		long := make([]byte, 2048)
		for i := range long {
			long[i] = 'x'
		}
		d := delivery.Delivery{Status: delivery.StatusPending}
		next := delivery.NextState(d, delivery.Outcome{StatusCode: 500, Body: string(long)}, policy(3), now)
		assert.Len(t, next.LastResponseBody, 512)
	})
}
