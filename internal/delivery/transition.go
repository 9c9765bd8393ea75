package delivery

import (
	"math"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"
)

// Outcome is the result of one HTTP delivery attempt. Err covers transport
// failures (no response); StatusCode covers everything the endpoint said.
type Outcome struct {
	StatusCode int
	Body       string
	Err        error
}

func (o Outcome) succeeded() bool {
	return o.Err == nil && o.StatusCode >= 200 && o.StatusCode < 300
}

const maxStoredBody = 512

// NextState is the pure transition of the delivery state machine. It never
// touches storage or the network, so the retry/backoff behavior is testable
// without a live endpoint. Terminal records are returned unchanged: a ledger
// row never regresses from success or failed.
func NextState(d Delivery, outcome Outcome, policy subscription.RetryPolicy, now time.Time) Delivery {
	if d.IsTerminal() {
		return d
	}

	d.Attempts++
	attemptAt := now
	d.LastAttemptAt = &attemptAt
	d.LastStatusCode = outcome.StatusCode
	d.LastResponseBody = truncate(outcome.Body, maxStoredBody)
	if outcome.Err != nil {
		d.LastError = truncate(outcome.Err.Error(), maxStoredBody)
	} else {
		d.LastError = ""
	}

	if outcome.succeeded() {
		d.Status = StatusSuccess
		d.NextRetryAt = nil
		return d
	}

	if d.Attempts >= policy.MaxRetries {
		d.Status = StatusFailed
		d.NextRetryAt = nil
		return d
	}

	// initialDelay * multiplier^(attempts-1), so the first retry waits the
	// initial delay and each later one stretches by the multiplier.
	backoff := time.Duration(float64(policy.InitialDelay) * math.Pow(policy.BackoffMultiplier, float64(d.Attempts-1)))
	retryAt := now.Add(backoff)
	d.Status = StatusRetrying
	d.NextRetryAt = &retryAt
	return d
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
