package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"

	"go.uber.org/zap"
)

const deliveryTimeout = 30 * time.Second

// webhookBody is the JSON document POSTed to subscriber endpoints.
type webhookBody struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

// Dispatcher evaluates webhook subscriptions for each envelope consumed from
// the broker and drives the delivery ledger. OnEvent returns an error only
// for infrastructure failures, so the broker message stays uncommitted and
// is redelivered; endpoint failures are absorbed into the ledger instead.
type Dispatcher struct {
	subs   subscription.Repository
	ledger Repository
	client *http.Client
	logger *zap.Logger
}

func NewDispatcher(subs subscription.Repository, ledger Repository, logger ...*zap.Logger) *Dispatcher {
	l := zap.L().Named("delivery.dispatcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("delivery.dispatcher")
	}
	return &Dispatcher{
		subs:   subs,
		ledger: ledger,
		client: &http.Client{Timeout: deliveryTimeout},
		logger: l,
	}
}

func (d *Dispatcher) OnEvent(ctx context.Context, envelope events.Envelope) error {
	subs, err := d.subs.FindActiveByTenant(ctx, envelope.TenantID)
	if err != nil {
		return fmt.Errorf("find subscriptions for tenant %s: %w", envelope.TenantID, err)
	}

	for _, sub := range subs {
		if !subscription.MatchesEvent(sub, envelope) {
			continue
		}

		eventCopy, err := json.Marshal(envelope)
		if err != nil {
			return err
		}

		rec, created, err := d.ledger.FindOrCreate(ctx, &Delivery{
			SubscriptionID: sub.ID,
			EventID:        envelope.EventID,
			TenantID:       sub.TenantID,
			EventType:      envelope.EventType,
			Event:          eventCopy,
			Status:         StatusPending,
		})
		if err != nil {
			return fmt.Errorf("create delivery record: %w", err)
		}

		// A broker redelivery finds the earlier row. Anything past pending
		// has already been attempted (or is owned by the sweeper), so the
		// duplicate is a no-op.
		if !created && rec.Status != StatusPending {
			d.logger.Debug("duplicate envelope for delivery, skipping",
				zap.String("delivery_id", rec.ID.String()),
				zap.String("event_id", envelope.EventID),
			)
			continue
		}

		if err := d.Attempt(ctx, rec, sub); err != nil {
			return err
		}
	}

	return nil
}

// Attempt performs one synchronous delivery attempt for a ledger record and
// persists the resulting transition. Attempts for the same record are never
// concurrent: OnEvent handles only rows it just created and the sweeper runs
// its batch serially.
func (d *Dispatcher) Attempt(ctx context.Context, rec *Delivery, sub subscription.Subscription) error {
	outcome := d.send(ctx, rec, sub)

	next := NextState(*rec, outcome, sub.RetryPolicy(), time.Now().UTC())
	if err := d.ledger.Update(ctx, &next); err != nil {
		return fmt.Errorf("update delivery record: %w", err)
	}
	*rec = next

	switch next.Status {
	case StatusSuccess:
		if err := d.subs.IncrementSuccess(ctx, sub.ID.String()); err != nil {
			d.logger.Error("increment subscription success counter failed", zap.Error(err))
		}
		d.logger.Info("webhook delivered",
			zap.String("delivery_id", next.ID.String()),
			zap.String("subscription_id", sub.ID.String()),
			zap.String("event_type", next.EventType),
			zap.Int("attempts", next.Attempts),
		)
	case StatusFailed:
		if err := d.subs.IncrementFailure(ctx, sub.ID.String()); err != nil {
			d.logger.Error("increment subscription failure counter failed", zap.Error(err))
		}
		d.logger.Warn("webhook delivery exhausted",
			zap.String("delivery_id", next.ID.String()),
			zap.String("subscription_id", sub.ID.String()),
			zap.Int("attempts", next.Attempts),
			zap.Int("last_status_code", next.LastStatusCode),
			zap.String("last_error", next.LastError),
		)
	default:
		d.logger.Info("webhook delivery scheduled for retry",
			zap.String("delivery_id", next.ID.String()),
			zap.Int("attempts", next.Attempts),
			zap.Timep("next_retry_at", next.NextRetryAt),
		)
	}

	return nil
}

func (d *Dispatcher) send(ctx context.Context, rec *Delivery, sub subscription.Subscription) Outcome {
	var envelope events.Envelope
	if err := json.Unmarshal(rec.Event, &envelope); err != nil {
		return Outcome{Err: fmt.Errorf("decode stored event: %w", err)}
	}

	body, err := json.Marshal(webhookBody{
		Event:     envelope.EventType,
		Payload:   envelope.Payload,
		Timestamp: envelope.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Outcome{Err: err}
	}

	ts := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, Sign(sub.Secret, ts, body))
	req.Header.Set(HeaderTimestamp, fmt.Sprintf("%d", ts))
	req.Header.Set(HeaderEvent, envelope.EventType)
	req.Header.Set(HeaderDelivery, rec.ID.String())
	for k, v := range sub.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxStoredBody))
	return Outcome{StatusCode: resp.StatusCode, Body: string(respBody)}
}
