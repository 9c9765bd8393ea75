package delivery

import (
	"encoding/json"
	"time"
)

type DeliveryResponse struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	Event          json.RawMessage `json:"event"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	LastAttemptAt  *string         `json:"last_attempt_at,omitempty"`
	NextRetryAt    *string         `json:"next_retry_at,omitempty"`
	LastStatusCode int             `json:"last_status_code,omitempty"`
	LastResponse   string          `json:"last_response,omitempty"`
	LastError      string          `json:"last_error,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

func mapToResponse(d Delivery) DeliveryResponse {
	resp := DeliveryResponse{
		ID:             d.ID.String(),
		SubscriptionID: d.SubscriptionID.String(),
		EventID:        d.EventID,
		EventType:      d.EventType,
		Event:          json.RawMessage(d.Event),
		Status:         d.Status,
		Attempts:       d.Attempts,
		LastStatusCode: d.LastStatusCode,
		LastResponse:   d.LastResponseBody,
		LastError:      d.LastError,
		CreatedAt:      d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if d.LastAttemptAt != nil {
		v := d.LastAttemptAt.UTC().Format(time.RFC3339)
		resp.LastAttemptAt = &v
	}
	if d.NextRetryAt != nil {
		v := d.NextRetryAt.UTC().Format(time.RFC3339)
		resp.NextRetryAt = &v
	}
	return resp
}
