package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Envelope is the unit every producer publishes and every consumer receives.
// It is immutable once published; the distribution layer never inspects or
// mutates Payload, only the routing fields.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	TenantID     string          `json:"tenant_id"`
	TargetUserID string          `json:"target_user_id,omitempty"`
	RoomID       string          `json:"room_id,omitempty"`
	Payload      json.RawMessage `json:"payload"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewEnvelope mints the stable event id. The id is minted exactly once at the
// producer so broker redeliveries of the same logical event carry the same id
// and downstream dedupe works.
func NewEnvelope(eventType, tenantID string, payload any) (Envelope, error) {
	if eventType == "" {
		return Envelope{}, errors.New("event_type is required")
	}
	if tenantID == "" {
		return Envelope{}, errors.New("tenant_id is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}

	return Envelope{
		EventID:   uuid.New().String(),
		EventType: eventType,
		TenantID:  tenantID,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (e Envelope) WithTargetUser(userID string) Envelope {
	e.TargetUserID = userID
	return e
}

func (e Envelope) WithRoom(roomID string) Envelope {
	e.RoomID = roomID
	return e
}

func (e Envelope) Validate() error {
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.EventType == "" {
		return errors.New("event_type is required")
	}
	if e.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	return nil
}
