package broker

import (
	"context"
	"encoding/json"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is the producer contract. Domain services publish envelopes here
// and never talk to the dispatcher or the gateway directly.
type Publisher interface {
	Publish(ctx context.Context, envelope events.Envelope) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Envelope) error { return nil }

func NewNoopPublisher() Publisher { return noopPublisher{} }

type kafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(writer *kafkago.Writer) Publisher {
	return &kafkaPublisher{writer: writer}
}

// Publish writes the envelope to its domain topic, keyed by tenant so all
// events of one tenant stay ordered within a partition.
func (p *kafkaPublisher) Publish(ctx context.Context, envelope events.Envelope) error {
	if err := envelope.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: events.TopicForEventType(envelope.EventType),
		Key:   []byte(envelope.TenantID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(envelope.EventType)},
			{Key: "event_id", Value: []byte(envelope.EventID)},
		},
	})
}
