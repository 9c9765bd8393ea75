package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer group per distribution role. Each group receives every message
// once; instances inside a group share the partitions.
const (
	GroupWebhookDispatcher = "hrm-webhook-dispatcher"
	GroupRealtimeRouter    = "hrm-realtime-router"
)

const (
	handlerRetryInitialDelay = time.Second
	handlerRetryMaxDelay     = 30 * time.Second
)

// EnvelopeHandler processes one envelope. Returning an error leaves the
// message uncommitted and the consumer re-presents it until the handler
// succeeds; handlers must therefore tolerate duplicate delivery of the same
// envelope.
type EnvelopeHandler func(ctx context.Context, envelope events.Envelope) error

// NewGroupReader builds one reader per domain topic for the given consumer
// group. Distinct groups (dispatcher vs realtime router) each get every
// message: fan-out between roles, competing consumers within a role.
func NewGroupReader(broker, groupID, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})
}

// messageSource is the slice of kafka.Reader the consume loop uses.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ConsumeEnvelopes runs the fetch/decode/handle/commit loop against one
// reader until the context is cancelled. A message is committed only after
// the handler succeeds; undecodable messages are committed and dropped
// because redelivering them can never help.
func ConsumeEnvelopes(
	ctx context.Context,
	reader *kafkago.Reader,
	handler EnvelopeHandler,
	logger *zap.Logger,
) {
	log := logger.Named("broker.consumer").With(zap.String("topic", reader.Config().Topic))
	consume(ctx, reader, handler, handlerRetryInitialDelay, log)
}

func consume(
	ctx context.Context,
	source messageSource,
	handler EnvelopeHandler,
	retryDelay time.Duration,
	log *zap.Logger,
) {
	log.Info("envelope consumer started")

	for {
		msg, err := source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("envelope consumer stopped")
				return
			}
			log.Error("fetch envelope message failed", zap.Error(err))
			continue
		}

		var envelope events.Envelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			log.Error("decode envelope failed", zap.Error(err))
			_ = source.CommitMessages(ctx, msg)
			continue
		}
		if err := envelope.Validate(); err != nil {
			log.Error("invalid envelope dropped", zap.Error(err))
			_ = source.CommitMessages(ctx, msg)
			continue
		}

		// Group commits are positional: committing a later message would
		// advance the offset past a failed one and it would never come back.
		// So a failed handler parks here and retries the same envelope until
		// it succeeds or the consumer is stopped.
		delay := retryDelay
		for {
			err := handler(ctx, envelope)
			if err == nil {
				break
			}
			log.Error("handle envelope failed",
				zap.String("event_id", envelope.EventID),
				zap.String("event_type", envelope.EventType),
				zap.Duration("retry_in", delay),
				zap.Error(err),
			)

			select {
			case <-ctx.Done():
				log.Info("envelope consumer stopped")
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > handlerRetryMaxDelay {
				delay = handlerRetryMaxDelay
			}
		}

		if err := source.CommitMessages(ctx, msg); err != nil {
			log.Error("commit envelope message failed", zap.Error(err))
			continue
		}
	}
}
