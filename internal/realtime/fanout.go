package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const fanoutChannel = "hrm:events:fanout"

type fanoutMessage struct {
	Origin   string          `json:"origin"`
	Envelope events.Envelope `json:"envelope"`
}

// Fanout relays envelopes between gateway instances over redis pub/sub so a
// recipient connected to another instance still gets the push. Delivery here
// is best effort: an instance that is down misses the message, and its
// clients reconnect elsewhere anyway.
type Fanout struct {
	rdb        *redis.Client
	instanceID string
	route      func(events.Envelope)
	logger     *zap.Logger
}

func NewFanout(rdb *redis.Client, instanceID string, route func(events.Envelope), logger ...*zap.Logger) *Fanout {
	l := zap.L().Named("realtime.fanout")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.fanout")
	}
	return &Fanout{
		rdb:        rdb,
		instanceID: instanceID,
		route:      route,
		logger:     l,
	}
}

// Publish announces a locally routed envelope to every other instance.
func (f *Fanout) Publish(ctx context.Context, envelope events.Envelope) error {
	raw, err := json.Marshal(fanoutMessage{Origin: f.instanceID, Envelope: envelope})
	if err != nil {
		return fmt.Errorf("encode fanout message: %w", err)
	}
	if err := f.rdb.Publish(ctx, fanoutChannel, raw).Err(); err != nil {
		return fmt.Errorf("publish fanout message: %w", err)
	}
	return nil
}

// Run subscribes to the fan-out channel until the context ends.
func (f *Fanout) Run(ctx context.Context) error {
	pubsub := f.rdb.Subscribe(ctx, fanoutChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", fanoutChannel, err)
	}

	f.logger.Info("fanout subscriber started",
		zap.String("channel", fanoutChannel),
		zap.String("instance_id", f.instanceID),
	)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("fanout subscriber stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.handleMessage([]byte(msg.Payload))
		}
	}
}

// handleMessage re-routes envelopes from other instances. Messages this
// instance published come back on the channel too; the origin filter keeps
// them from being delivered locally twice.
func (f *Fanout) handleMessage(payload []byte) {
	var msg fanoutMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		f.logger.Warn("dropping undecodable fanout message", zap.Error(err))
		return
	}
	if msg.Origin == f.instanceID {
		return
	}
	if err := msg.Envelope.Validate(); err != nil {
		f.logger.Warn("dropping invalid fanout envelope", zap.Error(err))
		return
	}
	f.route(msg.Envelope)
}
