package realtime

import (
	"context"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	"go.uber.org/zap"
)

// Gateway owns one instance's realtime state: the local hub, the router, the
// presence index and the cross-instance fan-out.
type Gateway struct {
	hub      *Hub
	router   *Router
	presence *Presence
	fanout   *Fanout
	logger   *zap.Logger
}

func NewGateway(hub *Hub, router *Router, presence *Presence, fanout *Fanout, logger ...*zap.Logger) *Gateway {
	l := zap.L().Named("realtime.gateway")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.gateway")
	}
	return &Gateway{
		hub:      hub,
		router:   router,
		presence: presence,
		fanout:   fanout,
		logger:   l,
	}
}

// OnEvent is the broker consumer handler for this instance's partition share.
// It routes locally, then fans out so instances holding the other partitions'
// recipients deliver too. Socket push is best effort, so the message is
// always committed.
func (g *Gateway) OnEvent(ctx context.Context, envelope events.Envelope) error {
	g.router.Route(envelope)
	if err := g.fanout.Publish(ctx, envelope); err != nil {
		g.logger.Warn("fanout publish failed",
			zap.String("event_id", envelope.EventID),
			zap.Error(err),
		)
	}
	return nil
}

// Broadcast routes an envelope locally and fans it out, bypassing the broker.
// Used for gateway-minted events and the internal ops endpoints.
func (g *Gateway) Broadcast(ctx context.Context, envelope events.Envelope) {
	g.router.Route(envelope)
	if err := g.fanout.Publish(ctx, envelope); err != nil {
		g.logger.Warn("fanout publish failed",
			zap.String("event_id", envelope.EventID),
			zap.Error(err),
		)
	}
}

func (g *Gateway) WhoIsOnline(ctx context.Context, tenantID string) ([]string, error) {
	return g.presence.WhoIsOnline(ctx, tenantID)
}

func (g *Gateway) register(ctx context.Context, c *Client) {
	g.hub.Register(c)

	first, err := g.presence.Track(ctx, c.TenantID, c.UserID, c.ID.String())
	if err != nil {
		g.logger.Error("presence track failed",
			zap.String("user_id", c.UserID),
			zap.Error(err),
		)
	}

	g.logger.Info("websocket connected",
		zap.String("connection_id", c.ID.String()),
		zap.String("tenant_id", c.TenantID),
		zap.String("user_id", c.UserID),
	)

	if first {
		g.announcePresence(ctx, c, EventUserOnline)
	}
}

// disconnect is idempotent: the read pump, the write pump and router drops
// can all race into it, only the first one runs the side effects.
func (g *Gateway) disconnect(c *Client) {
	if !g.hub.Unregister(c) {
		return
	}
	c.close()

	ctx := context.Background()
	last, err := g.presence.Untrack(ctx, c.TenantID, c.UserID, c.ID.String())
	if err != nil {
		g.logger.Error("presence untrack failed",
			zap.String("user_id", c.UserID),
			zap.Error(err),
		)
	}

	g.logger.Info("websocket disconnected",
		zap.String("connection_id", c.ID.String()),
		zap.String("user_id", c.UserID),
	)

	if last {
		g.announcePresence(ctx, c, EventUserOffline)
	}
}

func (g *Gateway) announcePresence(ctx context.Context, c *Client, eventType string) {
	env, err := events.NewEnvelope(eventType, c.TenantID, map[string]string{
		"user_id": c.UserID,
	})
	if err != nil {
		g.logger.Error("build presence envelope failed", zap.Error(err))
		return
	}
	g.Broadcast(ctx, env)
}

func (g *Gateway) handleClientMessage(ctx context.Context, c *Client, msg ClientMessage) {
	switch msg.Action {
	case ActionJoinRoom:
		if msg.Room == "" {
			return
		}
		c.joinRoom(msg.Room)

	case ActionLeaveRoom:
		c.leaveRoom(msg.Room)

	case ActionSubscribeDashboard:
		c.subscribeDashboard()

	case ActionHeartbeat:
		if err := g.presence.Heartbeat(ctx, c.TenantID, c.UserID, c.ID.String()); err != nil {
			g.logger.Warn("heartbeat refresh failed",
				zap.String("user_id", c.UserID),
				zap.Error(err),
			)
		}

	case ActionSendChat:
		if msg.Room == "" || !c.InRoom(msg.Room) {
			return
		}
		env, err := events.NewEnvelope("chat.message", c.TenantID, map[string]any{
			"from":    c.UserID,
			"message": msg.Data,
		})
		if err != nil {
			g.logger.Warn("build chat envelope failed", zap.Error(err))
			return
		}
		g.Broadcast(ctx, env.WithRoom(msg.Room))

	case ActionTyping:
		if msg.Room == "" || !c.InRoom(msg.Room) {
			return
		}
		// Typing indicators are ephemeral: fan-out and local push only,
		// never the broker, never the ledger.
		env, err := events.NewEnvelope(EventChatTyping, c.TenantID, map[string]string{
			"from": c.UserID,
		})
		if err != nil {
			return
		}
		g.Broadcast(ctx, env.WithRoom(msg.Room))

	default:
		g.logger.Debug("unknown client action",
			zap.String("action", msg.Action),
			zap.String("connection_id", c.ID.String()),
		)
	}
}
