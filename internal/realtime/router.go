package realtime

import (
	"encoding/json"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	"go.uber.org/zap"
)

// Router picks the local connections an envelope reaches. It reads the hub
// but never mutates routing state, so the same envelope may be routed again
// on another instance without coordination.
type Router struct {
	hub    *Hub
	logger *zap.Logger
}

func NewRouter(hub *Hub, logger ...*zap.Logger) *Router {
	l := zap.L().Named("realtime.router")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("realtime.router")
	}
	return &Router{hub: hub, logger: l}
}

// Route delivers an envelope to this instance's matching connections and
// returns how many received it. Zero matches is a normal outcome: the
// recipients may be offline or connected elsewhere.
func (r *Router) Route(envelope events.Envelope) int {
	msg := serverMessageFor(envelope)
	raw, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("encode server message failed",
			zap.String("event_type", envelope.EventType),
			zap.Error(err),
		)
		return 0
	}

	delivered := 0
	for _, c := range r.targets(envelope) {
		if msg.Type == PushDashboardRefresh && !c.WantsDashboard() {
			continue
		}
		if c.Enqueue(raw) {
			delivered++
			continue
		}
		r.logger.Warn("send buffer full, dropping connection",
			zap.String("connection_id", c.ID.String()),
			zap.String("user_id", c.UserID),
		)
		c.close()
	}
	return delivered
}

// Precedence: target user, then room, then the event's role allowlist, then
// the whole tenant.
func (r *Router) targets(envelope events.Envelope) []*Client {
	if envelope.TargetUserID != "" {
		return r.hub.ByUser(envelope.TenantID, envelope.TargetUserID)
	}
	if envelope.RoomID != "" {
		return r.hub.ByRoom(envelope.TenantID, envelope.RoomID)
	}
	if roles := events.RolesForEventType(envelope.EventType); len(roles) > 0 {
		return r.hub.ByRole(envelope.TenantID, roles)
	}
	return r.hub.ByTenant(envelope.TenantID)
}
