package realtime

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"
)

// Server push types. Everything a gateway writes to a websocket is a
// ServerMessage carrying one of these.
const (
	PushNotification     = "notification"
	PushChatMessage      = "chat:message"
	PushChatTyping       = "chat:typing"
	PushAttendanceUpdate = "attendance:update"
	PushLeaveUpdate      = "leave:update"
	PushDashboardRefresh = "dashboard:refresh"
	PushUserOnline       = "user:online"
	PushUserOffline      = "user:offline"
)

// Client actions accepted on the read side of a connection.
const (
	ActionJoinRoom           = "join-room"
	ActionLeaveRoom          = "leave-room"
	ActionSendChat           = "send-chat"
	ActionTyping             = "typing"
	ActionHeartbeat          = "heartbeat"
	ActionSubscribeDashboard = "subscribe-dashboard"
)

// Ephemeral event types minted by the gateway itself. They exist on the
// fan-out channel and on sockets only, never on the broker and never in the
// webhook ledger.
const (
	EventChatTyping  = "chat.typing"
	EventUserOnline  = "user.online"
	EventUserOffline = "user.offline"
)

type ClientMessage struct {
	Action string          `json:"action"`
	Room   string          `json:"room,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type ServerMessage struct {
	Type      string          `json:"type"`
	Event     string          `json:"event,omitempty"`
	Room      string          `json:"room,omitempty"`
	From      string          `json:"from,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

var pushByDomain = map[string]string{
	"notification": PushNotification,
	"attendance":   PushAttendanceUpdate,
	"leave":        PushLeaveUpdate,
	"dashboard":    PushDashboardRefresh,
}

// PushTypeFor maps a domain event type to the socket push type. Domains
// without a dedicated push render as plain notifications.
func PushTypeFor(eventType string) string {
	switch eventType {
	case "chat.message":
		return PushChatMessage
	case EventChatTyping:
		return PushChatTyping
	case EventUserOnline:
		return PushUserOnline
	case EventUserOffline:
		return PushUserOffline
	}
	domain, _, _ := strings.Cut(eventType, ".")
	if push, ok := pushByDomain[domain]; ok {
		return push
	}
	return PushNotification
}

func serverMessageFor(envelope events.Envelope) ServerMessage {
	return ServerMessage{
		Type:      PushTypeFor(envelope.EventType),
		Event:     envelope.EventType,
		Room:      envelope.RoomID,
		Payload:   envelope.Payload,
		Timestamp: envelope.Timestamp,
	}
}
