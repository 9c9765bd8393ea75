package realtime

import (
	"encoding/json"
	"testing"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func mustEnvelope(t *testing.T, eventType, tenantID string) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelope(eventType, tenantID, map[string]string{"k": "v"})
	assert.NoError(t, err)
	return env
}

func drainOne(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg ServerMessage
		assert.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	default:
		t.Fatal("expected a queued message")
		return ServerMessage{}
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected message queued: %s", raw)
	default:
	}
}

func TestRouterRoute(t *testing.T) {
	t.Run("target user beats everything else", func(t *testing.T) {
		hub := NewHub()
		target := newTestClient("t1", "u1", events.RoleEmployee)
		bystander := newTestClient("t1", "u2", events.RoleAdmin)
		hub.Register(target)
		hub.Register(bystander)
		router := NewRouter(hub, zap.NewNop())

		env := mustEnvelope(t, "notification.created", "t1").WithTargetUser("u1")
		assert.Equal(t, 1, router.Route(env))

		msg := drainOne(t, target)
		assert.Equal(t, PushNotification, msg.Type)
		assert.Equal(t, "notification.created", msg.Event)
		assertEmpty(t, bystander)
	})

	t.Run("room routing reaches joined connections only", func(t *testing.T) {
		hub := NewHub()
		member := newTestClient("t1", "u1", events.RoleEmployee)
		member.joinRoom("general")
		outsider := newTestClient("t1", "u2", events.RoleEmployee)
		hub.Register(member)
		hub.Register(outsider)
		router := NewRouter(hub, zap.NewNop())

		env := mustEnvelope(t, "chat.message", "t1").WithRoom("general")
		assert.Equal(t, 1, router.Route(env))

		msg := drainOne(t, member)
		assert.Equal(t, PushChatMessage, msg.Type)
		assert.Equal(t, "general", msg.Room)
		assertEmpty(t, outsider)
	})

	t.Run("role allowlist scopes attendance events", func(t *testing.T) {
		hub := NewHub()
		manager := newTestClient("t1", "m1", events.RoleManager)
		hr := newTestClient("t1", "h1", events.RoleHR)
		employee := newTestClient("t1", "e1", events.RoleEmployee)
		hub.Register(manager)
		hub.Register(hr)
		hub.Register(employee)
		router := NewRouter(hub, zap.NewNop())

		assert.Equal(t, 2, router.Route(mustEnvelope(t, "attendance.checked_in", "t1")))

		assert.Equal(t, PushAttendanceUpdate, drainOne(t, manager).Type)
		assert.Equal(t, PushAttendanceUpdate, drainOne(t, hr).Type)
		assertEmpty(t, employee)
	})

	t.Run("events without an allowlist broadcast tenant wide", func(t *testing.T) {
		hub := NewHub()
		a := newTestClient("t1", "u1", events.RoleEmployee)
		b := newTestClient("t1", "u2", events.RoleManager)
		elsewhere := newTestClient("t2", "u3", events.RoleEmployee)
		hub.Register(a)
		hub.Register(b)
		hub.Register(elsewhere)
		router := NewRouter(hub, zap.NewNop())

		assert.Equal(t, 2, router.Route(mustEnvelope(t, "notification.created", "t1")))
		assertEmpty(t, elsewhere)
	})

	t.Run("dashboard refresh only reaches subscribed clients", func(t *testing.T) {
		hub := NewHub()
		subscribed := newTestClient("t1", "u1", events.RoleAdmin)
		subscribed.subscribeDashboard()
		plain := newTestClient("t1", "u2", events.RoleAdmin)
		hub.Register(subscribed)
		hub.Register(plain)
		router := NewRouter(hub, zap.NewNop())

		assert.Equal(t, 1, router.Route(mustEnvelope(t, "dashboard.refresh", "t1")))

		assert.Equal(t, PushDashboardRefresh, drainOne(t, subscribed).Type)
		assertEmpty(t, plain)
	})

	t.Run("full send buffer drops the message", func(t *testing.T) {
		hub := NewHub()
		slow := &Client{
			TenantID: "t1",
			UserID:   "u1",
			Role:     events.RoleEmployee,
			send:     make(chan []byte, 1),
			rooms:    make(map[string]struct{}),
		}
		slow.send <- []byte("backlog")
		hub.Register(slow)
		router := NewRouter(hub, zap.NewNop())

		assert.Zero(t, router.Route(mustEnvelope(t, "notification.created", "t1")))
	})

	t.Run("zero matches is a no-op", func(t *testing.T) {
		router := NewRouter(NewHub(), zap.NewNop())
		assert.Zero(t, router.Route(mustEnvelope(t, "notification.created", "t1")))
	})
}
