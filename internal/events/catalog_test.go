package events_test

import (
	"testing"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"

	"github.com/stretchr/testify/assert"
)

func TestTopicForEventType(t *testing.T) {
	t.Run("domain with dedicated topic", func(t *testing.T) {
		assert.Equal(t, events.TopicLeave, events.TopicForEventType("leave.approved"))
		assert.Equal(t, events.TopicAttendance, events.TopicForEventType("attendance.checked_in"))
		assert.Equal(t, events.TopicChat, events.TopicForEventType("chat.message"))
		assert.Equal(t, events.TopicDashboard, events.TopicForEventType("dashboard.refresh"))
	})

	t.Run("domain without dedicated topic falls back to notifications", func(t *testing.T) {
		assert.Equal(t, events.TopicNotifications, events.TopicForEventType("employee.created"))
		assert.Equal(t, events.TopicNotifications, events.TopicForEventType("payroll.payslip_generated"))
		assert.Equal(t, events.TopicNotifications, events.TopicForEventType("grievance.filed"))
	})
}

func TestRolesForEventType(t *testing.T) {
	t.Run("attendance routes to managers hr admin", func(t *testing.T) {
		roles := events.RolesForEventType("attendance.updated")
		assert.ElementsMatch(t, []string{events.RoleManager, events.RoleHR, events.RoleAdmin}, roles)
	})

	t.Run("payroll routes to hr admin only", func(t *testing.T) {
		roles := events.RolesForEventType("payroll.payslip_generated")
		assert.ElementsMatch(t, []string{events.RoleHR, events.RoleAdmin}, roles)
	})

	t.Run("notification has no role allowlist", func(t *testing.T) {
		assert.Nil(t, events.RolesForEventType("notification.created"))
	})
}

func TestNewEnvelope(t *testing.T) {
	t.Run("mints id and timestamp", func(t *testing.T) {
		env, err := events.NewEnvelope("leave.approved", "tenant-1", map[string]string{"leave_id": "L1"})
		assert.NoError(t, err)
		assert.NotEmpty(t, env.EventID)
		assert.False(t, env.Timestamp.IsZero())
		assert.JSONEq(t, `{"leave_id":"L1"}`, string(env.Payload))
		assert.NoError(t, env.Validate())
	})

	t.Run("two envelopes never share an id", func(t *testing.T) {
		a, _ := events.NewEnvelope("leave.approved", "tenant-1", nil)
		b, _ := events.NewEnvelope("leave.approved", "tenant-1", nil)
		assert.NotEqual(t, a.EventID, b.EventID)
	})

	t.Run("rejects missing tenant", func(t *testing.T) {
		_, err := events.NewEnvelope("leave.approved", "", nil)
		assert.Error(t, err)
	})

	t.Run("routing field builders do not mutate the original", func(t *testing.T) {
		base, _ := events.NewEnvelope("notification.created", "tenant-1", nil)
		targeted := base.WithTargetUser("user-9")
		assert.Empty(t, base.TargetUserID)
		assert.Equal(t, "user-9", targeted.TargetUserID)
	})
}
