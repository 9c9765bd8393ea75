package events

import "strings"

// One durable topic per producer domain. The leading segment of the
// dot-namespaced event type selects the topic.
const (
	TopicNotifications = "hr.notifications.v1"
	TopicAttendance    = "hr.attendance.v1"
	TopicLeave         = "hr.leave.v1"
	TopicChat          = "hr.chat.v1"
	TopicDashboard     = "hr.dashboard.v1"
)

var domainTopics = map[string]string{
	"notification": TopicNotifications,
	"attendance":   TopicAttendance,
	"leave":        TopicLeave,
	"chat":         TopicChat,
	"dashboard":    TopicDashboard,
}

// The closed event vocabulary. Producers outside this repo publish only
// these types; the admin surface exposes the list so tenants know what a
// subscription can match.
var EventTypes = []string{
	"employee.created",
	"employee.updated",
	"employee.terminated",
	"attendance.checked_in",
	"attendance.checked_out",
	"attendance.updated",
	"leave.requested",
	"leave.approved",
	"leave.rejected",
	"leave.cancelled",
	"payroll.payslip_generated",
	"benefits.enrolled",
	"grievance.filed",
	"grievance.resolved",
	"notification.created",
	"chat.message",
	"dashboard.refresh",
}

// TopicForEventType maps an event type to its domain topic. Types from
// domains without a dedicated topic (employee, payroll, benefits, grievance)
// travel on the notifications topic.
func TopicForEventType(eventType string) string {
	domain, _, _ := strings.Cut(eventType, ".")
	if topic, ok := domainTopics[domain]; ok {
		return topic
	}
	return TopicNotifications
}

func AllTopics() []string {
	return []string{
		TopicNotifications,
		TopicAttendance,
		TopicLeave,
		TopicChat,
		TopicDashboard,
	}
}

const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// Role allowlists per event domain for realtime routing. An event without an
// entry here and without a target user or room is a tenant-wide broadcast.
var roleRouting = map[string][]string{
	"attendance": {RoleManager, RoleHR, RoleAdmin},
	"leave":      {RoleManager, RoleHR, RoleAdmin},
	"payroll":    {RoleHR, RoleAdmin},
	"grievance":  {RoleHR, RoleAdmin},
}

// RolesForEventType returns the allowlist for role-scoped realtime delivery,
// or nil when the event broadcasts tenant-wide.
func RolesForEventType(eventType string) []string {
	domain, _, _ := strings.Cut(eventType, ".")
	return roleRouting[domain]
}

func IsKnownEventType(eventType string) bool {
	for _, t := range EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}
