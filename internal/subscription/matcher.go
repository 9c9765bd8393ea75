package subscription

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"
)

// MatchesEvent reports whether the subscription wants this envelope: the
// subscription must be active, one of its event patterns must match the
// event type and every filter must pass against the payload.
func MatchesEvent(s Subscription, envelope events.Envelope) bool {
	if !s.IsActive {
		return false
	}
	if !matchesAnyPattern(s.Events, envelope.EventType) {
		return false
	}
	return evaluateFilters(s.Filters, envelope.Payload)
}

// matchesAnyPattern matches dot-namespaced event types against patterns:
// exact ("leave.approved"), domain wildcard ("leave.*") or catch-all ("*").
// Wildcards match whole segments only, so "leave.*" never matches
// "leavex.approved".
func matchesAnyPattern(patterns []string, eventType string) bool {
	for _, pattern := range patterns {
		if matchesPattern(pattern, eventType) {
			return true
		}
	}
	return false
}

func matchesPattern(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == eventType {
		return true
	}
	if prefix, found := strings.CutSuffix(pattern, ".*"); found {
		domain, _, ok := strings.Cut(eventType, ".")
		return ok && domain == prefix
	}
	return false
}

// evaluateFilters applies every predicate to the payload. A filter whose
// field is absent from the payload fails; an unknown operator fails closed.
func evaluateFilters(filters []Filter, payload json.RawMessage) bool {
	if len(filters) == 0 {
		return true
	}

	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return false
	}

	for _, f := range filters {
		value, ok := doc[f.Field]
		if !ok {
			return false
		}
		actual := stringify(value)

		switch f.Operator {
		case "eq":
			if actual != f.Value {
				return false
			}
		case "neq":
			if actual == f.Value {
				return false
			}
		case "contains":
			if !strings.Contains(actual, f.Value) {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// json numbers decode to float64; print integers without a fraction
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}
