package subscription

import "encoding/json"

type FilterRequest struct {
	Field    string `json:"field" binding:"required"`
	Operator string `json:"operator" binding:"required,oneof=eq neq contains"`
	Value    string `json:"value" binding:"required"`
}

type RetryPolicyRequest struct {
	MaxRetries          int     `json:"max_retries" binding:"omitempty,min=1,max=10"`
	InitialDelaySeconds int     `json:"initial_delay_seconds" binding:"omitempty,min=1,max=3600"`
	BackoffMultiplier   float64 `json:"backoff_multiplier" binding:"omitempty,min=1,max=10"`
}

type CreateSubscriptionRequest struct {
	URL         string              `json:"url" binding:"required,url"`
	Secret      string              `json:"secret"`
	Events      []string            `json:"events" binding:"required,min=1"`
	Filters     []FilterRequest     `json:"filters"`
	Headers     map[string]string   `json:"headers"`
	RetryPolicy *RetryPolicyRequest `json:"retry_policy"`
}

type UpdateSubscriptionRequest struct {
	URL         string              `json:"url" binding:"required,url"`
	Events      []string            `json:"events" binding:"required,min=1"`
	IsActive    *bool               `json:"is_active" binding:"required"`
	Filters     []FilterRequest     `json:"filters"`
	Headers     map[string]string   `json:"headers"`
	RetryPolicy *RetryPolicyRequest `json:"retry_policy"`
}

type TestEventRequest struct {
	EventType string          `json:"event_type" binding:"required"`
	Payload   json.RawMessage `json:"payload"`
}

type SubscriptionResponse struct {
	ID                  string            `json:"id"`
	TenantID            string            `json:"tenant_id"`
	URL                 string            `json:"url"`
	MaskedSecret        string            `json:"masked_secret"`
	Events              []string          `json:"events"`
	IsActive            bool              `json:"is_active"`
	Filters             []Filter          `json:"filters,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"`
	MaxRetries          int               `json:"max_retries"`
	InitialDelaySeconds int               `json:"initial_delay_seconds"`
	BackoffMultiplier   float64           `json:"backoff_multiplier"`
	SuccessCount        int64             `json:"success_count"`
	FailureCount        int64             `json:"failure_count"`
	CreatedAt           string            `json:"created_at"`
}

// CreatedSubscriptionResponse is returned exactly once, from create, and is
// the only place the plain secret ever leaves the service.
type CreatedSubscriptionResponse struct {
	SubscriptionResponse
	Secret string `json:"secret"`
}
