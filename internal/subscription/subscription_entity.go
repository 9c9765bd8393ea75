package subscription

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Filter is one predicate evaluated against the event payload before a
// webhook fires. All filters of a subscription must pass.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"` // eq, neq, contains
	Value    string `json:"value"`
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *StringList) Scan(value any) error {
	return scanJSON(value, l)
}

type FilterList []Filter

func (l FilterList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *FilterList) Scan(value any) error {
	return scanJSON(value, l)
}

type HeaderMap map[string]string

func (m HeaderMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *HeaderMap) Scan(value any) error {
	return scanJSON(value, m)
}

func scanJSON(value, dest any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("unsupported jsonb source type")
	}
}

type Subscription struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_webhook_subscriptions_tenant_active"`

	URL    string     `gorm:"type:text;not null"`
	Secret string     `gorm:"type:varchar(128);not null"`
	Events StringList `gorm:"type:jsonb;not null;default:'[]'"`

	IsActive bool       `gorm:"not null;default:true;index:idx_webhook_subscriptions_tenant_active"`
	Filters  FilterList `gorm:"type:jsonb;not null;default:'[]'"`
	Headers  HeaderMap  `gorm:"type:jsonb;not null;default:'{}'"`

	MaxRetries          int     `gorm:"type:int;not null;default:3"`
	InitialDelaySeconds int     `gorm:"type:int;not null;default:60"`
	BackoffMultiplier   float64 `gorm:"type:numeric;not null;default:2"`

	SuccessCount int64 `gorm:"type:bigint;not null;default:0"`
	FailureCount int64 `gorm:"type:bigint;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_webhook_subscriptions_deleted_at"`
}

func (Subscription) TableName() string {
	return "webhook_subscriptions"
}

// RetryPolicy is the per-subscription backoff configuration consumed by the
// delivery pipeline.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

func (s Subscription) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        s.MaxRetries,
		InitialDelay:      time.Duration(s.InitialDelaySeconds) * time.Second,
		BackoffMultiplier: s.BackoffMultiplier,
	}
}
