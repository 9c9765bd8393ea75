package delivery

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusRetrying = "retrying"
	StatusFailed   = "failed"
)

// Delivery is one row of the ledger: one webhook subscription crossed with
// one logical event. The unique index on (subscription_id, event_id) is what
// makes record creation idempotent under broker redelivery, and it is why
// the same delivery id reaches the receiving endpoint no matter how often
// the triggering message is redelivered.
type Delivery struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_webhook_deliveries_sub_event;index:idx_webhook_deliveries_subscription"`
	EventID        string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_webhook_deliveries_sub_event"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null"`

	EventType string `gorm:"type:varchar(100);not null"`
	Event     []byte `gorm:"type:jsonb;not null"`

	Status   string `gorm:"type:varchar(20);not null;default:'pending';index:idx_webhook_deliveries_status_retry"`
	Attempts int    `gorm:"type:int;not null;default:0"`

	LastAttemptAt *time.Time
	NextRetryAt   *time.Time `gorm:"index:idx_webhook_deliveries_status_retry"`

	LastStatusCode   int    `gorm:"type:int"`
	LastResponseBody string `gorm:"type:varchar(512)"`
	LastError        string `gorm:"type:varchar(512)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Delivery) TableName() string {
	return "webhook_deliveries"
}

// IsTerminal reports whether the record may never change again.
func (d Delivery) IsTerminal() bool {
	return d.Status == StatusSuccess || d.Status == StatusFailed
}
