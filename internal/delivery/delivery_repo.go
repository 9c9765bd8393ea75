package delivery

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -source=delivery_repo.go -destination=mock/delivery_repo_mock.go -package=mock
type Repository interface {
	// FindOrCreate inserts the pending record unless a row for the same
	// (subscription, event) pair already exists, in which case that row is
	// returned. The bool reports whether a new row was created.
	FindOrCreate(ctx context.Context, d *Delivery) (*Delivery, bool, error)
	Update(ctx context.Context, d *Delivery) error
	FindByIDAndTenant(ctx context.Context, tenantID, id string) (*Delivery, error)
	FindBySubscription(ctx context.Context, tenantID, subscriptionID string, limit, offset int) ([]Delivery, int64, error)
	// ListDueRetries returns retrying records whose next_retry_at has passed
	// and whose subscription is still active.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]Delivery, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindOrCreate(ctx context.Context, d *Delivery) (*Delivery, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(d)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return d, true, nil
	}

	var existing Delivery
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", d.SubscriptionID).
		Where("event_id = ?", d.EventID).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *repository) Update(ctx context.Context, d *Delivery) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *repository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*Delivery, error) {
	var d Delivery
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&d, "id = ?", id).Error
	return &d, err
}

func (r *repository) FindBySubscription(ctx context.Context, tenantID, subscriptionID string, limit, offset int) ([]Delivery, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).
		Model(&Delivery{}).
		Where("tenant_id = ?", tenantID).
		Where("subscription_id = ?", subscriptionID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var deliveries []Delivery
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&deliveries).Error
	return deliveries, total, err
}

func (r *repository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]Delivery, error) {
	var deliveries []Delivery
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusRetrying).
		Where("next_retry_at <= ?", now).
		Where("subscription_id IN (?)",
			r.db.Table("webhook_subscriptions").
				Select("id").
				Where("is_active = ?", true).
				Where("deleted_at IS NULL"),
		).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}
