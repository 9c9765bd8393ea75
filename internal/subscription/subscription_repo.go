package subscription

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=subscription_repo.go -destination=mock/subscription_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, s *Subscription) error
	FindAllByTenant(ctx context.Context, tenantID string) ([]Subscription, error)
	FindByIDAndTenant(ctx context.Context, tenantID, id string) (*Subscription, error)
	FindActiveByTenant(ctx context.Context, tenantID string) ([]Subscription, error)
	FindByID(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, tenantID, id string) error
	IncrementSuccess(ctx context.Context, id string) error
	IncrementFailure(ctx context.Context, id string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Create(ctx context.Context, s *Subscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) FindAllByTenant(ctx context.Context, tenantID string) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *repository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*Subscription, error) {
	var s Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) FindActiveByTenant(ctx context.Context, tenantID string) ([]Subscription, error) {
	var subs []Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("is_active = ?", true).
		Find(&subs).Error
	return subs, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Subscription, error) {
	var s Subscription
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *repository) Update(ctx context.Context, s *Subscription) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *repository) Delete(ctx context.Context, tenantID, id string) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Delete(&Subscription{}, "id = ?", id).Error
}

func (r *repository) IncrementSuccess(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("id = ?", id).
		UpdateColumn("success_count", gorm.Expr("success_count + 1")).Error
}

func (r *repository) IncrementFailure(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("id = ?", id).
		UpdateColumn("failure_count", gorm.Expr("failure_count + 1")).Error
}
