package delivery

import (
	"context"
	"errors"
	"time"

	deliveryerrors "github.com/kishoreUdatha/HRM-sub003/internal/delivery/errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=delivery_service.go -destination=mock/delivery_service_mock.go -package=mock
type Service interface {
	ListBySubscription(ctx context.Context, tenantID, subscriptionID string, page, pageSize int) ([]DeliveryResponse, int64, error)
	ForceRetry(ctx context.Context, tenantID, deliveryID string) (DeliveryResponse, error)
}

type service struct {
	ledger Repository
	logger *zap.Logger
}

func NewService(ledger Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("delivery.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("delivery.service")
	}
	return &service{ledger: ledger, logger: l}
}

func (s *service) ListBySubscription(ctx context.Context, tenantID, subscriptionID string, page, pageSize int) ([]DeliveryResponse, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	deliveries, total, err := s.ledger.FindBySubscription(ctx, tenantID, subscriptionID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	resp := make([]DeliveryResponse, len(deliveries))
	for i, d := range deliveries {
		resp[i] = mapToResponse(d)
	}
	return resp, total, nil
}

// ForceRetry re-opens a terminally failed record so the next sweep attempts
// it once more. The attempt counter keeps increasing, so a forced retry that
// fails again lands straight back in failed.
func (s *service) ForceRetry(ctx context.Context, tenantID, deliveryID string) (DeliveryResponse, error) {
	rec, err := s.ledger.FindByIDAndTenant(ctx, tenantID, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DeliveryResponse{}, deliveryerrors.ErrDeliveryNotFound
		}
		return DeliveryResponse{}, err
	}

	if rec.Status != StatusFailed {
		return DeliveryResponse{}, deliveryerrors.ErrDeliveryNotRetryable
	}

	now := time.Now().UTC()
	rec.Status = StatusRetrying
	rec.NextRetryAt = &now

	if err := s.ledger.Update(ctx, rec); err != nil {
		s.logger.Error("force retry persist failed",
			zap.String("delivery_id", deliveryID),
			zap.Error(err),
		)
		return DeliveryResponse{}, err
	}

	s.logger.Info("delivery force retry scheduled",
		zap.String("delivery_id", deliveryID),
		zap.String("tenant_id", tenantID),
	)

	return mapToResponse(*rec), nil
}
