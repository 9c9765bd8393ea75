package subscription

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	subscriptionerrors "github.com/kishoreUdatha/HRM-sub003/internal/subscription/errors"

	"github.com/kishoreUdatha/HRM-sub003/internal/broker"
	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMaxRetries          = 3
	defaultInitialDelaySeconds = 60
	defaultBackoffMultiplier   = 2.0
)

//go:generate mockgen -source=subscription_service.go -destination=mock/subscription_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, tenantID string, req CreateSubscriptionRequest) (CreatedSubscriptionResponse, error)
	GetAll(ctx context.Context, tenantID string) ([]SubscriptionResponse, error)
	GetByID(ctx context.Context, tenantID, id string) (SubscriptionResponse, error)
	Update(ctx context.Context, tenantID, id string, req UpdateSubscriptionRequest) (SubscriptionResponse, error)
	Delete(ctx context.Context, tenantID, id string) error
	ListEventTypes(ctx context.Context) []string
	PublishTest(ctx context.Context, tenantID string, req TestEventRequest) (string, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	publisher broker.Publisher
	logger    *zap.Logger
}

func NewService(db *sql.DB, repo Repository, publisher broker.Publisher, logger ...*zap.Logger) Service {
	l := zap.L().Named("subscription.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("subscription.service")
	}
	return &service{db: db, repo: repo, publisher: publisher, logger: l}
}

func (s *service) Create(ctx context.Context, tenantID string, req CreateSubscriptionRequest) (CreatedSubscriptionResponse, error) {
	s.logger.Debug("create subscription requested",
		zap.String("tenant_id", tenantID),
		zap.String("url", req.URL),
		zap.Strings("events", req.Events),
	)

	tenantUUID, err := uuid.Parse(tenantID)
	if err != nil {
		return CreatedSubscriptionResponse{}, subscriptionerrors.ErrInvalidTenantID
	}
	if err := validateURL(req.URL); err != nil {
		return CreatedSubscriptionResponse{}, err
	}
	if err := validateEventPatterns(req.Events); err != nil {
		s.logger.Warn("create subscription validation failed", zap.Error(err))
		return CreatedSubscriptionResponse{}, err
	}

	secret := req.Secret
	if secret == "" {
		secret, err = generateSecret()
		if err != nil {
			s.logger.Error("generate webhook secret failed", zap.Error(err))
			return CreatedSubscriptionResponse{}, err
		}
	}

	sub := &Subscription{
		ID:                  uuid.New(),
		TenantID:            tenantUUID,
		URL:                 req.URL,
		Secret:              secret,
		Events:              StringList(req.Events),
		IsActive:            true,
		Filters:             mapFilters(req.Filters),
		Headers:             HeaderMap(req.Headers),
		MaxRetries:          defaultMaxRetries,
		InitialDelaySeconds: defaultInitialDelaySeconds,
		BackoffMultiplier:   defaultBackoffMultiplier,
	}
	applyRetryPolicy(sub, req.RetryPolicy)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("create subscription begin tx failed", zap.Error(err))
		return CreatedSubscriptionResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, sub); err != nil {
		s.logger.Error("create subscription persist failed", zap.Error(err))
		return CreatedSubscriptionResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("create subscription commit failed", zap.Error(err))
		return CreatedSubscriptionResponse{}, err
	}
	contextutil.GetLogger(ctx, s.logger).Info("create subscription success",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("tenant_id", tenantID),
		zap.String("actor_id", contextutil.GetUserID(ctx)),
	)

	return CreatedSubscriptionResponse{
		SubscriptionResponse: mapToResponse(*sub),
		Secret:               secret,
	}, nil
}

func (s *service) GetAll(ctx context.Context, tenantID string) ([]SubscriptionResponse, error) {
	subs, err := s.repo.FindAllByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resp := make([]SubscriptionResponse, len(subs))
	for i, sub := range subs {
		resp[i] = mapToResponse(sub)
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, id string) (SubscriptionResponse, error) {
	sub, err := s.repo.FindByIDAndTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubscriptionResponse{}, subscriptionerrors.ErrSubscriptionNotFound
		}
		return SubscriptionResponse{}, err
	}
	return mapToResponse(*sub), nil
}

func (s *service) Update(ctx context.Context, tenantID, id string, req UpdateSubscriptionRequest) (SubscriptionResponse, error) {
	s.logger.Debug("update subscription requested",
		zap.String("subscription_id", id),
		zap.String("tenant_id", tenantID),
	)

	if err := validateURL(req.URL); err != nil {
		return SubscriptionResponse{}, err
	}
	if err := validateEventPatterns(req.Events); err != nil {
		return SubscriptionResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("update subscription begin tx failed", zap.Error(err))
		return SubscriptionResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	sub, err := qtx.FindByIDAndTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubscriptionResponse{}, subscriptionerrors.ErrSubscriptionNotFound
		}
		return SubscriptionResponse{}, err
	}

	sub.URL = req.URL
	sub.Events = StringList(req.Events)
	sub.Filters = mapFilters(req.Filters)
	sub.Headers = HeaderMap(req.Headers)
	if req.IsActive != nil {
		sub.IsActive = *req.IsActive
	}
	applyRetryPolicy(sub, req.RetryPolicy)

	if err := qtx.Update(ctx, sub); err != nil {
		s.logger.Error("update subscription persist failed",
			zap.String("subscription_id", id),
			zap.Error(err),
		)
		return SubscriptionResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("update subscription commit failed", zap.Error(err))
		return SubscriptionResponse{}, err
	}
	contextutil.GetLogger(ctx, s.logger).Info("update subscription success",
		zap.String("subscription_id", id),
		zap.Bool("is_active", sub.IsActive),
		zap.String("actor_id", contextutil.GetUserID(ctx)),
	)

	return mapToResponse(*sub), nil
}

func (s *service) Delete(ctx context.Context, tenantID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *service) ListEventTypes(_ context.Context) []string {
	return events.EventTypes
}

// testEventPayload wraps caller data so receivers can tell a verification
// event from production traffic.
type testEventPayload struct {
	Test bool            `json:"test"`
	Data json.RawMessage `json:"data"`
}

// PublishTest puts a marked event on the broker so an endpoint can be
// verified end to end: it travels the same topics, matching, signing and
// ledger as production traffic.
func (s *service) PublishTest(ctx context.Context, tenantID string, req TestEventRequest) (string, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return "", subscriptionerrors.ErrInvalidTenantID
	}
	if !events.IsKnownEventType(req.EventType) {
		return "", subscriptionerrors.ErrUnknownEventType
	}

	payload := req.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	env, err := events.NewEnvelope(req.EventType, tenantID, testEventPayload{
		Test: true,
		Data: payload,
	})
	if err != nil {
		return "", err
	}

	if err := s.publisher.Publish(ctx, env); err != nil {
		s.logger.Error("publish test event failed",
			zap.String("event_type", req.EventType),
			zap.Error(err),
		)
		return "", err
	}

	s.logger.Info("test event published",
		zap.String("event_id", env.EventID),
		zap.String("event_type", req.EventType),
		zap.String("tenant_id", tenantID),
	)
	return env.EventID, nil
}

func validateURL(url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return subscriptionerrors.ErrInsecureURL
	}
	return nil
}

// validateEventPatterns accepts exact types from the catalog, domain
// wildcards ("leave.*") and the catch-all "*".
func validateEventPatterns(patterns []string) error {
	for _, pattern := range patterns {
		if pattern == "*" {
			continue
		}
		if prefix, found := strings.CutSuffix(pattern, ".*"); found {
			if hasEventDomain(prefix) {
				continue
			}
			return subscriptionerrors.ErrUnknownEventType
		}
		if !events.IsKnownEventType(pattern) {
			return subscriptionerrors.ErrUnknownEventType
		}
	}
	return nil
}

func hasEventDomain(domain string) bool {
	for _, t := range events.EventTypes {
		if d, _, _ := strings.Cut(t, "."); d == domain {
			return true
		}
	}
	return false
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func mapFilters(reqs []FilterRequest) FilterList {
	filters := make(FilterList, len(reqs))
	for i, f := range reqs {
		filters[i] = Filter{Field: f.Field, Operator: f.Operator, Value: f.Value}
	}
	return filters
}

func applyRetryPolicy(sub *Subscription, policy *RetryPolicyRequest) {
	if policy == nil {
		return
	}
	if policy.MaxRetries > 0 {
		sub.MaxRetries = policy.MaxRetries
	}
	if policy.InitialDelaySeconds > 0 {
		sub.InitialDelaySeconds = policy.InitialDelaySeconds
	}
	if policy.BackoffMultiplier >= 1 {
		sub.BackoffMultiplier = policy.BackoffMultiplier
	}
}

func mapToResponse(s Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                  s.ID.String(),
		TenantID:            s.TenantID.String(),
		URL:                 s.URL,
		MaskedSecret:        maskSecret(s.Secret),
		Events:              s.Events,
		IsActive:            s.IsActive,
		Filters:             s.Filters,
		Headers:             s.Headers,
		MaxRetries:          s.MaxRetries,
		InitialDelaySeconds: s.InitialDelaySeconds,
		BackoffMultiplier:   s.BackoffMultiplier,
		SuccessCount:        s.SuccessCount,
		FailureCount:        s.FailureCount,
		CreatedAt:           s.CreatedAt.UTC().Format(time.RFC3339),
	}
}
