package subscription_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"
	subscriptionerrors "github.com/kishoreUdatha/HRM-sub003/internal/subscription/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeSubscriptionRepository struct {
	withTxFn             func(tx *sql.Tx) subscription.Repository
	createFn             func(ctx context.Context, s *subscription.Subscription) error
	findAllByTenantFn    func(ctx context.Context, tenantID string) ([]subscription.Subscription, error)
	findByIDAndTenantFn  func(ctx context.Context, tenantID, id string) (*subscription.Subscription, error)
	findActiveByTenantFn func(ctx context.Context, tenantID string) ([]subscription.Subscription, error)
	findByIDFn           func(ctx context.Context, id string) (*subscription.Subscription, error)
	updateFn             func(ctx context.Context, s *subscription.Subscription) error
	deleteFn             func(ctx context.Context, tenantID, id string) error
	incrementSuccessFn   func(ctx context.Context, id string) error
	incrementFailureFn   func(ctx context.Context, id string) error
}

func (f *fakeSubscriptionRepository) WithTx(tx *sql.Tx) subscription.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeSubscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	if f.createFn != nil {
		return f.createFn(ctx, s)
	}
	return nil
}

func (f *fakeSubscriptionRepository) FindAllByTenant(ctx context.Context, tenantID string) ([]subscription.Subscription, error) {
	if f.findAllByTenantFn != nil {
		return f.findAllByTenantFn(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeSubscriptionRepository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*subscription.Subscription, error) {
	if f.findByIDAndTenantFn != nil {
		return f.findByIDAndTenantFn(ctx, tenantID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionRepository) FindActiveByTenant(ctx context.Context, tenantID string) ([]subscription.Subscription, error) {
	if f.findActiveByTenantFn != nil {
		return f.findActiveByTenantFn(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeSubscriptionRepository) FindByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, s)
	}
	return nil
}

func (f *fakeSubscriptionRepository) Delete(ctx context.Context, tenantID, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, tenantID, id)
	}
	return nil
}

func (f *fakeSubscriptionRepository) IncrementSuccess(ctx context.Context, id string) error {
	if f.incrementSuccessFn != nil {
		return f.incrementSuccessFn(ctx, id)
	}
	return nil
}

func (f *fakeSubscriptionRepository) IncrementFailure(ctx context.Context, id string) error {
	if f.incrementFailureFn != nil {
		return f.incrementFailureFn(ctx, id)
	}
	return nil
}

type recordingPublisher struct {
	published []events.Envelope
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, envelope events.Envelope) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, envelope)
	return nil
}

type subscriptionServiceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   subscription.Service
	repo      *fakeSubscriptionRepository
	publisher *recordingPublisher
}

func setupSubscriptionServiceTest(t *testing.T) *subscriptionServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeSubscriptionRepository{}
	publisher := &recordingPublisher{}
	svc := subscription.NewService(db, repo, publisher)

	return &subscriptionServiceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		publisher: publisher,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestSubscriptionService_Create(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New().String()

	t.Run("success generates secret and applies defaults", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		var persisted *subscription.Subscription
		deps.repo.createFn = func(ctx context.Context, s *subscription.Subscription) error {
			persisted = s
			return nil
		}

		resp, err := deps.service.Create(ctx, tenantID, subscription.CreateSubscriptionRequest{
			URL:    "https://hooks.example.com/hr",
			Events: []string{"leave.approved", "attendance.*"},
		})
		assert.NoError(t, err)
		assert.NotNil(t, persisted)
		assert.True(t, strings.HasPrefix(resp.Secret, "whsec_"))
		assert.Equal(t, persisted.Secret, resp.Secret)
		assert.Equal(t, 3, resp.MaxRetries)
		assert.Equal(t, 60, resp.InitialDelaySeconds)
		assert.Equal(t, 2.0, resp.BackoffMultiplier)
		assert.True(t, resp.IsActive)
		assert.NotEqual(t, resp.Secret, resp.MaskedSecret)
		assert.True(t, strings.HasPrefix(resp.MaskedSecret, "****"))
	})

	t.Run("custom retry policy is kept", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Create(ctx, tenantID, subscription.CreateSubscriptionRequest{
			URL:    "https://hooks.example.com/hr",
			Events: []string{"*"},
			RetryPolicy: &subscription.RetryPolicyRequest{
				MaxRetries:          5,
				InitialDelaySeconds: 30,
				BackoffMultiplier:   1.5,
			},
		})
		assert.NoError(t, err)
		assert.Equal(t, 5, resp.MaxRetries)
		assert.Equal(t, 30, resp.InitialDelaySeconds)
		assert.Equal(t, 1.5, resp.BackoffMultiplier)
	})

	t.Run("invalid tenant id", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Create(ctx, "not-a-uuid", subscription.CreateSubscriptionRequest{
			URL:    "https://hooks.example.com/hr",
			Events: []string{"*"},
		})
		assert.ErrorIs(t, err, subscriptionerrors.ErrInvalidTenantID)
	})

	t.Run("unknown event pattern rejected", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Create(ctx, tenantID, subscription.CreateSubscriptionRequest{
			URL:    "https://hooks.example.com/hr",
			Events: []string{"payments.settled"},
		})
		assert.ErrorIs(t, err, subscriptionerrors.ErrUnknownEventType)
	})

	t.Run("non http url rejected", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Create(ctx, tenantID, subscription.CreateSubscriptionRequest{
			URL:    "ftp://hooks.example.com/hr",
			Events: []string{"*"},
		})
		assert.ErrorIs(t, err, subscriptionerrors.ErrInsecureURL)
	})

	t.Run("persist failure rolls back", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.createFn = func(ctx context.Context, s *subscription.Subscription) error {
			return errors.New("insert failed")
		}

		_, err := deps.service.Create(ctx, tenantID, subscription.CreateSubscriptionRequest{
			URL:    "https://hooks.example.com/hr",
			Events: []string{"*"},
		})
		assert.Error(t, err)
	})
}

func TestSubscriptionService_Update(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New().String()
	subID := uuid.New()

	existing := func() *subscription.Subscription {
		return &subscription.Subscription{
			ID:                  subID,
			TenantID:            uuid.MustParse(tenantID),
			URL:                 "https://hooks.example.com/old",
			Secret:              "whsec_abcdef",
			Events:              subscription.StringList{"*"},
			IsActive:            true,
			MaxRetries:          3,
			InitialDelaySeconds: 60,
			BackoffMultiplier:   2,
		}
	}

	t.Run("deactivation persists", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		deps.repo.findByIDAndTenantFn = func(ctx context.Context, tid, id string) (*subscription.Subscription, error) {
			assert.Equal(t, tenantID, tid)
			assert.Equal(t, subID.String(), id)
			return existing(), nil
		}

		var updated *subscription.Subscription
		deps.repo.updateFn = func(ctx context.Context, s *subscription.Subscription) error {
			updated = s
			return nil
		}

		inactive := false
		resp, err := deps.service.Update(ctx, tenantID, subID.String(), subscription.UpdateSubscriptionRequest{
			URL:      "https://hooks.example.com/new",
			Events:   []string{"leave.*"},
			IsActive: &inactive,
		})
		assert.NoError(t, err)
		assert.NotNil(t, updated)
		assert.False(t, updated.IsActive)
		assert.False(t, resp.IsActive)
		assert.Equal(t, "https://hooks.example.com/new", resp.URL)
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.findByIDAndTenantFn = func(ctx context.Context, tid, id string) (*subscription.Subscription, error) {
			return nil, gorm.ErrRecordNotFound
		}

		active := true
		_, err := deps.service.Update(ctx, tenantID, uuid.New().String(), subscription.UpdateSubscriptionRequest{
			URL:      "https://hooks.example.com/new",
			Events:   []string{"*"},
			IsActive: &active,
		})
		assert.ErrorIs(t, err, subscriptionerrors.ErrSubscriptionNotFound)
	})
}

func TestSubscriptionService_PublishTest(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New().String()

	t.Run("publishes a marked envelope", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		eventID, err := deps.service.PublishTest(ctx, tenantID, subscription.TestEventRequest{
			EventType: "leave.approved",
			Payload:   []byte(`{"leave_id":"L1"}`),
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, eventID)

		if assert.Len(t, deps.publisher.published, 1) {
			env := deps.publisher.published[0]
			assert.Equal(t, eventID, env.EventID)
			assert.Equal(t, "leave.approved", env.EventType)
			assert.Equal(t, tenantID, env.TenantID)
			assert.JSONEq(t, `{"test":true,"data":{"leave_id":"L1"}}`, string(env.Payload))
		}
	})

	t.Run("unknown event type rejected", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.PublishTest(ctx, tenantID, subscription.TestEventRequest{
			EventType: "leave.*",
		})
		assert.ErrorIs(t, err, subscriptionerrors.ErrUnknownEventType)
		assert.Empty(t, deps.publisher.published)
	})

	t.Run("publish failure surfaces", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		deps.publisher.err = errors.New("broker unavailable")
		_, err := deps.service.PublishTest(ctx, tenantID, subscription.TestEventRequest{
			EventType: "leave.approved",
		})
		assert.Error(t, err)
	})
}

func TestSubscriptionService_GetByID(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New().String()

	t.Run("secret never exposed on read", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDAndTenantFn = func(ctx context.Context, tid, id string) (*subscription.Subscription, error) {
			return &subscription.Subscription{
				ID:       uuid.New(),
				TenantID: uuid.MustParse(tenantID),
				Secret:   "whsec_supersecret1234",
				Events:   subscription.StringList{"*"},
				IsActive: true,
			}, nil
		}

		resp, err := deps.service.GetByID(ctx, tenantID, uuid.New().String())
		assert.NoError(t, err)
		assert.Equal(t, "****1234", resp.MaskedSecret)
		assert.NotContains(t, resp.MaskedSecret, "supersecret")
	})

	t.Run("not found", func(t *testing.T) {
		deps := setupSubscriptionServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.GetByID(ctx, tenantID, uuid.New().String())
		assert.ErrorIs(t, err, subscriptionerrors.ErrSubscriptionNotFound)
	})
}
