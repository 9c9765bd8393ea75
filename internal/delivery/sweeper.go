package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepBatchSize = 50

// RunSweeper re-attempts due retries on a fixed interval. Retry state lives
// entirely in the ledger, so retries survive dispatcher restarts; there are
// no in-memory timers to lose.
func RunSweeper(
	ctx context.Context,
	dispatcher *Dispatcher,
	ledger Repository,
	subs subscription.Repository,
	logger *zap.Logger,
	interval time.Duration,
) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	log := logger.Named("delivery.sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("retry sweeper started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("retry sweeper stopped")
			return
		case <-ticker.C:
			if err := sweepOnce(ctx, dispatcher, ledger, subs, log); err != nil {
				log.Error("retry sweep failed", zap.Error(err))
			}
		}
	}
}

func sweepOnce(
	ctx context.Context,
	dispatcher *Dispatcher,
	ledger Repository,
	subs subscription.Repository,
	logger *zap.Logger,
) error {
	due, err := ledger.ListDueRetries(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	logger.Info("processing due webhook retries", zap.Int("count", len(due)))

	for i := range due {
		rec := &due[i]

		sub, err := subs.FindByID(ctx, rec.SubscriptionID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			logger.Error("load subscription for retry failed",
				zap.String("delivery_id", rec.ID.String()),
				zap.Error(err),
			)
			continue
		}
		// Deactivation between the list query and here cancels the retry;
		// the row stays retrying and later sweeps skip it via the query.
		if !sub.IsActive {
			continue
		}

		if err := dispatcher.Attempt(ctx, rec, *sub); err != nil {
			logger.Error("retry attempt failed",
				zap.String("delivery_id", rec.ID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}
