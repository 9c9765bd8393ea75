package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/broker"
	"github.com/kishoreUdatha/HRM-sub003/internal/delivery"
	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/connection"
	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"

	"go.uber.org/zap"
)

// RunDispatcher consumes every domain topic in the webhook dispatcher group,
// fans events out to matching subscriptions and runs the retry sweeper.
func RunDispatcher() error {
	logger := zap.L().Named("app.dispatcher")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	subscriptionRepo := subscription.NewRepository(gormDB)
	deliveryRepo := delivery.NewRepository(gormDB)
	dispatcher := delivery.NewDispatcher(subscriptionRepo, deliveryRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, topic := range events.AllTopics() {
		reader := broker.NewGroupReader(kafkaBroker, broker.GroupWebhookDispatcher, topic)
		defer reader.Close()
		go broker.ConsumeEnvelopes(ctx, reader, dispatcher.OnEvent, logger)
	}

	go delivery.RunSweeper(ctx, dispatcher, deliveryRepo, subscriptionRepo, logger, sweepInterval())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("dispatcher shutting down")
	cancel()

	return nil
}

func sweepInterval() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("SWEEP_INTERVAL_SECONDS"))
	if err != nil || seconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(seconds) * time.Second
}
