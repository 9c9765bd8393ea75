package app

import (
	"os"

	"github.com/kishoreUdatha/HRM-sub003/internal/broker"
	"github.com/kishoreUdatha/HRM-sub003/internal/delivery"
	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/connection"
	"github.com/kishoreUdatha/HRM-sub003/internal/subscription"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// BuildAPI wires the admin surface: webhook subscription management and the
// delivery ledger, both tenant-scoped behind JWT auth.
func BuildAPI(router *gin.Engine) error {
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

	rdb, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}

	// Without a broker the admin surface still works; only the test-event
	// endpoint degrades to a no-op.
	publisher := broker.NewNoopPublisher()
	if kafkaBroker := os.Getenv("KAFKA_BROKER"); kafkaBroker != "" {
		writer, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
		if err != nil {
			return err
		}
		publisher = broker.NewKafkaPublisher(writer)
	}

	subscriptionRepo := subscription.NewRepository(gormDB)
	deliveryRepo := delivery.NewRepository(gormDB)

	subscriptionService := subscription.NewService(sqlDB, subscriptionRepo, publisher)
	deliveryService := delivery.NewService(deliveryRepo)

	subscriptionHandler := subscription.NewHandlerWithRedis(subscriptionService, rdb)
	deliveryHandler := delivery.NewHandler(deliveryService)

	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(rate.Limit(50), 100))

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitByTenant(rate.Limit(20), 40))
	{
		subscription.RegisterRoutes(api, subscriptionHandler, rdb)
		delivery.RegisterRoutes(api, deliveryHandler)
	}

	return nil
}
