package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kishoreUdatha/HRM-sub003/internal/bootstrap"
	"github.com/kishoreUdatha/HRM-sub003/internal/broker"
	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"
	"github.com/kishoreUdatha/HRM-sub003/internal/realtime"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunGateway serves websocket connections and feeds them from two sides: the
// broker (realtime router group over every domain topic) and the redis
// fan-out channel carrying envelopes routed on other instances.
func RunGateway(router *gin.Engine) error {
	logger := zap.L().Named("app.gateway")

	rdb, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	logger.Info("gateway instance starting", zap.String("instance_id", instanceID))

	hub := realtime.NewHub()
	realtimeRouter := realtime.NewRouter(hub, logger)
	presence := realtime.NewPresence(rdb, instanceID, logger)
	fanout := realtime.NewFanout(rdb, instanceID, func(env events.Envelope) {
		realtimeRouter.Route(env)
	}, logger)
	gateway := realtime.NewGateway(hub, realtimeRouter, presence, fanout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := fanout.Run(ctx); err != nil {
			logger.Error("fanout subscriber exited", zap.Error(err))
		}
	}()

	for _, topic := range events.AllTopics() {
		reader := broker.NewGroupReader(kafkaBroker, broker.GroupRealtimeRouter, topic)
		defer reader.Close()
		go broker.ConsumeEnvelopes(ctx, reader, gateway.OnEvent, logger)
	}

	router.Use(middleware.RequestID())
	realtime.RegisterRoutes(router, realtime.NewHandler(gateway, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	bootstrap.StartHTTPServer(
		router,
		bootstrap.ServerConfig{
			Port:         port,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		bootstrap.NewStdoutAuditLogger(),
	)

	logger.Info("gateway shutting down")
	cancel()

	return nil
}
