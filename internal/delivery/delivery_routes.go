package delivery

import (
	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.AuthMiddleware())
	webhooks.Use(middleware.RoleMiddleware(events.RoleAdmin, events.RoleHR))
	{
		webhooks.GET("/:id/deliveries", handler.ListBySubscription)
	}

	deliveries := r.Group("/deliveries")
	deliveries.Use(middleware.AuthMiddleware())
	deliveries.Use(middleware.RoleMiddleware(events.RoleAdmin, events.RoleHR))
	{
		deliveries.POST("/:id/retry", handler.ForceRetry)
	}
}
