package subscription

import (
	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rdb *redis.Client,
) {
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.AuthMiddleware())
	webhooks.Use(middleware.RoleMiddleware(events.RoleAdmin, events.RoleHR))
	{
		webhooks.GET("/event-types", handler.ListEventTypes)
		webhooks.GET("", handler.GetAll)
		webhooks.GET("/:id", handler.GetById)
		webhooks.POST("", middleware.Idempotency(rdb), handler.Create)
		webhooks.POST("/test", handler.PublishTestEvent)
		webhooks.PUT("/:id", handler.Update)
		webhooks.DELETE("/:id", handler.Delete)
	}
}
