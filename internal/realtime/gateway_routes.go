package realtime

import (
	"github.com/kishoreUdatha/HRM-sub003/internal/events"
	"github.com/kishoreUdatha/HRM-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/ws", middleware.AuthMiddleware(), handler.ServeWS)

	api := r.Group("/api/v1/realtime")
	api.Use(middleware.AuthMiddleware())
	{
		api.GET("/online", handler.Online)
	}

	internal := r.Group("/internal")
	internal.Use(middleware.AuthMiddleware())
	internal.Use(middleware.RoleMiddleware(events.RoleAdmin))
	{
		internal.POST("/broadcast", handler.Broadcast)
		internal.POST("/send", handler.Send)
	}
}
