package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/mentorhub/internal/handlers"
)

func registerAlarmRoutes(r *gin.Engine, api *gin.RouterGroup, handler *handlers.AlarmHandler) {
	group := api.Group("/alarms")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)
		group.DELETE("", handler.DeleteAll)
	}

	// The stream authenticates via token query parameter inside the handler,
	// so it mounts outside the auth-protected group.
	r.GET("/api/alarms/stream", handler.Stream)
}
