package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/mentorhub/internal/handlers"
	"github.com/campushub/mentorhub/internal/middleware"
)

func registerApplicationRoutes(api *gin.RouterGroup, handler *handlers.ApplicationHandler) {
	group := api.Group("/applications")
	{
		group.GET("", handler.ListMine)
		group.GET("/:id", handler.Get)
		group.POST("/:id/cancel", handler.Cancel)

		group.POST("/:id/approve", middleware.RequireAdmin(), handler.Approve)
		group.POST("/:id/reject", middleware.RequireAdmin(), handler.Reject)
	}
}
