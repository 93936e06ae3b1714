package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/mentorhub/internal/handlers"
	"github.com/campushub/mentorhub/internal/middleware"
)

func registerRecruitmentRoutes(api *gin.RouterGroup, handler *handlers.RecruitmentHandler, applications *handlers.ApplicationHandler) {
	group := api.Group("/recruitments")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)

		group.POST("", middleware.RequireAdmin(), handler.Create)
		group.POST("/:id/open", middleware.RequireAdmin(), handler.Open)
		group.POST("/:id/close", middleware.RequireAdmin(), handler.Close)

		group.POST("/:id/applications", applications.Apply)
		group.GET("/:id/applications", middleware.RequireAdmin(), applications.ListByRecruitment)
	}
}
