package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/mentorhub/internal/handlers"
	"github.com/campushub/mentorhub/internal/middleware"
)

func registerMatchingRoutes(api *gin.RouterGroup, handler *handlers.MatchingHandler, chat *handlers.ChatHandler) {
	group := api.Group("/matchings")
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)

		group.POST("", middleware.RequireAdmin(), handler.Match)
		group.DELETE("/:id", middleware.RequireAdmin(), handler.Dissolve)

		group.GET("/:id/messages", chat.History)
		group.POST("/:id/messages", chat.Post)
	}
}
