package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/valuations", handler.RunValuation)
		api.GET("/market-context", handler.GetMarketContext)

		api.POST("/sessions", handler.CreateSession)
		api.GET("/sessions", handler.ListSessions)
		api.GET("/sessions/:id", handler.GetSession)
		api.PATCH("/sessions/:id", handler.UpdateSession)
		api.DELETE("/sessions/:id", handler.DeleteSession)
		api.POST("/sessions/:id/share", handler.ShareSession)
		api.DELETE("/sessions/:id/share", handler.UnshareSession)
		api.GET("/shared/:slug", handler.GetSharedSession)

		api.GET("/history/:listing_id", handler.GetValuationHistory)
		api.GET("/history/:listing_id/trend", handler.GetValuationTrend)

		api.POST("/listings/import", handler.ImportListings)
		api.GET("/health", handler.Health)
	}
}
