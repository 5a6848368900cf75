package router

import (
	"brewcast.app/captioner/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, captionHandler *handler.CaptionHandler, brandHandler *handler.BrandHandler, usageHandler *handler.UsageHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		CaptionRouter(api.Group("/generate"), captionHandler)
		BrandRouter(api.Group("/brands"), brandHandler)
		api.GET("/usage", usageHandler.Summary)
	}
}
