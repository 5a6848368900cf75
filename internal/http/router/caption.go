package router

import (
	"brewcast.app/captioner/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func CaptionRouter(rg *gin.RouterGroup, h *handler.CaptionHandler) {
	rg.POST("", h.Generate)
	rg.POST("/image", h.RegenerateImage)
}
