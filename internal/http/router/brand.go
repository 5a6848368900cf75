package router

import (
	"brewcast.app/captioner/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func BrandRouter(rg *gin.RouterGroup, h *handler.BrandHandler) {
	rg.GET("", h.List)
	rg.PUT("/:id", h.Update)
}
