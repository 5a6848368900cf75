package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"brewcast.app/captioner/internal/http/dto"
	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// CaptionPipeline is the slice of the pipeline the handler depends on.
type CaptionPipeline interface {
	Generate(ctx context.Context, req pipeline.GenerateRequest) (*model.CaptionArtifact, error)
	RegenerateImage(ctx context.Context, captionID int64, styleOverride string) (string, error)
}

type CaptionHandler struct {
	pipeline CaptionPipeline
}

func NewCaptionHandler(pipeline CaptionPipeline) *CaptionHandler {
	return &CaptionHandler{pipeline: pipeline}
}

func (h *CaptionHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.GenerateCaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artifact, err := h.pipeline.Generate(ctx, pipeline.GenerateRequest{
		BrandID:   req.BrandID,
		BrandName: req.BrandName,
		Platform:  req.Platform,
		Keyword:   req.Keyword,
		Scenario:  req.Scenario,
		Provider:  req.Provider,
	})
	if err != nil {
		var invalid *pipeline.InvalidRequestError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Reason})
			return
		}
		slog.ErrorContext(ctx, "caption generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate caption"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToCaptionResponse(artifact))
}

func (h *CaptionHandler) RegenerateImage(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prompt, err := h.pipeline.RegenerateImage(ctx, req.CaptionID, req.Style)
	if err != nil {
		var invalid *pipeline.InvalidRequestError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Reason})
			return
		}
		slog.ErrorContext(ctx, "image prompt regeneration failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to regenerate image prompt"})
		return
	}

	c.JSON(http.StatusOK, dto.ImagePromptResponse{
		CaptionID:   req.CaptionID,
		ImagePrompt: prompt,
	})
}
