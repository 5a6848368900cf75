package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"brewcast.app/captioner/internal/http/dto"
	"brewcast.app/captioner/internal/model"
	"brewcast.app/captioner/internal/store"
	"github.com/gin-gonic/gin"
)

// BrandDirectory is the slice of brand storage the handler depends on.
type BrandDirectory interface {
	GetByID(ctx context.Context, id int64) (*model.BrandVoiceProfile, error)
	Update(ctx context.Context, profile *model.BrandVoiceProfile) error
	ListActive(ctx context.Context) ([]model.BrandVoiceProfile, error)
}

type BrandHandler struct {
	brands BrandDirectory
}

func NewBrandHandler(brands BrandDirectory) *BrandHandler {
	return &BrandHandler{brands: brands}
}

// List returns the active brands, newest update first as the store orders
// them.
func (h *BrandHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	profiles, err := h.brands.ListActive(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "brand listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list brands"})
		return
	}

	summaries := make([]dto.BrandSummary, 0, len(profiles))
	for i := range profiles {
		summaries = append(summaries, dto.ToBrandSummary(&profiles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"brands": summaries})
}

// Update replaces a brand voice profile wholesale. The body carries the full
// profile; the path decides which brand it lands on.
func (h *BrandHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid brand id"})
		return
	}

	var profile model.BrandVoiceProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile.ID = id

	if err := profile.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.brands.Update(ctx, &profile); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "brand not found"})
			return
		}
		slog.ErrorContext(ctx, "brand update failed", "brand_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update brand"})
		return
	}

	c.JSON(http.StatusOK, dto.ToBrandSummary(&profile))
}
