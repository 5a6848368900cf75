package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"brewcast.app/captioner/internal/http/dto"
	"github.com/gin-gonic/gin"
)

// maxUsageWindowHours caps the summary window at 90 days.
const maxUsageWindowHours = 24 * 90

// UsageReader is the slice of usage accounting the handler depends on.
type UsageReader interface {
	SumCostSince(ctx context.Context, since time.Time) (float64, error)
}

type UsageHandler struct {
	usage UsageReader
}

func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// Summary reports provider spend over a trailing window, defaulting to the
// last 24 hours.
func (h *UsageHandler) Summary(c *gin.Context) {
	ctx := c.Request.Context()

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxUsageWindowHours {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "hours must be between 1 and " + strconv.Itoa(maxUsageWindowHours),
			})
			return
		}
		hours = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	cost, err := h.usage.SumCostSince(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "usage summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, dto.UsageSummaryResponse{
		Hours:   hours,
		Since:   since,
		CostUSD: cost,
	})
}
