package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListHistory handles GET /api/v1/history?limit=N.
func (h *Handler) ListHistory(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not configured"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Warn("list history failed", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryListResponse{Runs: runs, Total: len(runs)})
}

// GetHistoryRun handles GET /api/v1/history/:id.
func (h *Handler) GetHistoryRun(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not configured"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a UUID"})
		return
	}

	summary, records, err := h.history.GetRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RunDetailResponse{Run: summary, Records: records})
}
