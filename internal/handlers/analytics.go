package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetAnalytics - GET /api/analytics
func (h *Handlers) GetAnalytics(c *gin.Context) {
	overview, err := h.services.Analytics.Overview(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// GetEventAnalytics - GET /api/events/:id/analytics
func (h *Handlers) GetEventAnalytics(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	stats, err := h.services.Analytics.EventStats(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
