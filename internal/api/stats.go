package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rolmap/internal/model"
	"rolmap/internal/stats"
)

// GetStats 管理员统计面板
// GET /api/stats
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, stats.Compute(h.state.Properties(model.SearchFilters{})))
}
