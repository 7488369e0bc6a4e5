package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rolmap/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized     bool             `json:"initialized"`     // 是否已有数据
	TotalProperties int              `json:"totalProperties"` // 记录总数
	Backend         string           `json:"backend"`         // 记录存储后端
	LastImportTime  string           `json:"lastImportTime"`  // 最后导入时间
	LastImport      *store.ImportLog `json:"lastImport,omitempty"`
	SelectedID      string           `json:"selectedId,omitempty"` // 地图上选中的记录
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.records.Count(ctx)
	if err != nil {
		log.Printf("[api] 统计记录数失败: %v", err)
		c.JSON(http.StatusOK, StatusResponse{Initialized: false, Backend: h.cfg.Store.Backend})
		return
	}

	resp := StatusResponse{
		Initialized:     total > 0,
		TotalProperties: total,
		Backend:         h.cfg.Store.Backend,
	}

	if h.local != nil {
		if last, err := h.local.LastImport(ctx); err != nil {
			log.Printf("[api] 读取导入日志失败: %v", err)
		} else if last != nil {
			resp.LastImport = last
			if last.CompletedAt != nil {
				resp.LastImportTime = last.CompletedAt.Format(time.RFC3339)
			}
		}
		if id, err := h.local.GetConfig(ctx, store.ConfigSelectedProperty); err == nil {
			resp.SelectedID = id
		}
	}

	c.JSON(http.StatusOK, resp)
}
