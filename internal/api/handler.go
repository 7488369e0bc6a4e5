package api

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"rolmap/internal/config"
	"rolmap/internal/exporter"
	"rolmap/internal/importer"
	"rolmap/internal/metrics"
	"rolmap/internal/model"
	"rolmap/internal/parser"
	"rolmap/internal/reconcile"
	"rolmap/internal/state"
	"rolmap/internal/store"
)

// PropertyStore API 使用的记录存储（SQLite 或 Postgres）
type PropertyStore interface {
	reconcile.RecordStore
	Get(ctx context.Context, id string) (*model.Property, error)
}

// Searcher 支持数据库端过滤分页的存储
type Searcher interface {
	Search(ctx context.Context, opts store.QueryOptions) ([]*model.Property, int, error)
}

// Local 本地 SQLite：导入日志与键值配置
type Local interface {
	LastImport(ctx context.Context) (*store.ImportLog, error)
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Deps 处理器依赖
type Deps struct {
	Records  PropertyStore
	Local    Local
	State    *state.Store
	Importer *importer.Coordinator
	Metrics  *metrics.Metrics
	Config   *config.AppConfig
}

// Handler API 处理器
type Handler struct {
	records   PropertyStore
	local     Local
	state     *state.Store
	importer  *importer.Coordinator
	exporter  *exporter.Exporter
	metrics   *metrics.Metrics
	cfg       *config.AppConfig
	validator parser.Validator
	downloads *exportDownloadStore
}

// NewHandler 创建 API 处理器
func NewHandler(d Deps) *Handler {
	cfg := d.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	st := d.State
	if st == nil {
		st = state.NewStore("")
	}
	policy, err := parser.ParseZeroCoordinatePolicy(cfg.Import.ZeroCoordinates)
	if err != nil {
		policy = parser.ZeroIsMissing
	}
	return &Handler{
		records:   d.Records,
		local:     d.Local,
		state:     st,
		importer:  d.Importer,
		exporter:  exporter.NewExporter(),
		metrics:   d.Metrics,
		cfg:       cfg,
		validator: parser.Validator{ZeroCoordinates: policy},
		downloads: newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.Use(h.authenticate)

	viewer := router.Group("", requireViewer)
	admin := router.Group("", requireAdmin)

	// 系统状态与会话
	viewer.GET("/status", h.GetStatus)
	viewer.GET("/me", h.GetSession)

	// 记录查询
	viewer.GET("/properties", h.ListProperties)
	viewer.GET("/properties/search", h.SearchProperties)
	viewer.GET("/properties/:id", h.GetProperty)
	viewer.POST("/properties/:id/select", h.SelectProperty)

	// 记录维护
	admin.POST("/properties", h.CreateProperty)
	admin.PATCH("/properties/:id", h.UpdateProperty)
	admin.DELETE("/properties/:id", h.DeleteProperty)
	admin.DELETE("/properties", h.ClearProperties)

	// 数据导入
	admin.POST("/import", h.Import)

	// 数据导出
	viewer.GET("/export", h.Export)
	viewer.POST("/export/stream", h.ExportStream)
	viewer.GET("/export/download/:token", h.DownloadExport)

	// 统计
	admin.GET("/stats", h.GetStats)
}

// SyncState 用存储中的全部记录刷新状态缓存
func (h *Handler) SyncState(ctx context.Context) error {
	props, err := h.records.GetAll(ctx)
	if err != nil {
		h.state.Dispatch(state.Action{Kind: state.SetError, Error: err.Error()})
		return fmt.Errorf("failed to load properties: %w", err)
	}
	h.state.Dispatch(state.Action{Kind: state.SetProperties, Properties: props})
	h.metrics.SetStored(len(props))
	return nil
}
