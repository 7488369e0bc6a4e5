package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rolmap/internal/importer"
	"rolmap/internal/model"
	"rolmap/internal/parser"
	"rolmap/internal/reconcile"
	"rolmap/internal/state"
)

// importResponse 同步导入的响应
type importResponse struct {
	Message string                 `json:"message"`
	Status  string                 `json:"status"`
	Report  *importer.ImportReport `json:"report"`
}

// Import 导入 Excel 数据（默认 SSE 流式响应，sync=1 时直接返回报告）
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "datos del formulario inválidos"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no se encontró el archivo"})
		return
	}
	uploaded := files[0]

	mode, ok := model.ParseImportMode(c.DefaultPostForm("mode", string(model.ModeUpdate)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "modo de importación inválido"})
		return
	}

	f, err := uploaded.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": parser.ErrUnreadable.Error()})
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": parser.ErrUnreadable.Error()})
		return
	}

	opts := importer.ImportOptions{
		Filename:       uploaded.Filename,
		ContentType:    uploaded.Header.Get("Content-Type"),
		Data:           data,
		Mode:           mode,
		ConfirmReplace: isTruthy(c.PostForm("confirm")),
	}

	h.state.Dispatch(state.Action{Kind: state.SetLoading, Loading: true})
	if isTruthy(c.Query("sync")) {
		h.importSync(c, opts)
		return
	}
	h.importStream(c, opts)
}

func (h *Handler) importSync(c *gin.Context, opts importer.ImportOptions) {
	ctx := c.Request.Context()
	report, err := h.importer.ImportSync(ctx, opts)
	h.afterImport(c, err)

	if err != nil && report == nil {
		status := http.StatusInternalServerError
		body := gin.H{"error": err.Error()}
		switch {
		case errors.Is(err, reconcile.ErrReplaceNotConfirmed):
			status = http.StatusConflict
			body["requiresConfirmation"] = true
		case parser.IsFileLevel(err):
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, importResponse{
		Message: report.Message(h.cfg.Import.MaxReportDetails),
		Status:  report.Status(),
		Report:  report,
	})
}

func (h *Handler) importStream(c *gin.Context, opts importer.ImportOptions) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "respuesta en streaming no soportada"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var failure error
	for event := range h.importer.Import(c.Request.Context(), opts) {
		if event.Type == importer.EventError {
			failure = errors.New(event.Message)
		}
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
	h.afterImport(c, failure)
}

// afterImport 导入结束后刷新状态缓存（失败的导入也可能已写入部分记录）
func (h *Handler) afterImport(c *gin.Context, importErr error) {
	if err := h.SyncState(context.WithoutCancel(c.Request.Context())); err != nil {
		log.Printf("[import] 刷新状态失败: %v", err)
		return
	}
	if importErr != nil {
		h.state.Dispatch(state.Action{Kind: state.SetError, Error: importErr.Error()})
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "si", "sí":
		return true
	}
	return false
}
