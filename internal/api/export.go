package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rolmap/internal/exporter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportProgressEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func exportOptions(c *gin.Context) exporter.Options {
	return exporter.Options{IncludeImage: c.Query("image") == "1" || c.Query("image") == "true"}
}

func exportContentDisposition() string {
	return fmt.Sprintf("attachment; filename=%q", exporter.DefaultFilename)
}

// Export 直接下载全部记录
// GET /api/export
func (h *Handler) Export(c *gin.Context) {
	props, err := h.records.GetAll(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	c.Header("Content-Disposition", exportContentDisposition())
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := h.exporter.WriteTo(c.Writer, props, exportOptions(c)); err != nil {
		log.Printf("[export] 写出失败: %v", err)
	}
}

// ExportStream 导出 Excel（SSE 进度 + 完成后提供下载地址）
// POST /api/export/stream
func (h *Handler) ExportStream(c *gin.Context) {
	props, err := h.records.GetAll(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "respuesta en streaming no soportada"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event exportProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	send(exportProgressEvent{
		Type:      "start",
		Message:   "Iniciando exportación",
		Data:      map[string]any{"records": len(props)},
		Timestamp: time.Now(),
	})

	lastPercent := -1
	opts := exportOptions(c)
	opts.Progress = func(p exporter.ProgressEvent) {
		if p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		send(exportProgressEvent{
			Type:      "progress",
			Message:   p.Stage,
			Data:      map[string]any{"percent": p.Percent},
			Timestamp: time.Now(),
		})
	}

	file, err := h.exporter.Export(props, opts)
	if err != nil {
		send(exportProgressEvent{
			Type:      "error",
			Message:   "Error al exportar: " + err.Error(),
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
		return
	}
	defer file.Close()

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("rolmap_export_%d_%d.xlsx", time.Now().UnixNano(), os.Getpid()))
	if err := file.SaveAs(tempPath); err != nil {
		send(exportProgressEvent{
			Type:      "error",
			Message:   "Error al escribir el archivo: " + err.Error(),
			Data:      map[string]any{},
			Timestamp: time.Now(),
		})
		_ = os.Remove(tempPath)
		return
	}

	token := h.downloads.put(tempPath, len(props), ExportDownloadTTL)
	prefix := strings.TrimSuffix(c.FullPath(), "/export/stream")

	send(exportProgressEvent{
		Type:    "done",
		Message: "Exportación completada",
		Data: map[string]any{
			"percent":     100,
			"records":     len(props),
			"downloadUrl": fmt.Sprintf("%s/export/download/%s", prefix, token),
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "el enlace de descarga expiró"})
		return
	}
	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "el archivo exportado no existe"})
		return
	}

	c.Header("Content-Disposition", exportContentDisposition())
	c.Header("Content-Type", xlsxContentType)
	c.File(item.filePath)

	h.downloads.delete(token)
	_ = os.Remove(item.filePath)
}
