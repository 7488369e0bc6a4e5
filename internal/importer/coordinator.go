package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"rolmap/internal/metrics"
	"rolmap/internal/model"
	"rolmap/internal/parser"
	"rolmap/internal/reconcile"
	"rolmap/internal/store"
)

const (
	statusSuccess = "success"
	statusPartial = "partial"
	statusFailed  = "failed"
)

// 进度事件类型
const (
	EventStart   = "start"
	EventInfo    = "info"
	EventWarning = "warning"
	EventSkip    = "skip"
	EventDone    = "done"
	EventError   = "error"
)

// ImportLogger 导入日志持久化（SQLite 存储实现；为 nil 时不记录）
type ImportLogger interface {
	CreateImportLog(ctx context.Context, filename string, fileSize int64, fileHash, mode string) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, r store.ImportLogResult) error
	FindImportByHash(ctx context.Context, fileHash string) (int64, bool, error)
}

// Config 协调器配置
type Config struct {
	ZeroCoordinates  parser.ZeroCoordinatePolicy
	ReplaceThreshold int
	MaxReportDetails int // 完成事件消息中的错误明细条数，<=0 时取 DefaultMaxDetails
}

// Coordinator 导入协调器：文件校验 -> 解析 -> 对账 -> 报告
type Coordinator struct {
	records reconcile.RecordStore
	engine  *reconcile.Engine
	logs    ImportLogger
	metrics *metrics.Metrics
	cfg     Config

	mu sync.Mutex // 同一时刻只允许一个导入
}

// NewCoordinator 创建导入协调器；logs 与 m 可为 nil
func NewCoordinator(records reconcile.RecordStore, logs ImportLogger, m *metrics.Metrics, cfg Config) *Coordinator {
	return &Coordinator{
		records: records,
		engine:  reconcile.NewEngine(records),
		logs:    logs,
		metrics: m,
		cfg:     cfg,
	}
}

// ImportOptions 导入选项
type ImportOptions struct {
	Filename       string // 原始文件名（用于类型校验与日志）
	ContentType    string
	Data           []byte // 文件内容；为空时读取 FilePath
	FilePath       string
	Mode           model.ImportMode
	ConfirmReplace bool
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/warning/skip/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// Import 执行导入，返回进度通道；通道在导入结束后关闭
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		_, _ = c.run(ctx, opts, func(ev ProgressEvent) {
			c.sendProgress(ctx, progressChan, ev)
		})
	}()

	return progressChan
}

// ImportSync 同步执行导入（CLI 与测试使用）
func (c *Coordinator) ImportSync(ctx context.Context, opts ImportOptions) (*ImportReport, error) {
	return c.run(ctx, opts, func(ProgressEvent) {})
}

// ImportSyncWithProgress 同步执行导入，事件交给 onEvent 处理
func (c *Coordinator) ImportSyncWithProgress(ctx context.Context, opts ImportOptions, onEvent func(ProgressEvent)) (*ImportReport, error) {
	return c.run(ctx, opts, onEvent)
}

func (c *Coordinator) run(ctx context.Context, opts ImportOptions, emit func(ProgressEvent)) (*ImportReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	startTime := time.Now()
	mode := opts.Mode
	if mode == "" {
		mode = model.ModeUpdate
	}

	fail := func(err error, data interface{}) (*ImportReport, error) {
		log.Printf("[import] %s 导入失败: %v", opts.Filename, err)
		c.metrics.ObserveImport(metrics.ImportSample{
			Mode:     string(mode),
			Status:   statusFailed,
			Duration: time.Since(startTime),
		})
		emit(ProgressEvent{
			Type:      EventError,
			Message:   err.Error(),
			Data:      data,
			Timestamp: time.Now(),
		})
		return nil, err
	}

	data := opts.Data
	if data == nil && opts.FilePath != "" {
		b, err := os.ReadFile(opts.FilePath)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", parser.ErrUnreadable, err), nil)
		}
		data = b
	}
	if opts.Filename == "" {
		opts.Filename = filepath.Base(opts.FilePath)
	}

	// 发送开始事件
	emit(ProgressEvent{
		Type:    EventStart,
		Message: fmt.Sprintf("Iniciando importación de %s", opts.Filename),
		Data: map[string]interface{}{
			"filename": opts.Filename,
			"mode":     mode,
			"size":     len(data),
		},
		Timestamp: time.Now(),
	})

	if err := parser.CheckFileType(opts.Filename, opts.ContentType); err != nil {
		return fail(err, nil)
	}

	fileHash := fmt.Sprintf("%016x", xxh3.Hash(data))

	res, err := parser.ParseBytes(data, parser.Options{ZeroCoordinates: c.cfg.ZeroCoordinates})
	if err != nil {
		var skipped []model.SkipEntry
		if res != nil {
			skipped = res.Skipped
		}
		return fail(err, map[string]interface{}{"skipped": skipped})
	}

	emit(ProgressEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("Hoja %q: %d filas válidas de %d", res.SheetName, res.Accepted(), res.TotalRows),
		Data: map[string]interface{}{
			"sheet_name": res.SheetName,
			"total_rows": res.TotalRows,
			"accepted":   res.Accepted(),
			"skipped":    len(res.Skipped),
		},
		Timestamp: time.Now(),
	})
	for _, s := range res.Skipped {
		emit(ProgressEvent{
			Type:      EventSkip,
			Message:   fmt.Sprintf("Fila %d omitida: %s", s.Row, s.Reason),
			Data:      s,
			Timestamp: time.Now(),
		})
	}

	report := &ImportReport{
		Filename:  opts.Filename,
		FileHash:  fileHash,
		Mode:      mode,
		SheetName: res.SheetName,
		TotalRows: res.TotalRows,
		Accepted:  res.Accepted(),
		Skipped:   res.Skipped,
	}

	if c.logs != nil {
		if _, dup, err := c.logs.FindImportByHash(ctx, fileHash); err != nil {
			log.Printf("[import] 查询导入历史失败: %v", err)
		} else if dup {
			report.Duplicate = true
			emit(ProgressEvent{
				Type:      EventWarning,
				Message:   "Este archivo ya fue importado anteriormente",
				Data:      map[string]string{"file_hash": fileHash},
				Timestamp: time.Now(),
			})
		}
	}

	recOpts := reconcile.Options{
		Mode:             mode,
		ReplaceThreshold: c.cfg.ReplaceThreshold,
		ConfirmReplace:   opts.ConfirmReplace,
	}

	var logID int64
	if c.logs != nil {
		id, err := c.logs.CreateImportLog(ctx, opts.Filename, int64(len(data)), fileHash, string(mode))
		if err != nil {
			log.Printf("[import] 创建导入日志失败: %v", err)
		} else {
			logID = id
			report.LogID = id
		}
	}

	result, err := c.engine.Reconcile(ctx, res.Records, res.Rows, recOpts)
	if result != nil {
		report.Summary = result.Summary
		report.Removed = result.Removed
		report.Outcomes = mergeOutcomes(res.Skipped, result.Outcomes)
	}
	report.Duration = time.Since(startTime)

	if err != nil {
		c.finishLog(ctx, logID, report, err)
		if errors.Is(err, reconcile.ErrReplaceNotConfirmed) {
			return fail(err, map[string]interface{}{"requires_confirmation": true})
		}
		if report.Summary != nil {
			// 部分完成（例如被取消）：报告仍然返回
			c.observe(report)
			emit(ProgressEvent{
				Type:      EventError,
				Message:   err.Error(),
				Data:      report,
				Timestamp: time.Now(),
			})
			return report, err
		}
		return fail(err, nil)
	}

	c.finishLog(ctx, logID, report, nil)
	c.observe(report)
	if n, err := c.records.Count(ctx); err == nil {
		c.metrics.SetStored(n)
	}

	log.Printf("[import] %s (%s): 新建 %d, 更新 %d, 失败 %d, 跳过 %d, 用时 %s",
		report.Filename, mode, report.Summary.Created, report.Summary.Updated,
		report.Summary.ErrorCount(), len(report.Skipped), report.Duration)

	// 发送完成事件
	emit(ProgressEvent{
		Type:      EventDone,
		Message:   report.Message(c.cfg.MaxReportDetails),
		Data:      report,
		Timestamp: time.Now(),
	})
	return report, nil
}

func (c *Coordinator) observe(r *ImportReport) {
	c.metrics.ObserveImport(metrics.ImportSample{
		Mode:     string(r.Mode),
		Status:   r.Status(),
		Accepted: r.Accepted,
		Skipped:  len(r.Skipped),
		Created:  r.Summary.Created,
		Updated:  r.Summary.Updated,
		Failed:   r.Summary.ErrorCount(),
		Duration: r.Duration,
	})
}

// finishLog 写回导入日志
func (c *Coordinator) finishLog(ctx context.Context, id int64, r *ImportReport, runErr error) {
	if c.logs == nil || id == 0 {
		return
	}
	out := store.ImportLogResult{
		TotalRows:   r.TotalRows,
		SkippedRows: len(r.Skipped),
		Status:      r.Status(),
	}
	if r.Summary != nil {
		out.Created = r.Summary.Created
		out.Updated = r.Summary.Updated
		out.Errors = r.Summary.ErrorCount()
	}
	if runErr != nil {
		out.Status = statusFailed
		out.ErrorMessage = runErr.Error()
	}
	// 取消后仍需写回日志
	if err := c.logs.UpdateImportLog(context.WithoutCancel(ctx), id, out); err != nil {
		log.Printf("[import] 更新导入日志失败: %v", err)
	}
}

// sendProgress 发送进度事件；结束事件阻塞直到被读取或 ctx 结束，其余事件通道满时丢弃
func (c *Coordinator) sendProgress(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	if event.Type == EventDone || event.Type == EventError {
		select {
		case ch <- event:
		case <-ctx.Done():
		}
		return
	}
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
