// Package app 按配置装配存储、导入协调器与状态容器，供 cmd 下的程序共用
package app

import (
	"context"
	"fmt"
	"log"

	"rolmap/internal/api"
	"rolmap/internal/config"
	"rolmap/internal/importer"
	"rolmap/internal/metrics"
	"rolmap/internal/parser"
	"rolmap/internal/state"
	"rolmap/internal/store"
	"rolmap/internal/store/postgres"
)

// DBFileName 本地 SQLite 数据库文件名
const DBFileName = "rolmap.db"

// App 已装配的运行时组件
type App struct {
	Config   *config.AppConfig
	DataDir  string
	Local    *store.Store      // 导入日志与键值配置，SQLite 后端时也保存记录
	Records  api.PropertyStore // 记录存储
	Metrics  *metrics.Metrics
	Importer *importer.Coordinator
	State    *state.Store

	closers []func() error
}

// Open 按配置打开存储并装配组件
func Open(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	policy, err := parser.ParseZeroCoordinatePolicy(cfg.Import.ZeroCoordinates)
	if err != nil {
		return nil, err
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	a := &App{Config: cfg, DataDir: dataDir}

	dbPath := config.GetDataPath(cfg, "", DBFileName)
	local, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.Local = local
	a.closers = append(a.closers, local.Close)
	a.Records = local

	if cfg.Store.Backend == config.BackendPostgres {
		pg, err := postgres.New(ctx, cfg.Store.PostgresURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Records = pg
		log.Printf("[app] 记录存储: postgres")
	} else {
		log.Printf("[app] 记录存储: sqlite %s", dbPath)
	}

	m, err := metrics.New()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Metrics = m

	a.Importer = importer.NewCoordinator(a.Records, local, m, importer.Config{
		ZeroCoordinates:  policy,
		ReplaceThreshold: cfg.Import.ReplaceThreshold,
		MaxReportDetails: cfg.Import.MaxReportDetails,
	})
	a.State = state.NewStore(config.GetDataPath(cfg, "cache", state.CacheFileName))
	return a, nil
}

// Close 按打开的逆序关闭存储
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
