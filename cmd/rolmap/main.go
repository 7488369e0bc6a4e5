package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rolmap/internal/api"
	"rolmap/internal/app"
	"rolmap/internal/config"
	"rolmap/internal/server"
)

var (
	configPath = flag.String("config", "", "配置文件路径 (默认为可执行文件同目录下的 config.toml)")
	port       = flag.Int("port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	devMode    = flag.Bool("dev", false, "开发模式")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
)

func main() {
	flag.Parse()

	fmt.Println("==========================================")
	fmt.Println("  Rolmap - Registro de avalúos de Arica")
	fmt.Println("==========================================")

	cfg, info, err := loadConfig()
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	// 命令行参数覆盖配置
	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	defer a.Close()
	fmt.Printf("数据目录: %s\n", a.DataDir)

	handler := api.NewHandler(api.Deps{
		Records:  a.Records,
		Local:    a.Local,
		State:    a.State,
		Importer: a.Importer,
		Metrics:  a.Metrics,
		Config:   cfg,
	})
	if err := handler.SyncState(ctx); err != nil {
		log.Printf("加载记录失败，使用本地缓存: %v", err)
	}

	srv := server.NewServer(cfg, handler, a.Metrics)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		return srv.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\n正在关闭服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Println("按 Ctrl+C 停止服务...")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("服务异常退出: %v", err)
		a.Close()
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	if *configPath != "" {
		return config.LoadConfigFrom(*configPath)
	}
	return config.LoadConfigWithInfo()
}
