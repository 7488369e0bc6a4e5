// rolimport 命令行导入/导出工具，直接操作配置的记录存储
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"rolmap/internal/app"
	"rolmap/internal/config"
	"rolmap/internal/exporter"
	"rolmap/internal/importer"
	"rolmap/internal/model"
)

const usage = `uso:
  rolimport import [-mode update|replace] [-confirm] archivo.xlsx
  rolimport export [-image] [-o propiedades_arica.xlsx]
  rolimport init-config [-o config.toml]

opciones globales (antes del subcomando):
`

var (
	configPath = flag.String("config", "", "配置文件路径 (默认为可执行文件同目录下的 config.toml)")
	dataDir    = flag.String("dataDir", "", "数据目录 (覆盖配置文件)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "import":
		err = runImport(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "init-config":
		err = runInitConfig(args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if *configPath != "" {
		cfg, _, err = config.LoadConfigFrom(*configPath)
	} else {
		cfg, _, err = config.LoadConfigWithInfo()
	}
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}
	return cfg, nil
}

func newProgressBar(total int, prefix string) *pb.ProgressBar {
	bar := pb.Full.Start(total)
	bar.Set("prefix", prefix)
	bar.Set(pb.CleanOnFinish, true)
	return bar
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	modeFlag := fs.String("mode", string(model.ModeUpdate), "update | replace")
	confirm := fs.Bool("confirm", false, "confirmar el reemplazo de todos los registros")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("se requiere exactamente un archivo")
	}
	path := fs.Arg(0)

	mode, ok := model.ParseImportMode(*modeFlag)
	if !ok {
		return fmt.Errorf("modo de importación inválido: %q", *modeFlag)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Importando %s (%s, modo %s)\n", filepath.Base(path), humanize.Bytes(uint64(info.Size())), mode)

	// 阶段：读取 -> 校验 -> 对账
	bar := newProgressBar(3, "importación ")
	var warnings []string
	report, err := a.Importer.ImportSyncWithProgress(ctx, importer.ImportOptions{
		FilePath:       path,
		Mode:           mode,
		ConfirmReplace: *confirm,
	}, func(ev importer.ProgressEvent) {
		switch ev.Type {
		case importer.EventStart, importer.EventInfo, importer.EventDone:
			bar.Increment()
		case importer.EventWarning:
			warnings = append(warnings, ev.Message)
		}
	})
	bar.Finish()

	for _, w := range warnings {
		fmt.Println("aviso:", w)
	}
	if report == nil {
		return err
	}

	fmt.Println(report.Message(cfg.Import.MaxReportDetails))
	fmt.Printf("Filas leídas: %s, omitidas: %s, tiempo: %s\n",
		humanize.Comma(int64(report.TotalRows)),
		humanize.Comma(int64(len(report.Skipped))),
		report.Duration.Round(time.Millisecond))
	return err
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", exporter.DefaultFilename, "archivo de salida")
	image := fs.Bool("image", false, "incluir la columna Imagen")
	_ = fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	props, err := a.Records.GetAll(ctx)
	if err != nil {
		return err
	}

	bar := newProgressBar(100, "exportación ")
	f, err := exporter.NewExporter().Export(props, exporter.Options{
		IncludeImage: *image,
		Progress: func(p exporter.ProgressEvent) {
			bar.SetCurrent(int64(p.Percent))
		},
	})
	bar.Finish()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(*out); err != nil {
		return fmt.Errorf("failed to save %s: %w", *out, err)
	}
	if st, err := os.Stat(*out); err == nil {
		fmt.Printf("%s propiedades exportadas a %s (%s)\n",
			humanize.Comma(int64(len(props))), *out, humanize.Bytes(uint64(st.Size())))
	}
	return nil
}

func runInitConfig(args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ExitOnError)
	out := fs.String("o", "config.toml", "archivo de configuración")
	_ = fs.Parse(args)

	if _, err := os.Stat(*out); err == nil {
		return fmt.Errorf("%s ya existe", *out)
	}
	if err := config.SaveConfig(config.DefaultConfig(), *out); err != nil {
		return err
	}
	fmt.Println("Configuración escrita en", *out)
	return nil
}
