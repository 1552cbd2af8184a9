package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ByLCY/vitrina/assets"
	"github.com/ByLCY/vitrina/batch"
	"github.com/ByLCY/vitrina/catalog"
	"github.com/ByLCY/vitrina/config"
	"github.com/ByLCY/vitrina/ledger"
	"github.com/ByLCY/vitrina/logging"
	"github.com/ByLCY/vitrina/renderer"
	canvasrenderer "github.com/ByLCY/vitrina/renderer/canvas"
	rasterrenderer "github.com/ByLCY/vitrina/renderer/raster"
	"github.com/ByLCY/vitrina/source"
)

func main() {
	cfgPath := flag.String("config", "vitrina.toml", "运行配置 TOML 路径")
	input := flag.String("in", "", "商品 CSV 路径（覆盖配置）")
	catalogs := flag.String("catalogs", "", "模板文件 glob（覆盖配置）")
	output := flag.String("out", "", "输出目录（覆盖配置）")
	backend := flag.String("backend", "", "渲染后端 canvas 或 raster（覆盖配置）")
	workers := flag.Int("workers", 0, "并发数（覆盖配置）")
	debug := flag.Bool("debug", false, "在图片旁写出布局调试 JSON")
	dryRun := flag.Bool("dry-run", false, "只列出将要生成的任务")
	list := flag.Bool("list", false, "列出模板后退出")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(2)
	}
	override(&cfg.Input, *input)
	override(&cfg.Catalogs, *catalogs)
	override(&cfg.Output.Dir, *output)
	override(&cfg.Render.Backend, *backend)
	if *workers > 0 {
		cfg.Render.Workers = *workers
	}
	if *debug {
		cfg.Output.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "配置无效: %v\n", err)
		os.Exit(2)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Color:     cfg.Log.Color,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(2)
	}
	defer closer.Close()
	log := logging.Module(logger, "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, runFlags{dryRun: *dryRun, list: *list}, os.Stdout); err != nil {
		log.Errorf("生成失败: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

type runFlags struct {
	dryRun bool
	list   bool
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// run 串联模板、数据源、渲染与登记。
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, flags runFlags, stdout io.Writer) error {
	log := logging.Module(logger, "main")

	cat, err := catalog.LoadGlob(cfg.Catalogs)
	if err != nil {
		return fmt.Errorf("加载模板失败: %w", err)
	}
	log.WithField("templates", cat.Len()).Infof("已加载模板 %s", cat.Name)
	if flags.list {
		for _, k := range cat.Keys() {
			fmt.Fprintln(stdout, k)
		}
		return nil
	}

	rows, err := source.ReadFile(cfg.Input, cfg.Columns)
	if err != nil {
		return fmt.Errorf("读取商品表失败: %w", err)
	}
	jobs, skips := batch.Plan(rows, cfg.Ledger.Brand)
	for _, s := range skips {
		log.WithField("line", s.Line).Debug(s.Reason)
	}
	log.WithField("rows", len(rows)).WithField("jobs", len(jobs)).WithField("skipped", len(skips)).Info("任务规划完成")
	if flags.dryRun {
		for _, j := range jobs {
			fmt.Fprintf(stdout, "%s\t%s\t%d\n", j.LedgerKey, j.Key, len(j.Records))
		}
		return nil
	}

	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("打开登记表失败: %w", err)
	}
	log.WithField("entries", led.Len()).Debug("登记表已加载")
	format, err := renderer.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	runner := &batch.Runner{
		Templates: cat,
		Renderer:  newRenderer(cfg.Render.Backend, cfg.Assets),
		Assets: assets.New(assets.Options{
			Root:      cfg.Assets,
			RetryMax:  cfg.Fetch.RetryMax,
			Timeout:   cfg.Fetch.Timeout.Duration,
			UserAgent: cfg.Fetch.UserAgent,
			Logger:    logging.Module(logger, "assets"),
		}),
		Ledger: led,
		Options: batch.Options{
			OutDir:        cfg.Output.Dir,
			Format:        format,
			Quality:       cfg.Output.Quality,
			URLBase:       cfg.Output.URLBase,
			Workers:       cfg.Render.Workers,
			Debug:         cfg.Output.Debug,
			AllowEstimate: cfg.Render.AllowEstimate,
			Brand:         cfg.Ledger.Brand,
			Location:      cfg.Location(),
		},
		Log: logging.Module(logger, "batch"),
	}
	sum, err := runner.Run(ctx, jobs)
	log.WithField("rendered", sum.Rendered).WithField("existing", sum.Existing).WithField("failed", sum.Failed).Info("批量生成结束")
	if err != nil {
		return err
	}
	return sum.Err()
}

func newRenderer(backend, baseDir string) renderer.Renderer {
	if backend == "raster" {
		return rasterrenderer.NewRenderer(baseDir)
	}
	return canvasrenderer.NewRenderer(baseDir)
}
