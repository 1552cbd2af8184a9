// Package config 读取批量生成的运行配置（TOML）。未出现在文件中的项保留默认值。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/vitrina/renderer"
	"github.com/ByLCY/vitrina/source"
)

// Config 是一次批量运行的全部配置。相对路径以配置文件所在目录为基准。
type Config struct {
	Catalogs string         `toml:"catalogs"` // 模板文件 glob，支持 **
	Input    string         `toml:"input"`    // 商品 CSV
	Assets   string         `toml:"assets"`   // 资源根目录（FONDOS、TIPOGRAFIA、本地商品图）
	Output   OutputConfig   `toml:"output"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Render   RenderConfig   `toml:"render"`
	Fetch    FetchConfig    `toml:"fetch"`
	Log      LogConfig      `toml:"log"`
	Columns  source.Columns `toml:"columns"`
}

type OutputConfig struct {
	Dir     string `toml:"dir"`
	Format  string `toml:"format"`  // jpg 或 png
	Quality int    `toml:"quality"` // JPEG 质量
	URLBase string `toml:"url_base"`
	Debug   bool   `toml:"debug"` // 同时写出布局 JSON
}

type LedgerConfig struct {
	Path  string `toml:"path"`
	Brand string `toml:"brand"` // 登记行与键的品牌后缀
	// UTCOffset 是登记时间相对 UTC 的小时偏移，默认 -5（利马）。
	UTCOffset int `toml:"utc_offset"`
}

type RenderConfig struct {
	Backend       string `toml:"backend"` // canvas 或 raster
	Workers       int    `toml:"workers"`
	AllowEstimate bool   `toml:"allow_estimate"`
}

type FetchConfig struct {
	RetryMax  int      `toml:"retry_max"`
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	Color     bool   `toml:"color"`
}

// Duration 以 "10s" 形式的字符串出现在 TOML 中。
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		Catalogs: "catalogs/**/*.catalog",
		Input:    "productos.csv",
		Assets:   ".",
		Output: OutputConfig{
			Dir:     "output",
			Format:  string(renderer.FormatJPEG),
			Quality: 95,
		},
		Ledger: LedgerConfig{
			Path:      "output/ledger.csv",
			Brand:     "EFE",
			UTCOffset: -5,
		},
		Render: RenderConfig{
			Backend: "canvas",
			Workers: 4,
		},
		Fetch: FetchConfig{
			RetryMax:  2,
			Timeout:   Duration{10 * time.Second},
			UserAgent: "Mozilla/5.0",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
		Columns: source.DefaultColumns(),
	}
}

// Load 读取 path；文件不存在时返回默认配置并以当前目录为基准。
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if err := Parse(string(data), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse 将 TOML 文本合并到 cfg 并校验。
func Parse(data string, cfg *Config) error {
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("未知配置项: %s", strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	var errs []error
	if _, err := renderer.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		errs = append(errs, fmt.Errorf("output.quality 应在 1-100 之间: %d", c.Output.Quality))
	}
	switch c.Render.Backend {
	case "canvas", "raster":
	default:
		errs = append(errs, fmt.Errorf("render.backend 只能是 canvas 或 raster: %q", c.Render.Backend))
	}
	if c.Render.Workers < 1 {
		errs = append(errs, fmt.Errorf("render.workers 至少为 1: %d", c.Render.Workers))
	}
	if c.Ledger.UTCOffset < -12 || c.Ledger.UTCOffset > 14 {
		errs = append(errs, fmt.Errorf("ledger.utc_offset 超出范围: %d", c.Ledger.UTCOffset))
	}
	return errors.Join(errs...)
}

// Location 返回登记时间使用的固定时区。
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.Ledger.UTCOffset), c.Ledger.UTCOffset*3600)
}

func (c *Config) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Catalogs = abs(c.Catalogs)
	c.Input = abs(c.Input)
	c.Assets = abs(c.Assets)
	c.Output.Dir = abs(c.Output.Dir)
	c.Ledger.Path = abs(c.Ledger.Path)
	c.Log.File = abs(c.Log.File)
}
