// Package logging 构建带模块字段的 logrus 日志器，可选写入按大小轮转的日志文件。
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options 配置日志输出。
type Options struct {
	Level     string // debug/info/warn/error，默认 info
	File      string // 为空时只写标准输出
	MaxSizeMB int    // 单个日志文件上限，默认 10
	Color     bool
	Output    io.Writer // 默认 os.Stdout
}

// Formatter 输出 `[LEVEL timestamp] [module] message key=value`。
type Formatter struct {
	Color bool
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format("2006-01-02 15:04:05")

	var levelColor, levelText string
	switch entry.Level {
	case logrus.InfoLevel:
		levelColor, levelText = "\033[36m", " INFO"
	case logrus.WarnLevel:
		levelColor, levelText = "\033[33m", " WARN"
	case logrus.ErrorLevel:
		levelColor, levelText = "\033[31m", "ERROR"
	case logrus.DebugLevel:
		levelColor, levelText = "\033[37m", "DEBUG"
	default:
		levelColor, levelText = "\033[0m", strings.ToUpper(entry.Level.String())
	}
	if f.Color {
		levelText = levelColor + levelText + "\033[0m"
	}

	module := "main"
	if v, ok := entry.Data["module"].(string); ok {
		module = v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s %s] [%8s] %s", levelText, timestamp, module, entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		if k == "module" {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New 创建日志器。返回的 io.Closer 用于关闭日志文件，没有文件时为空操作。
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("日志级别无效: %w", err)
		}
		level = parsed
	}

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		size := opts.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    size,
			MaxBackups: 3,
			MaxAge:     28,
		}
		out = io.MultiWriter(out, lj)
		closer = lj
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&Formatter{Color: opts.Color})
	return logger, closer, nil
}

// Module 返回带 module 字段的日志条目。
func Module(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("module", name)
}

// Discard 返回丢弃所有输出的日志条目，供测试与库默认值使用。
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("module", "discard")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
