package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ByLCY/vitrina/fonts"
	"github.com/ByLCY/vitrina/layout"
)

// FontSource 读取字体文件：先 Src，失败时退回 Fallback。
// 相对路径以 BaseDir 为根；"embed:" 前缀指向内置字体。
type FontSource struct {
	BaseDir string
}

// Load 返回字体字节以及实际使用的来源。
func (s FontSource) Load(font layout.FontResource) ([]byte, string, error) {
	var errs []error
	for _, src := range []string{font.Src, font.Fallback} {
		if src == "" {
			continue
		}
		data, err := s.read(src)
		if err == nil {
			return data, src, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, "", fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	return nil, "", fmt.Errorf("字体 %s 无法加载: %w", font.Name, errors.Join(errs...))
}

func (s FontSource) read(src string) ([]byte, error) {
	if fonts.IsEmbedded(src) {
		return fonts.Load(src)
	}
	path := src
	if !filepath.IsAbs(path) {
		if s.BaseDir == "" {
			return nil, fmt.Errorf("未指定资源目录时不允许使用相对字体路径：%s", src)
		}
		path = filepath.Join(s.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体 %s 失败: %w", src, err)
	}
	return data, nil
}
