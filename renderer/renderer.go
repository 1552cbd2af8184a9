package renderer

import (
	"context"
	"image"

	"github.com/ByLCY/vitrina/layout"
)

// Renderer 将布局结果合成为位图。
// 它同时是布局阶段的度量提供者，保证测量与绘制使用同一套字体。
type Renderer interface {
	layout.Metrics
	Render(ctx context.Context, result *layout.Result, assets Assets) (image.Image, []layout.Warning, error)
}

// Assets 提供背景与商品图。背景缺失是致命错误；商品图失败只产生警告。
type Assets interface {
	Background(ctx context.Context, ref string) (image.Image, error)
	Photo(ctx context.Context, ref string) (image.Image, error)
}
