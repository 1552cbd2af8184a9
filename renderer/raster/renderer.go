// Package rasterrenderer composites layout results with github.com/fogleman/gg and measures text with
// golang.org/x/image/font/opentype faces. It is the lighter alternative to the tdewolff/canvas backend.
package rasterrenderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/vitrina/layout"
	"github.com/ByLCY/vitrina/renderer"
)

// Renderer 使用 gg 绘制；字体与字面按 (资源, 字号) 缓存，可被多个 goroutine 共享。
type Renderer struct {
	source renderer.FontSource

	mu    sync.Mutex
	fonts map[string]*opentype.Font
	faces map[faceKey]*face
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Metrics    = (*Renderer)(nil)
)

type faceKey struct {
	font string
	size float64
}

// NewRenderer 创建以 baseDir 解析相对字体路径的渲染器。
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{
		source: renderer.FontSource{BaseDir: baseDir},
		fonts:  map[string]*opentype.Font{},
		faces:  map[faceKey]*face{},
	}
}

// face 包装 font.Face；opentype 字面内部有可变缓冲区，所有访问都需持锁。
type face struct {
	mu sync.Mutex
	f  font.Face
}

func (f *face) TextWidth(s string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fixedToFloat(font.MeasureString(f.f, s))
}

func (f *face) Metrics() layout.FontMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.f.Metrics()
	return layout.FontMetrics{
		Ascent:     fixedToFloat(m.Ascent),
		Descent:    fixedToFloat(m.Descent),
		LineHeight: fixedToFloat(m.Height),
	}
}

// Face 实现 layout.Metrics。DPI 取 72，使字号（点）与像素一一对应。
func (r *Renderer) Face(res layout.FontResource, size float64) (layout.Face, error) {
	f, err := r.face(res, size)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *Renderer) face(res layout.FontResource, size float64) (*face, error) {
	key := faceKey{font: fontKey(res), size: size}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	parsed, ok := r.fonts[key.font]
	if !ok {
		data, src, err := r.source.Load(res)
		if err != nil {
			return nil, err
		}
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("解析字体 %s (%s) 失败: %w", res.Name, src, err)
		}
		r.fonts[key.font] = parsed
	}
	ff, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("创建字体 %s 字面失败: %w", res.Name, err)
	}
	f := &face{f: ff}
	r.faces[key] = f
	return f, nil
}

// Render 依次绘制背景、指令与商品图，返回位图。
func (r *Renderer) Render(ctx context.Context, result *layout.Result, assets renderer.Assets) (image.Image, []layout.Warning, error) {
	if result == nil {
		return nil, nil, fmt.Errorf("渲染结果为空")
	}
	w, h := int(math.Round(result.Width)), int(math.Round(result.Height))
	if w <= 0 || h <= 0 {
		return nil, nil, fmt.Errorf("画布尺寸无效: %gx%g", result.Width, result.Height)
	}
	dc := gg.NewContext(w, h)

	if result.Background == "" {
		dc.SetColor(color.White)
		dc.Clear()
	} else {
		if assets == nil {
			return nil, nil, fmt.Errorf("缺少资源提供者，无法加载背景 %s", result.Background)
		}
		bg, err := assets.Background(ctx, result.Background)
		if err != nil {
			return nil, nil, fmt.Errorf("加载背景 %s 失败: %w", result.Background, err)
		}
		dc.DrawImage(renderer.FitBackground(bg, result.Width, result.Height), 0, 0)
	}

	var warnings []layout.Warning
	for _, cmd := range result.Commands {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		var err error
		switch cmd.Kind {
		case layout.KindText:
			t := cmd.Text
			err = r.drawString(dc, result.Fonts, t.Content, t.X, t.Y, t.Font, t.Color)
		case layout.KindGlyph:
			g := cmd.Glyph
			err = r.drawString(dc, result.Fonts, g.Char, g.X, g.Y, g.Font, g.Color)
		case layout.KindRect:
			drawRect(dc, cmd.Rect)
		case layout.KindLine:
			drawLine(dc, cmd.Line)
		case layout.KindImage:
			img, perr := photo(ctx, assets, cmd.Image.Ref)
			if perr != nil {
				warnings = append(warnings, layout.Warning{Kind: layout.WarnPhoto, Record: cmd.Image.Record, Field: "photo", Detail: perr.Error()})
				continue
			}
			img = renderer.FitPhoto(img, cmd.Image.MaxWidth, cmd.Image.MaxHeight)
			x, y := renderer.PhotoOrigin(cmd.Image, img)
			dc.DrawImage(img, int(x), int(y))
		default:
			err = fmt.Errorf("未知绘制指令 %s", cmd.Kind)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return dc.Image(), warnings, nil
}

func photo(ctx context.Context, assets renderer.Assets, ref string) (image.Image, error) {
	if assets == nil {
		return nil, fmt.Errorf("缺少资源提供者")
	}
	return assets.Photo(ctx, ref)
}

func (r *Renderer) drawString(dc *gg.Context, fonts map[string]layout.FontResource, s string, x, y float64, ref layout.FontRef, col layout.Color) error {
	if s == "" {
		return nil
	}
	res, ok := fonts[ref.Name]
	if !ok {
		return fmt.Errorf("%w: %s", layout.ErrUnknownFont, ref.Name)
	}
	f, err := r.face(res, ref.Size)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dc.SetFontFace(f.f)
	dc.SetColor(toColor(col))
	dc.DrawString(s, x, y)
	return nil
}

func drawRect(dc *gg.Context, rc *layout.RectCommand) {
	b := rc.Box
	if rc.Radius > 0 {
		dc.DrawRoundedRectangle(b.XStart, b.YStart, b.Width(), b.Height(), rc.Radius)
	} else {
		dc.DrawRectangle(b.XStart, b.YStart, b.Width(), b.Height())
	}
	switch {
	case rc.Fill != nil && rc.Stroke != nil:
		dc.SetColor(toColor(*rc.Fill))
		dc.FillPreserve()
		dc.SetColor(toColor(*rc.Stroke))
		dc.SetLineWidth(rc.StrokeWidth)
		dc.Stroke()
	case rc.Fill != nil:
		dc.SetColor(toColor(*rc.Fill))
		dc.Fill()
	case rc.Stroke != nil:
		dc.SetColor(toColor(*rc.Stroke))
		dc.SetLineWidth(rc.StrokeWidth)
		dc.Stroke()
	default:
		dc.ClearPath()
	}
}

func drawLine(dc *gg.Context, ln *layout.LineCommand) {
	if len(ln.Segments) == 0 {
		return
	}
	dc.SetColor(toColor(ln.Color))
	dc.SetLineWidth(ln.Width)
	for _, s := range ln.Segments {
		dc.DrawLine(s.From.X, s.From.Y, s.To.X, s.To.Y)
	}
	dc.Stroke()
}

func toColor(c layout.Color) color.Color {
	return color.RGBA{uint8(c.R), uint8(c.G), uint8(c.B), 255}
}

func fontKey(res layout.FontResource) string {
	return res.Name + "|" + res.Src + "|" + res.Fallback
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
