package canvasrenderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/vitrina/layout"
	"github.com/ByLCY/vitrina/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas.
// One canvas millimetre is one output pixel, so font sizes are converted px→pt at the font boundary.
type Renderer struct {
	source renderer.FontSource

	mu    sync.Mutex
	fonts map[layout.FontResource]*loadedFont
	faces map[faceKey]*metricsFace
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Metrics    = (*Renderer)(nil)
)

// loadedFont is a parsed font file with the weight it was registered under.
type loadedFont struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

type faceKey struct {
	font layout.FontResource
	size float64
}

// NewRenderer creates a renderer that resolves relative font paths
// (TIPOGRAFIA/EFE/Poppins-Medium.ttf) against baseDir.
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{
		source: renderer.FontSource{BaseDir: baseDir},
		fonts:  map[layout.FontResource]*loadedFont{},
		faces:  map[faceKey]*metricsFace{},
	}
}

// Face implements layout.Metrics. Faces are cached per font resource and pixel size.
func (r *Renderer) Face(font layout.FontResource, size float64) (layout.Face, error) {
	lf, err := r.load(font)
	if err != nil {
		return nil, err
	}
	key := faceKey{font: font, size: size}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	f := &metricsFace{face: lf.family.Face(toPt(size), canvas.Black, lf.style, canvas.FontNormal)}
	r.faces[key] = f
	return f, nil
}

// metricsFace adapts *canvas.FontFace to layout.Face; widths and metrics come back in mm (= px).
type metricsFace struct {
	mu   sync.Mutex
	face *canvas.FontFace
}

func (f *metricsFace) TextWidth(s string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.TextWidth(s)
}

func (f *metricsFace) Metrics() layout.FontMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.face.Metrics()
	return layout.FontMetrics{Ascent: m.Ascent, Descent: m.Descent, LineHeight: m.LineHeight}
}

// Render composites the background, photos and draw commands and rasterizes at 1 px per mm.
func (r *Renderer) Render(ctx context.Context, result *layout.Result, assets renderer.Assets) (image.Image, []layout.Warning, error) {
	if result == nil {
		return nil, nil, fmt.Errorf("渲染结果为空")
	}
	if !(result.Width > 0) || !(result.Height > 0) {
		return nil, nil, fmt.Errorf("画布尺寸无效: %gx%g", result.Width, result.Height)
	}

	c := canvas.New(result.Width, result.Height)
	dc := canvas.NewContext(c)
	dc.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

	if err := r.drawBackground(ctx, dc, result, assets); err != nil {
		return nil, nil, err
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
			err = r.drawText(dc, result.Fonts, t.X, t.Y, t.Content, t.Font, t.Color)
		case layout.KindGlyph:
			g := cmd.Glyph
			err = r.drawText(dc, result.Fonts, g.X, g.Y, g.Char, g.Font, g.Color)
		case layout.KindRect:
			drawRect(dc, cmd.Rect)
		case layout.KindLine:
			drawLine(dc, cmd.Line)
		case layout.KindImage:
			if w := r.drawPhoto(ctx, dc, cmd.Image, assets); w != nil {
				warnings = append(warnings, *w)
			}
		default:
			err = fmt.Errorf("未知绘制指令 %s", cmd.Kind)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	img := rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
	return img, warnings, nil
}

func (r *Renderer) drawBackground(ctx context.Context, dc *canvas.Context, result *layout.Result, assets renderer.Assets) error {
	if result.Background == "" {
		dc.SetFillColor(canvas.White)
		dc.SetStrokeColor(color.RGBA{0, 0, 0, 0})
		dc.DrawPath(0, 0, canvas.Rectangle(result.Width, result.Height))
		return nil
	}
	if assets == nil {
		return fmt.Errorf("缺少资源提供者，无法加载背景 %s", result.Background)
	}
	bg, err := assets.Background(ctx, result.Background)
	if err != nil {
		return fmt.Errorf("加载背景 %s 失败: %w", result.Background, err)
	}
	dc.DrawImage(0, 0, renderer.FitBackground(bg, result.Width, result.Height), canvas.DPMM(1.0))
	return nil
}

func (r *Renderer) drawText(dc *canvas.Context, fonts map[string]layout.FontResource, x, y float64, content string, ref layout.FontRef, col layout.Color) error {
	if content == "" {
		return nil
	}
	font, ok := fonts[ref.Name]
	if !ok {
		return fmt.Errorf("%w: %s", layout.ErrUnknownFont, ref.Name)
	}
	lf, err := r.load(font)
	if err != nil {
		return err
	}
	face := lf.family.Face(toPt(ref.Size), colorFromLayout(col), lf.style, canvas.FontNormal)
	dc.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	dc.DrawText(x, y, canvas.NewTextLine(face, content, canvas.Left))
	return nil
}

// drawPhoto 加载并粘贴商品图；失败时返回警告而不是错误。
func (r *Renderer) drawPhoto(ctx context.Context, dc *canvas.Context, cmd *layout.ImageCommand, assets renderer.Assets) *layout.Warning {
	if assets == nil {
		return &layout.Warning{Kind: layout.WarnPhoto, Record: cmd.Record, Field: "photo", Detail: "缺少资源提供者"}
	}
	img, err := assets.Photo(ctx, cmd.Ref)
	if err != nil {
		return &layout.Warning{Kind: layout.WarnPhoto, Record: cmd.Record, Field: "photo", Detail: err.Error()}
	}
	img = renderer.FitPhoto(img, cmd.MaxWidth, cmd.MaxHeight)
	x, y := renderer.PhotoOrigin(cmd, img)
	dc.DrawImage(x, y, img, canvas.DPMM(1.0))
	return nil
}

func drawRect(dc *canvas.Context, rc *layout.RectCommand) {
	if rc.Fill != nil {
		dc.SetFillColor(colorFromLayout(*rc.Fill))
	} else {
		dc.SetFillColor(color.RGBA{0, 0, 0, 0})
	}
	if rc.Stroke != nil {
		dc.SetStrokeColor(colorFromLayout(*rc.Stroke))
		dc.SetStrokeWidth(rc.StrokeWidth)
	} else {
		dc.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	}
	w, h := rc.Box.Width(), rc.Box.Height()
	path := canvas.Rectangle(w, h)
	if rc.Radius > 0 {
		path = canvas.RoundedRectangle(w, h, rc.Radius)
	}
	dc.DrawPath(rc.Box.XStart, rc.Box.YStart, path)
}

// drawLine 绘制线段集合（点线由多段组成）。
func drawLine(dc *canvas.Context, ln *layout.LineCommand) {
	if len(ln.Segments) == 0 {
		return
	}
	dc.SetFillColor(color.RGBA{0, 0, 0, 0})
	dc.SetStrokeColor(colorFromLayout(ln.Color))
	dc.SetStrokeWidth(ln.Width)
	p := &canvas.Path{}
	for _, s := range ln.Segments {
		p.MoveTo(s.From.X, s.From.Y)
		p.LineTo(s.To.X, s.To.Y)
	}
	dc.DrawPath(0, 0, p)
}

func (r *Renderer) load(font layout.FontResource) (*loadedFont, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lf, ok := r.fonts[font]; ok {
		return lf, nil
	}

	data, src, err := r.source.Load(font)
	if err != nil {
		return nil, err
	}
	lf := &loadedFont{family: canvas.NewFontFamily(font.Name), style: fontStyle(font.Style)}
	if err := lf.family.LoadFont(data, 0, lf.style); err != nil {
		return nil, fmt.Errorf("解析字体 %s (%s) 失败: %w", font.Name, src, err)
	}
	r.fonts[font] = lf
	return lf, nil
}

// weights is ordered so "extrabold" and "semibold" match before "bold".
var weights = []struct {
	names []string
	style canvas.FontStyle
}{
	{[]string{"black", "heavy"}, canvas.FontBlack},
	{[]string{"extrabold", "ultrabold"}, canvas.FontExtraBold},
	{[]string{"semibold", "demibold"}, canvas.FontSemiBold},
	{[]string{"bold"}, canvas.FontBold},
	{[]string{"medium"}, canvas.FontMedium},
	{[]string{"extralight", "light", "thin"}, canvas.FontLight},
}

// fontStyle maps a free-form style such as "SemiBold Italic" to a canvas style.
func fontStyle(name string) canvas.FontStyle {
	s := strings.ToLower(name)
	style := canvas.FontRegular
match:
	for _, w := range weights {
		for _, n := range w.names {
			if strings.Contains(s, n) {
				style = w.style
				break match
			}
		}
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		style |= canvas.FontItalic
	}
	return style
}

func colorFromLayout(c layout.Color) color.Color {
	return color.RGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 0xff}
}

// toPt 将像素（= 画布毫米）转换为点(pt)。
func toPt(px float64) float64 { return px * layout.MmToPt }
