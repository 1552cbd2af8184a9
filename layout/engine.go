package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ByLCY/vitrina/binding"
)

// Render 将商品记录按模板转换为有序的绘制指令。
// 单品模板只使用第一条记录；网格模板为每条记录分配一个单元格（最多 MaxGridItems 个）。
// 所有配置错误（区域退化、字体缺失、网格放不下）都在输出任何指令之前返回；
// 记录层面的问题（字段缺失、溢出）被吸收为 Result.Warnings。
func Render(records []ProductRecord, spec *TemplateSpec, opts RenderOptions) (*Result, error) {
	if spec == nil {
		return nil, configErr("render", errors.New("模板为空"))
	}
	if len(records) == 0 {
		return nil, configErr("render", ErrNoRecords)
	}
	if !(spec.Width > 0) || !(spec.Height > 0) {
		return nil, configErr("canvas", fmt.Errorf("%w: %gx%g", ErrDegenerateRegion, spec.Width, spec.Height))
	}
	m, err := opts.metrics()
	if err != nil {
		return nil, configErr("metrics", err)
	}

	e := &engine{spec: spec, metrics: m, faces: map[FontRef]Face{}}
	if err := e.prepare(len(records)); err != nil {
		return nil, err
	}

	res := &Result{
		Key:        spec.Key,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: spec.Background,
		Fonts:      spec.Fonts,
	}
	if spec.IsGrid() {
		e.emitGrid(records)
	} else {
		if len(records) > 1 {
			e.warn(WarnOverflow, 1, "", fmt.Sprintf("单品模板只渲染第一条记录，忽略 %d 条", len(records)-1))
		}
		e.emitSingle(records[0])
	}
	if spec.Legal != nil {
		e.emitLegal(records[0])
	}
	res.Commands = e.cmds
	res.Warnings = e.warnings
	return res, nil
}

type engine struct {
	spec     *TemplateSpec
	metrics  Metrics
	faces    map[FontRef]Face
	grid     Grid
	cmds     []DrawCommand
	warnings []Warning
}

// prepare 是第一阶段：校验区域、分配网格、解析全部字体。
func (e *engine) prepare(count int) error {
	s := e.spec
	for _, f := range s.Fields {
		if err := e.resolve(f.Font); err != nil {
			return err
		}
	}
	if s.Price != nil {
		if err := e.resolvePrice(s.Price); err != nil {
			return err
		}
	}
	if s.Legal != nil {
		if err := s.Legal.Region.Validate(); err != nil {
			return configErr("legal", err)
		}
		if err := e.resolve(s.Legal.Font); err != nil {
			return err
		}
		if s.Legal.Bold.Name != "" {
			if err := e.resolve(s.Legal.Bold); err != nil {
				return err
			}
		}
	}
	if s.Grid == nil {
		return nil
	}

	if count > MaxGridItems {
		count = MaxGridItems
	}
	g, err := Allocate(count, s.Grid.Region, *s.Grid)
	if err != nil {
		return err
	}
	e.grid = g
	for _, f := range s.Grid.Cell.Fields {
		if err := e.resolve(f.Font); err != nil {
			return err
		}
	}
	if s.Grid.Cell.Price != nil {
		if err := e.resolvePrice(s.Grid.Cell.Price); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) resolvePrice(p *PriceSpec) error {
	if err := e.resolve(p.NumeralFont); err != nil {
		return err
	}
	if p.Symbol != "" {
		return e.resolve(p.SymbolFont)
	}
	return nil
}

func (e *engine) resolve(ref FontRef) error {
	if _, ok := e.faces[ref]; ok {
		return nil
	}
	res, ok := e.spec.Fonts[ref.Name]
	if !ok {
		return configErr("font", fmt.Errorf("%w: %s", ErrUnknownFont, ref.Name))
	}
	if !(ref.Size > 0) {
		return configErr("font", fmt.Errorf("字体 %s 的字号无效: %g", ref.Name, ref.Size))
	}
	face, err := e.metrics.Face(res, ref.Size)
	if err != nil {
		return configErr("font", fmt.Errorf("加载字体 %s 失败: %w", ref.Name, err))
	}
	e.faces[ref] = face
	return nil
}

// face 只在 prepare 成功后调用。
func (e *engine) face(ref FontRef) Face { return e.faces[ref] }

func (e *engine) warn(kind WarningKind, record int, field, detail string) {
	e.warnings = append(e.warnings, Warning{Kind: kind, Record: record, Field: field, Detail: detail})
}

func (e *engine) emit(cmds ...DrawCommand) { e.cmds = append(e.cmds, cmds...) }

func (e *engine) emitSingle(rec ProductRecord) {
	s := e.spec
	canvas := Region{XStart: 0, YStart: 0, XEnd: s.Width, YEnd: s.Height}
	if s.Photo != nil {
		e.emitPhoto(*s.Photo, canvas, rec, 0, 0, 0)
	}
	e.emitFields(s.Fields, canvas, rec, 0)
	if s.Price != nil {
		e.emitPrice(*s.Price, canvas, rec, 0, 0)
	}
}

func (e *engine) emitGrid(records []ProductRecord) {
	s := e.spec
	canvas := Region{XStart: 0, YStart: 0, XEnd: s.Width, YEnd: s.Height}
	// 模板级字段（例如传单日期）使用第一条记录。
	e.emitFields(s.Fields, canvas, records[0], 0)

	if len(records) > MaxGridItems {
		e.warn(WarnOverflow, MaxGridItems, "", fmt.Sprintf("网格最多 %d 个商品，忽略 %d 条", MaxGridItems, len(records)-MaxGridItems))
	}
	tier := e.grid.Tier
	cell := s.Grid.Cell
	for _, c := range e.grid.Cells {
		rec := records[c.Index]
		if cell.Photo != nil {
			e.emitPhoto(*cell.Photo, c.Box, rec, c.Index, tier.PhotoWidth, tier.PhotoHeight)
		}
		e.emitFields(cell.Fields, c.Box, rec, c.Index)
		if cell.Price != nil {
			e.emitPrice(*cell.Price, c.Box, rec, c.Index, tier.BadgeScale)
		}
	}
	e.emit(dividerCommands(e.grid, len(e.grid.Cells), *s.Grid)...)
}

func (e *engine) emitPhoto(p PhotoSpec, origin Region, rec ProductRecord, idx int, maxW, maxH float64) {
	if strings.TrimSpace(rec.Photo) == "" {
		e.warn(WarnMissingField, idx, "photo", "记录没有图片")
		return
	}
	if maxW <= 0 {
		maxW = p.MaxWidth
	}
	if maxH <= 0 {
		maxH = p.MaxHeight
	}
	e.emit(DrawCommand{Kind: KindImage, Image: &ImageCommand{
		Ref:       rec.Photo,
		Record:    idx,
		X:         origin.XStart + p.X,
		Y:         origin.YStart + p.Y,
		MaxWidth:  maxW,
		MaxHeight: maxH,
		Align:     p.Align,
	}})
}

// emitFields 依次输出字段；After 引用的字段必须出现在它之前。
func (e *engine) emitFields(fields []FieldSpec, origin Region, rec ProductRecord, idx int) {
	baselines := map[string]float64{}
	values := rec.Values()
	for _, f := range fields {
		text, missing := binding.Resolve(f.Text, values)
		if len(missing) > 0 {
			e.warn(WarnMissingField, idx, f.ID, "缺少 "+strings.Join(missing, ", "))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			e.warn(WarnMissingField, idx, f.ID, "内容为空")
			continue
		}
		if f.Upper {
			text = strings.ToUpper(text)
		}
		if f.MaxChars > 0 {
			if r := []rune(text); len(r) > f.MaxChars {
				text = strings.TrimSpace(string(r[:f.MaxChars]))
			}
		}

		x := origin.XStart + f.X
		y := origin.YStart + f.Y
		if f.Bottom {
			y = origin.YEnd - f.Y
		}
		if f.After != "" {
			if prev, ok := baselines[f.After]; ok {
				y = prev + f.Y
			}
		}

		last := e.emitField(f, text, x, y, idx)
		if f.ID != "" {
			baselines[f.ID] = last
		}
	}
}

// emitField 输出单个字段并返回最后一行的参考 y（与 f.Anchor 同义）。
func (e *engine) emitField(f FieldSpec, text string, x, y float64, idx int) float64 {
	face := e.face(f.Font)
	if f.Pill != nil {
		e.emit(pillCommands(f, text, x, y, face)...)
		return y
	}

	lines := []string{text}
	advance := 0.0
	if f.Wrap != nil && f.Wrap.Width > 0 {
		lines = wrapPlain(text, face, f.Wrap.Width)
		if f.Wrap.MaxLines > 0 && len(lines) > f.Wrap.MaxLines {
			e.warn(WarnOverflow, idx, f.ID, fmt.Sprintf("折行 %d 行，截断为 %d 行", len(lines), f.Wrap.MaxLines))
			lines = lines[:f.Wrap.MaxLines]
		}
		advance = f.Wrap.Advance
		if advance <= 0 {
			advance = face.Metrics().LineHeight
		}
	}

	ly := y
	for i, ln := range lines {
		if i > 0 {
			ly += advance
		}
		w := face.TextWidth(ln)
		tx, baseline := anchorText(f.Anchor, x, ly, w, face)
		e.emit(textCmd(tx, baseline, ln, f.Font, f.Color, w))
	}
	return ly
}

// anchorText 将 (x, y) 按锚点换算成左侧基线。
func anchorText(a Anchor, x, y, width float64, face Face) (float64, float64) {
	switch a {
	case AnchorMiddle:
		return x - width/2, middleBaseline(y, face)
	case AnchorTop:
		return x, y + face.Metrics().Ascent
	default:
		return x, y
	}
}

// pillCommands 绘制贴合文本宽度的圆角底框与居中的文本。
// middle 锚点下 (x, y) 为底框中心，否则为底框左上角。
func pillCommands(f FieldSpec, text string, x, y float64, face Face) []DrawCommand {
	p := f.Pill
	w := face.TextWidth(text)
	boxW := w + 2*p.PaddingX
	h := p.Height
	if h <= 0 {
		h = face.Metrics().LineHeight
	}
	box := Region{XStart: x, YStart: y, XEnd: x + boxW, YEnd: y + h}
	if f.Anchor == AnchorMiddle {
		box = Region{XStart: x - boxW/2, YStart: y - h/2, XEnd: x + boxW/2, YEnd: y + h/2}
	}
	fill := p.Fill
	cy := box.YStart + h/2
	return []DrawCommand{
		{Kind: KindRect, Rect: &RectCommand{Box: box, Radius: p.Radius, Fill: &fill}},
		textCmd(box.XStart+p.PaddingX, middleBaseline(cy, face), text, f.Font, f.Color, w),
	}
}

// emitPrice 根据模板变体一次性分派价格样式。scale > 0 时覆盖 PriceSpec.Scale（网格分档）。
func (e *engine) emitPrice(p PriceSpec, origin Region, rec ProductRecord, idx int, scale float64) {
	numeral := SplitPrice(rec.Price, p.Symbol)
	if numeral == "" {
		e.warn(WarnMissingField, idx, "price", "缺少价格")
		return
	}
	x := origin.XStart + p.X
	y := origin.YStart + p.Y
	if p.Bottom {
		y = origin.YEnd - p.Y
	}
	numFace := e.face(p.NumeralFont)
	symFace := numFace
	if p.Symbol != "" {
		symFace = e.face(p.SymbolFont)
	}

	switch e.spec.Variant {
	case PriceBadge:
		if scale <= 0 {
			scale = p.Scale
		}
		style := p.Badge
		if style.Height <= 0 {
			style = DefaultBadgeStyle()
		}
		e.emit(RenderBadge(Point{X: x, Y: y}, p.Symbol, numeral, p.SymbolFont, p.NumeralFont, symFace, numFace, style, scale, p.Tracking)...)
	default:
		if p.Symbol != "" {
			symW := symFace.TextWidth(p.Symbol)
			e.emit(textCmd(x, y, p.Symbol, p.SymbolFont, p.Color, symW))
			x += symW + p.Gap
		}
		e.emit(textCmd(x, y, numeral, p.NumeralFont, p.Color, numFace.TextWidth(numeral)))
	}
}

// SplitPrice 去掉价格字符串中已有的货币符号与空白，返回数字部分。
func SplitPrice(raw, symbol string) string {
	s := strings.TrimSpace(raw)
	if symbol != "" {
		s = strings.TrimSpace(strings.TrimPrefix(s, symbol))
	}
	return s
}

// emitLegal 对第一条记录的法律声明做一次两端对齐排版。
func (e *engine) emitLegal(rec ProductRecord) {
	l := e.spec.Legal
	if strings.TrimSpace(rec.Legal) == "" {
		e.warn(WarnMissingField, 0, "legal", "缺少法律声明")
		return
	}
	regular := e.face(l.Font)
	bold := regular
	boldRef := l.Font
	if l.Bold.Name != "" {
		bold = e.face(l.Bold)
		boldRef = l.Bold
	}
	lines, err := Justify(rec.Legal, regular, bold, l.Region, l.Opts)
	if err != nil {
		// 区域已在 prepare 中校验过。
		e.warn(WarnOverflow, 0, "legal", err.Error())
		return
	}
	for _, ln := range lines {
		if ln.Overflow {
			e.warn(WarnOverflow, 0, "legal", fmt.Sprintf("单词 %q 超出区域宽度", ln.Words[0].Text))
		}
	}
	if n := len(lines); n > 0 {
		descent := regular.Metrics().Descent
		if lines[n-1].Baseline+descent > l.Region.YEnd {
			e.warn(WarnOverflow, 0, "legal", fmt.Sprintf("%d 行超出区域底部", n))
		}
	}
	e.emit(justifyCommands(lines, l.Font, boldRef, l.Color)...)
}

func textCmd(x, y float64, content string, font FontRef, color Color, width float64) DrawCommand {
	return DrawCommand{Kind: KindText, Text: &TextCommand{
		X:       x,
		Y:       y,
		Content: content,
		Font:    font,
		Color:   color,
		Width:   width,
	}}
}
