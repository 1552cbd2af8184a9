package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

var black = Color{}

func singleTemplate(variant PriceStyle) *TemplateSpec {
	return &TemplateSpec{
		Key:        TemplateKey{Store: "EFE", Design: "EFERTON", Format: "PPL"},
		Width:      1000,
		Height:     1000,
		Background: "bg.jpg",
		Variant:    variant,
		Fonts:      stubFonts(),
		Photo:      &PhotoSpec{X: 126, Y: 269, MaxWidth: 747, MaxHeight: 270},
		Fields: []FieldSpec{
			{ID: "brand", Text: "${brand}", X: 90, Y: 800, Anchor: AnchorLeft, Font: FontRef{Name: "Bold", Size: 30}, Color: black},
			{ID: "name", Text: "${name}", X: 90, Y: 840, Anchor: AnchorLeft, Font: FontRef{Name: "Regular", Size: 25}, Color: black,
				Wrap: &WrapSpec{Width: 300, MaxLines: 2, Advance: 30}},
			{ID: "sku", Text: "SKU: ${sku}", X: 90, Y: 28, After: "name", Anchor: AnchorLeft, Font: FontRef{Name: "Regular", Size: 22}, Color: black},
		},
		Price: &PriceSpec{
			X: 840, Y: 910, Symbol: "S/",
			SymbolFont:  FontRef{Name: "Bold", Size: 35},
			NumeralFont: FontRef{Name: "Bold", Size: 90},
			Gap:         5, Scale: 1, Tracking: -3,
			Badge: DefaultBadgeStyle(),
		},
		Legal: &LegalSpec{
			Region: Region{XStart: 90, YStart: 960, XEnd: 910, YEnd: 1000},
			Font:   FontRef{Name: "Regular", Size: 10},
			Bold:   FontRef{Name: "Bold", Size: 10},
			Color:  Color{R: 255, G: 255, B: 255},
			Opts:   DefaultJustifyOptions(),
		},
	}
}

func sampleRecord() ProductRecord {
	return ProductRecord{
		Brand: "Samsung",
		Name:  "Televisor Smart TV 55 pulgadas Crystal UHD 4K con control por voz",
		SKU:   "123456",
		Price: "1299",
		Legal: "Precios válidos del 1 al 31 de octubre o hasta agotar stock. Stock mínimo 5 unidades por tienda.",
		Photo: "https://example.com/tv.png",
	}
}

func commandsOf(res *Result, kind CommandKind) []DrawCommand {
	var out []DrawCommand
	for _, c := range res.Commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestRenderSingleBadge(t *testing.T) {
	res, err := Render([]ProductRecord{sampleRecord()}, singleTemplate(PriceBadge), RenderOptions{Metrics: &stubMetrics{}})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if res.Background != "bg.jpg" || res.Key.Format != "PPL" {
		t.Fatalf("结果元数据错误: %+v", res.Key)
	}
	if imgs := commandsOf(res, KindImage); len(imgs) != 1 || imgs[0].Image.Ref != "https://example.com/tv.png" {
		t.Fatalf("应输出一张商品图: %+v", imgs)
	}
	rects := commandsOf(res, KindRect)
	if len(rects) != 1 {
		t.Fatalf("价格牌样式应输出 1 个矩形，实际 %d", len(rects))
	}
	if glyphs := commandsOf(res, KindGlyph); len(glyphs) != 4 {
		t.Fatalf("1299 应输出 4 个字形，实际 %d", len(glyphs))
	}
	// 商品名被截断为 2 行并产生溢出警告；SKU 位于最后一行之后 28px。
	var nameLines []*TextCommand
	var sku *TextCommand
	for _, c := range commandsOf(res, KindText) {
		switch {
		case c.Text.Font.Size == 25:
			nameLines = append(nameLines, c.Text)
		case c.Text.Font.Size == 22:
			sku = c.Text
		}
	}
	if len(nameLines) != 2 {
		t.Fatalf("商品名应折为 2 行，实际 %d", len(nameLines))
	}
	for _, ln := range nameLines {
		if ln.Width > 300 {
			t.Fatalf("商品名行宽超出限制: %g", ln.Width)
		}
	}
	if sku == nil || sku.Content != "SKU: 123456" || !near(sku.Y, nameLines[1].Y+28, 1e-9) {
		t.Fatalf("SKU 位置错误: %+v", sku)
	}
	if !hasWarning(res, WarnOverflow, "name") {
		t.Fatalf("商品名截断应产生溢出警告: %v", res.Warnings)
	}
}

func TestRenderSingleStandardPrice(t *testing.T) {
	spec := singleTemplate(PriceStandard)
	res, err := Render([]ProductRecord{sampleRecord()}, spec, RenderOptions{Metrics: &stubMetrics{}})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if n := len(commandsOf(res, KindRect)); n != 0 {
		t.Fatalf("标准价格不应输出矩形，实际 %d", n)
	}
	if n := len(commandsOf(res, KindGlyph)); n != 0 {
		t.Fatalf("标准价格不应输出字形，实际 %d", n)
	}
	var sym, num *TextCommand
	for _, c := range commandsOf(res, KindText) {
		switch c.Text.Content {
		case "S/":
			sym = c.Text
		case "1299":
			num = c.Text
		}
	}
	if sym == nil || num == nil {
		t.Fatalf("缺少价格文本")
	}
	if !near(num.X, sym.X+sym.Width+5, 1e-9) || sym.Y != num.Y {
		t.Fatalf("数字应紧随符号且共享基线: sym=%+v num=%+v", sym, num)
	}
}

// TestRenderMissingField 断言缺失字段不输出指令，只产生警告。
func TestRenderMissingField(t *testing.T) {
	rec := sampleRecord()
	rec.Brand = ""
	rec.Photo = ""
	res, err := Render([]ProductRecord{rec}, singleTemplate(PriceBadge), RenderOptions{Metrics: &stubMetrics{}})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if !hasWarning(res, WarnMissingField, "brand") || !hasWarning(res, WarnMissingField, "photo") {
		t.Fatalf("缺失字段应产生警告: %v", res.Warnings)
	}
	for _, c := range commandsOf(res, KindText) {
		if c.Text.Font.Size == 30 {
			t.Fatalf("缺失的品牌不应输出文本: %+v", c.Text)
		}
	}
	if n := len(commandsOf(res, KindImage)); n != 0 {
		t.Fatalf("缺少图片时不应输出图片指令")
	}
}

// TestRenderIdempotent 断言同一输入两次渲染的 JSON 完全一致。
func TestRenderIdempotent(t *testing.T) {
	spec := flyerTemplate()
	recs := flyerRecords(7)
	var out [2][]byte
	for i := range out {
		res, err := Render(recs, spec, RenderOptions{Metrics: &stubMetrics{}})
		if err != nil {
			t.Fatalf("渲染失败: %v", err)
		}
		var buf bytes.Buffer
		if err := EncodeDebugJSON(res, &buf); err != nil {
			t.Fatalf("序列化失败: %v", err)
		}
		out[i] = buf.Bytes()
	}
	if !bytes.Equal(out[0], out[1]) {
		t.Fatalf("两次渲染结果不一致")
	}
}

func TestRenderConfigErrors(t *testing.T) {
	recs := []ProductRecord{sampleRecord()}

	if _, err := Render(recs, singleTemplate(PriceBadge), RenderOptions{}); !errors.Is(err, ErrNoMetrics) {
		t.Fatalf("缺少度量应返回 ErrNoMetrics，实际 %v", err)
	}
	if _, err := Render(recs, singleTemplate(PriceBadge), RenderOptions{AllowEstimate: true}); err != nil {
		t.Fatalf("允许估算时应能渲染: %v", err)
	}
	if _, err := Render(nil, singleTemplate(PriceBadge), RenderOptions{Metrics: &stubMetrics{}}); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("空记录应返回 ErrNoRecords，实际 %v", err)
	}

	spec := singleTemplate(PriceBadge)
	spec.Fields[0].Font.Name = "Nope"
	if _, err := Render(recs, spec, RenderOptions{Metrics: &stubMetrics{}}); !errors.Is(err, ErrUnknownFont) {
		t.Fatalf("未知字体应返回 ErrUnknownFont，实际 %v", err)
	}

	spec = singleTemplate(PriceBadge)
	spec.Legal.Region.XEnd = spec.Legal.Region.XStart
	res, err := Render(recs, spec, RenderOptions{Metrics: &stubMetrics{}})
	var ce *ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, ErrDegenerateRegion) {
		t.Fatalf("退化的法律区域应返回 ConfigError，实际 %v", err)
	}
	if res != nil {
		t.Fatalf("配置错误时不应返回部分结果")
	}

	spec = singleTemplate(PriceBadge)
	spec.Fonts["Regular"] = FontResource{Name: "Regular", Src: "missing"}
	if _, err := Render(recs, spec, RenderOptions{Metrics: &stubMetrics{}}); !errors.As(err, &ce) {
		t.Fatalf("字体加载失败应返回 ConfigError，实际 %v", err)
	}
}

// TestRenderFaceCache 断言同一字体与字号只向度量后端请求一次。
func TestRenderFaceCache(t *testing.T) {
	m := &stubMetrics{}
	if _, err := Render([]ProductRecord{sampleRecord()}, singleTemplate(PriceBadge), RenderOptions{Metrics: m}); err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	// Bold30, Regular25, Regular22, Bold90, Bold35, Regular10, Bold10
	if m.calls != 7 {
		t.Fatalf("期望 7 次字体请求，实际 %d", m.calls)
	}
}

func flyerTemplate() *TemplateSpec {
	grid := flyerGrid()
	grid.Cell = CellSpec{
		Photo: &PhotoSpec{X: 240, Y: 20, Align: "center"},
		Fields: []FieldSpec{
			{ID: "brand", Text: "${brand}", X: 125, Y: 110, Bottom: true, Anchor: AnchorMiddle, Font: FontRef{Name: "Bold", Size: 30}},
			{ID: "name", Text: "${name}", X: 125, Y: 75, Bottom: true, Anchor: AnchorMiddle, MaxChars: 18, Font: FontRef{Name: "Regular", Size: 20}},
			{ID: "sku", Text: "SKU: ${sku}", X: 345, Y: 40, Bottom: true, Anchor: AnchorMiddle, Font: FontRef{Name: "Regular", Size: 15}},
		},
		Price: &PriceSpec{
			X: 345, Y: 85, Bottom: true, Symbol: "S/",
			SymbolFont:  FontRef{Name: "Bold", Size: 30},
			NumeralFont: FontRef{Name: "Bold", Size: 53},
			Tracking:    -2,
			Badge:       DefaultBadgeStyle(),
		},
	}
	return &TemplateSpec{
		Key:     TemplateKey{Store: "EFE", Design: "EFERTON", Format: "FLYER"},
		Width:   1080,
		Height:  1920,
		Variant: PriceBadge,
		Fonts:   stubFonts(),
		Fields: []FieldSpec{
			{ID: "date", Text: "${flyer_date}", X: 540, Y: 300, Anchor: AnchorMiddle, Font: FontRef{Name: "Bold", Size: 23},
				Color: Color{R: 255, G: 255, B: 255}, Pill: &PillSpec{PaddingX: 20, Height: 40, Radius: 10, Fill: Color{R: 0xFF, G: 0xA0, B: 0x02}}},
		},
		Grid: &grid,
		Legal: &LegalSpec{
			Region: Region{XStart: 70, YStart: 1835, XEnd: 1010, YEnd: 1920},
			Font:   FontRef{Name: "Regular", Size: 12},
			Opts:   DefaultJustifyOptions(),
		},
	}
}

func flyerRecords(n int) []ProductRecord {
	recs := make([]ProductRecord, n)
	for i := range recs {
		recs[i] = ProductRecord{
			Brand: fmt.Sprintf("Marca %d", i),
			Name:  "Refrigeradora No Frost 300 litros inox",
			SKU:   fmt.Sprintf("10%04d", i),
			Price: fmt.Sprintf("%d99", i+1),
			Legal: "Válido del 1 al 15 de noviembre.",
			Photo: fmt.Sprintf("https://example.com/%d.png", i),
			Extra: map[string]string{"flyer_date": "Del 1 al 15 de noviembre"},
		}
	}
	return recs
}

func TestRenderFlyerGrid(t *testing.T) {
	for _, n := range []int{1, 3, 6, 7, 8} {
		res, err := Render(flyerRecords(n), flyerTemplate(), RenderOptions{Metrics: &stubMetrics{}})
		if err != nil {
			t.Fatalf("n=%d 渲染失败: %v", n, err)
		}
		imgs := commandsOf(res, KindImage)
		if len(imgs) != n {
			t.Fatalf("n=%d 期望 %d 张图，实际 %d", n, n, len(imgs))
		}
		wantW := 434.0
		if n > 6 {
			wantW = 350
		}
		if imgs[0].Image.MaxWidth != wantW {
			t.Fatalf("n=%d 图片尺寸应随档位变化: %g", n, imgs[0].Image.MaxWidth)
		}
		// 日期底框 + 每个商品一个价格牌
		if rects := commandsOf(res, KindRect); len(rects) != n+1 {
			t.Fatalf("n=%d 期望 %d 个矩形，实际 %d", n, n+1, len(rects))
		}
		wantLines := n / 2
		rows := (n + 1) / 2
		wantLines += rows - 1
		if lines := commandsOf(res, KindLine); len(lines) != wantLines {
			t.Fatalf("n=%d 期望 %d 条分隔线，实际 %d", n, wantLines, len(lines))
		}
		for _, c := range commandsOf(res, KindText) {
			if c.Text.Font.Size == 20 && len([]rune(c.Text.Content)) > 18 {
				t.Fatalf("商品名应截断为 18 个字符: %q", c.Text.Content)
			}
		}
	}
}

// TestRenderFlyerOverflow 断言超过 8 个商品时只渲染前 8 个并给出警告。
func TestRenderFlyerOverflow(t *testing.T) {
	res, err := Render(flyerRecords(11), flyerTemplate(), RenderOptions{Metrics: &stubMetrics{}})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if n := len(commandsOf(res, KindImage)); n != MaxGridItems {
		t.Fatalf("期望渲染 %d 个商品，实际 %d", MaxGridItems, n)
	}
	if !hasWarning(res, WarnOverflow, "") {
		t.Fatalf("超出的商品应产生溢出警告: %v", res.Warnings)
	}
}

func TestRenderPill(t *testing.T) {
	res, err := Render(flyerRecords(2), flyerTemplate(), RenderOptions{Metrics: &stubMetrics{}})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	pill := commandsOf(res, KindRect)[0].Rect
	face := stubFace{size: 23, advance: 0.7}
	wantW := face.TextWidth("Del 1 al 15 de noviembre") + 40
	if !near(pill.Box.Width(), wantW, 1e-9) || !near(pill.Box.Height(), 40, 1e-9) {
		t.Fatalf("日期底框尺寸错误: %+v", pill.Box)
	}
	if !near((pill.Box.XStart+pill.Box.XEnd)/2, 540, 1e-9) {
		t.Fatalf("日期底框应水平居中于 540")
	}
}

func hasWarning(res *Result, kind WarningKind, field string) bool {
	for _, w := range res.Warnings {
		if w.Kind == kind && w.Field == field {
			return true
		}
	}
	return false
}

func TestResultJSONRoundTrip(t *testing.T) {
	res, err := Render([]ProductRecord{sampleRecord()}, singleTemplate(PriceBadge), RenderOptions{Metrics: &stubMetrics{}})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	var buf bytes.Buffer
	if err := EncodeDebugJSON(res, &buf); err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	var back Result
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if len(back.Commands) != len(res.Commands) {
		t.Fatalf("指令数量不一致")
	}
}
