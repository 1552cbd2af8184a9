package layout

// BadgeStyle 描述价格牌的几何参数，Height/PaddingX/Gap 会乘以 scale。
type BadgeStyle struct {
	Height    float64 `json:"height"`
	PaddingX  float64 `json:"paddingX"`
	Gap       float64 `json:"gap"`
	Radius    float64 `json:"radius"`
	Fill      Color   `json:"fill"`
	TextColor Color   `json:"textColor"`
}

// DefaultBadgeStyle 返回橙色价格牌的默认参数。
func DefaultBadgeStyle() BadgeStyle {
	return BadgeStyle{
		Height:    110,
		PaddingX:  20,
		Gap:       8,
		Radius:    15,
		Fill:      Color{R: 0xFF, G: 0xA0, B: 0x02},
		TextColor: Color{R: 255, G: 255, B: 255},
	}
}

// Badge 是价格牌的测量结果。
type Badge struct {
	Box          Region  `json:"box"`
	SymbolWidth  float64 `json:"symbolWidth"`
	NumeralWidth float64 `json:"numeralWidth"`
}

// TrackedWidth 逐字测量字符串宽度：Σ(字宽 + tracking) − tracking。
func TrackedWidth(face Face, s string, tracking float64) float64 {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}
	w := 0.0
	for _, r := range runes {
		w += face.TextWidth(string(r)) + tracking
	}
	return w - tracking
}

// MeasureBadge 计算以 center 为中心的价格牌外框，宽度完全由内容测量得出。
func MeasureBadge(center Point, symbol, numeral string, symbolFace, numeralFace Face, style BadgeStyle, scale, tracking float64) Badge {
	if scale <= 0 {
		scale = 1
	}
	symW := symbolFace.TextWidth(symbol)
	numW := TrackedWidth(numeralFace, numeral, tracking)
	content := symW + style.Gap*scale + numW
	width := content + 2*style.PaddingX*scale
	height := style.Height * scale
	return Badge{
		Box: Region{
			XStart: center.X - width/2,
			YStart: center.Y - height/2,
			XEnd:   center.X + width/2,
			YEnd:   center.Y + height/2,
		},
		SymbolWidth:  symW,
		NumeralWidth: numW,
	}
}

// RenderBadge 输出价格牌：一个圆角矩形，随后是货币符号与逐字的数字，均垂直居中。
func RenderBadge(center Point, symbol, numeral string, symbolFont, numeralFont FontRef, symbolFace, numeralFace Face, style BadgeStyle, scale, tracking float64) []DrawCommand {
	if scale <= 0 {
		scale = 1
	}
	b := MeasureBadge(center, symbol, numeral, symbolFace, numeralFace, style, scale, tracking)
	fill := style.Fill
	cmds := []DrawCommand{{
		Kind: KindRect,
		Rect: &RectCommand{Box: b.Box, Radius: style.Radius, Fill: &fill},
	}}

	x := b.Box.XStart + style.PaddingX*scale
	if symbol != "" {
		cmds = append(cmds, textCmd(x, middleBaseline(center.Y, symbolFace), symbol, symbolFont, style.TextColor, b.SymbolWidth))
	}
	x += b.SymbolWidth + style.Gap*scale
	baseline := middleBaseline(center.Y, numeralFace)
	for _, r := range numeral {
		ch := string(r)
		cmds = append(cmds, DrawCommand{
			Kind:  KindGlyph,
			Glyph: &GlyphCommand{X: x, Y: baseline, Char: ch, Font: numeralFont, Color: style.TextColor},
		})
		x += numeralFace.TextWidth(ch) + tracking
	}
	return cmds
}

// middleBaseline 返回使文本在 y 处垂直居中的基线位置。
func middleBaseline(y float64, face Face) float64 {
	m := face.Metrics()
	return y + (m.Ascent-m.Descent)/2
}
