package layout

import (
	"strings"
)

// DefaultLegalLabel 是法律声明段落前的加粗标签。
const DefaultLegalLabel = "CONDICIONES GENERALES:"

// JustifyOptions 控制两端对齐段落的排版参数。
// BoldWords 与 MaxGapRatio 来自人工调校，保留为可配置项。
type JustifyOptions struct {
	Label       string  `json:"label"`
	BoldWords   int     `json:"boldWords"`
	MaxGapRatio float64 `json:"maxGapRatio"`
	LineSpacing float64 `json:"lineSpacing"` // 叠加在字体行高上，可为负数以压缩
	Justify     bool    `json:"justify"`     // false 时所有行左对齐
}

// DefaultJustifyOptions 返回原始模板使用的参数。
func DefaultJustifyOptions() JustifyOptions {
	return JustifyOptions{
		Label:       DefaultLegalLabel,
		BoldWords:   2,
		MaxGapRatio: 2.5,
		Justify:     true,
	}
}

// Word 是排版后的一个单词及其位置。
type Word struct {
	Text  string  `json:"text"`
	Width float64 `json:"width"`
	Bold  bool    `json:"bold,omitempty"`
	X     float64 `json:"x"`
	space float64
}

// Line 是排版后的一行；Baseline 为该行基线的 y 坐标。
type Line struct {
	Words     []Word  `json:"words"`
	Width     float64 `json:"width"` // 单词宽度之和（不含空格）
	Justified bool    `json:"justified"`
	Gap       float64 `json:"gap"`
	Baseline  float64 `json:"baseline"`
	Overflow  bool    `json:"overflow,omitempty"` // 单个单词已超出区域宽度
}

// Right 返回该行最后一个字形右边缘的 x 坐标。
func (l Line) Right() float64 {
	if len(l.Words) == 0 {
		return 0
	}
	last := l.Words[len(l.Words)-1]
	return last.X + last.Width
}

// WithLabel 在文本前加上标签；若文本已以该标签开头则不重复添加。
func WithLabel(text, label string) string {
	text = strings.TrimSpace(text)
	if label == "" {
		return text
	}
	bare := strings.TrimSuffix(strings.TrimSpace(label), ":")
	if hasLabelPrefix(text, bare) {
		rest := strings.TrimSpace(text[len(bare):])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		text = rest
	}
	if text == "" {
		return strings.TrimSpace(label)
	}
	return strings.TrimSpace(label) + " " + text
}

// hasLabelPrefix 要求标签后紧跟文本结尾、空白或冒号，避免吞掉用户单词的一部分。
func hasLabelPrefix(text, bare string) bool {
	if len(text) < len(bare) || !strings.EqualFold(text[:len(bare)], bare) {
		return false
	}
	if len(text) == len(bare) {
		return true
	}
	switch text[len(bare)] {
	case ' ', '\t', '\n', ':':
		return true
	}
	return false
}

// Justify 将段落按像素宽度贪心折行，并为每行决定左对齐或两端对齐。
// regular/bold 为正文与加粗字体的度量；bold 为空时使用 regular。
// 仅当区域退化时返回错误，文本内容本身不会导致失败。
func Justify(text string, regular, bold Face, region Region, opts JustifyOptions) ([]Line, error) {
	if err := region.Validate(); err != nil {
		return nil, configErr("justify", err)
	}
	if regular == nil {
		return nil, configErr("justify", ErrNoMetrics)
	}
	if bold == nil {
		bold = regular
	}

	fields := strings.Fields(WithLabel(text, opts.Label))
	words := make([]Word, 0, len(fields))
	// 先按候选粗体测量折行，再由 unboldAfterFirstLine 收回落到后续行的粗体。
	for i, f := range fields {
		face := regular
		isBold := i < opts.BoldWords
		if isBold {
			face = bold
		}
		words = append(words, Word{
			Text:  f,
			Width: face.TextWidth(f),
			Bold:  isBold,
			space: face.TextWidth(" "),
		})
	}

	space := regular.TextWidth(" ")
	lines := breakWords(words, region.Width(), space)
	unboldAfterFirstLine(lines, regular, region.Width())

	metrics := regular.Metrics()
	advance := metrics.LineHeight + opts.LineSpacing
	baseline := region.YStart + metrics.Ascent
	for i := range lines {
		last := i == len(lines)-1
		placeLine(&lines[i], region, space, last, opts)
		lines[i].Baseline = baseline
		baseline += advance
	}
	return lines, nil
}

// unboldAfterFirstLine 只保留首行的粗体；折到后续行的候选粗体单词改用正文字体重新测量。
func unboldAfterFirstLine(lines []Line, regular Face, limit float64) {
	for i := 1; i < len(lines); i++ {
		ln := &lines[i]
		for j := range ln.Words {
			w := &ln.Words[j]
			if !w.Bold {
				continue
			}
			regularWidth := regular.TextWidth(w.Text)
			ln.Width += regularWidth - w.Width
			w.Width = regularWidth
			w.space = regular.TextWidth(" ")
			w.Bold = false
		}
		ln.Overflow = ln.Width > limit
	}
}

// breakWords 贪心折行：单词在 width + space + word <= limit 时加入当前行。
// 超出区域宽度的单个单词独占一行，不截断。
func breakWords(words []Word, limit, space float64) []Line {
	var lines []Line
	var current Line
	lineWidth := 0.0
	flush := func() {
		if len(current.Words) == 0 {
			return
		}
		current.Overflow = current.Width > limit
		lines = append(lines, current)
		current = Line{}
		lineWidth = 0
	}
	for _, w := range words {
		if len(current.Words) > 0 && lineWidth+space+w.Width > limit {
			flush()
		}
		if len(current.Words) > 0 {
			lineWidth += space
		}
		current.Words = append(current.Words, w)
		current.Width += w.Width
		lineWidth += w.Width
	}
	flush()
	return lines
}

// placeLine 计算每个单词的 x 坐标。
// 最后一行、单词数 <=1 的行，以及拉伸后间距超过 MaxGapRatio 倍空格的行保持左对齐。
func placeLine(line *Line, region Region, space float64, last bool, opts JustifyOptions) {
	n := len(line.Words)
	justify := opts.Justify && !last && n > 1
	gap := 0.0
	if justify {
		gap = (region.Width() - line.Width) / float64(n-1)
		if opts.MaxGapRatio > 0 && gap > space*opts.MaxGapRatio {
			justify = false
		}
		if gap < 0 {
			justify = false
		}
	}

	x := region.XStart
	for j := range line.Words {
		line.Words[j].X = x
		if justify {
			x += line.Words[j].Width + gap
		} else {
			x += line.Words[j].Width + line.Words[j].space
		}
	}
	line.Justified = justify
	if justify {
		line.Gap = gap
		// 消除浮点累积误差，使最后一个字形的右边缘恰好落在 XEnd。
		lastWord := &line.Words[n-1]
		lastWord.X = region.XEnd - lastWord.Width
	} else {
		line.Gap = space
	}
}

// wrapPlain 按测量宽度折行但不做对齐，供商品名等字段使用。
func wrapPlain(text string, face Face, limit float64) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	words := make([]Word, 0, len(fields))
	for _, f := range fields {
		words = append(words, Word{Text: f, Width: face.TextWidth(f)})
	}
	lines := breakWords(words, limit, face.TextWidth(" "))
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		parts := make([]string, 0, len(ln.Words))
		for _, w := range ln.Words {
			parts = append(parts, w.Text)
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

// justifyCommands 把排好的行转换为逐词的文本指令。
func justifyCommands(lines []Line, regular, bold FontRef, color Color) []DrawCommand {
	var cmds []DrawCommand
	for _, ln := range lines {
		for _, w := range ln.Words {
			font := regular
			if w.Bold {
				font = bold
			}
			cmds = append(cmds, textCmd(w.X, ln.Baseline, w.Text, font, color, w.Width))
		}
	}
	return cmds
}
