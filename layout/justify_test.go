package layout

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func face12() Face { return stubFace{size: 12, advance: 0.6} }

// TestJustifyConditionsParagraph 覆盖一段典型的条款文本：首行两端对齐贴合 400px，末行左对齐。
func TestJustifyConditionsParagraph(t *testing.T) {
	opts := DefaultJustifyOptions()
	opts.Label = "CONDITIONS:"
	region := Region{XStart: 0, YStart: 0, XEnd: 400, YEnd: math.Inf(1)}
	lines, err := Justify("CONDITIONS: Offer valid only in select stores while supplies last.", face12(), face12(), region, opts)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("期望至少 2 行，实际 %d", len(lines))
	}
	first := lines[0]
	if !first.Justified {
		t.Fatalf("首行应两端对齐: %+v", first)
	}
	if first.Words[0].X != 0 {
		t.Fatalf("首个字形应从 x=0 开始，实际 %g", first.Words[0].X)
	}
	if !near(first.Right(), 400, 1) {
		t.Fatalf("首行右边缘应在 400±1，实际 %g", first.Right())
	}
	if first.Words[0].Text != "CONDITIONS:" {
		t.Fatalf("标签不应重复: %q", first.Words[0].Text)
	}
	last := lines[len(lines)-1]
	if last.Justified {
		t.Fatalf("末行不应两端对齐")
	}
	if !(last.Right() < 400) {
		t.Fatalf("末行应短于 400，实际 %g", last.Right())
	}
}

// TestJustifyWrapCompleteness 断言折行前后单词序列一致，没有丢失或重复。
func TestJustifyWrapCompleteness(t *testing.T) {
	text := "Promoción válida del 1 al 31 de octubre o hasta agotar stock de 100 unidades por tienda. No acumulable con otras promociones ni descuentos."
	region := Region{XStart: 62, YStart: 1835, XEnd: 1018, YEnd: 1920}
	for _, width := range []float64{120, 300, 956} {
		region.XEnd = region.XStart + width
		lines, err := Justify(text, face12(), face12(), region, DefaultJustifyOptions())
		if err != nil {
			t.Fatalf("宽度 %g 排版失败: %v", width, err)
		}
		var got []string
		for _, ln := range lines {
			for _, w := range ln.Words {
				got = append(got, w.Text)
			}
		}
		want := strings.Fields(WithLabel(text, DefaultLegalLabel))
		if strings.Join(got, " ") != strings.Join(want, " ") {
			t.Fatalf("宽度 %g 单词序列不一致:\n got=%v\nwant=%v", width, got, want)
		}
	}
}

// TestJustifyBoldPrefix 断言只有前 BoldWords 个单词使用粗体并按粗体测量。
func TestJustifyBoldPrefix(t *testing.T) {
	bold := stubFace{size: 12, advance: 0.7}
	region := Region{XStart: 0, YStart: 0, XEnd: 2000, YEnd: 100}
	lines, err := Justify("uno dos tres", face12(), bold, region, DefaultJustifyOptions())
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	words := lines[0].Words
	if words[0].Text != "CONDICIONES" || !words[0].Bold || !words[1].Bold || words[2].Bold {
		t.Fatalf("粗体前缀错误: %+v", words[:3])
	}
	if !near(words[0].Width, bold.TextWidth("CONDICIONES"), 1e-9) {
		t.Fatalf("粗体单词应以粗体字体测量: %g", words[0].Width)
	}
}

// TestJustifyBoldOnlyOnFirstLine 断言窄区域中折到第二行的标签单词不再加粗，并以正文字体测量。
func TestJustifyBoldOnlyOnFirstLine(t *testing.T) {
	bold := stubFace{size: 12, advance: 0.7}
	region := Region{XStart: 0, YStart: 0, XEnd: 100, YEnd: 500}
	lines, err := Justify("uno dos tres", face12(), bold, region, DefaultJustifyOptions())
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(lines) < 2 || len(lines[0].Words) != 1 || !lines[0].Words[0].Bold {
		t.Fatalf("首行应只有加粗的 CONDICIONES: %+v", lines)
	}
	for i, ln := range lines[1:] {
		for _, w := range ln.Words {
			if w.Bold {
				t.Fatalf("第 %d 行的 %q 不应加粗", i+2, w.Text)
			}
		}
	}
	second := lines[1].Words[0]
	if second.Text != "GENERALES:" || !near(second.Width, face12().TextWidth("GENERALES:"), 1e-9) {
		t.Fatalf("折行后的标签单词应以正文字体测量: %+v", second)
	}
	sum := 0.0
	for _, w := range lines[1].Words {
		sum += w.Width
	}
	if !near(lines[1].Width, sum, 1e-9) {
		t.Fatalf("行宽应与重新测量的单词宽度一致: %g != %g", lines[1].Width, sum)
	}
}

// TestJustifyGapRatioFallback 断言拉伸间距超过阈值的行退回左对齐。
func TestJustifyGapRatioFallback(t *testing.T) {
	opts := DefaultJustifyOptions()
	opts.Label = ""
	long := strings.Repeat("x", 60)
	region := Region{XStart: 0, YStart: 0, XEnd: 400, YEnd: 500}
	lines, err := Justify("aaaa b "+long, face12(), face12(), region, opts)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(lines))
	}
	if lines[0].Justified {
		t.Fatalf("间距过大的行应左对齐: gap=%g", lines[0].Gap)
	}
	if !near(lines[0].Words[1].X, 28.8+7.2, 1e-9) {
		t.Fatalf("左对齐行应使用普通空格: %g", lines[0].Words[1].X)
	}
	if !lines[1].Overflow || len(lines[1].Words) != 1 {
		t.Fatalf("超宽单词应独占一行并标记溢出: %+v", lines[1])
	}
	if lines[1].Words[0].Text != long {
		t.Fatalf("超宽单词不应被截断")
	}
}

// TestJustifyBaselineAdvance 断言行距 = 行高 + LineSpacing，首行基线 = YStart + ascent。
func TestJustifyBaselineAdvance(t *testing.T) {
	opts := DefaultJustifyOptions()
	opts.LineSpacing = -2
	region := Region{XStart: 10, YStart: 100, XEnd: 200, YEnd: 400}
	lines, err := Justify("uno dos tres cuatro cinco seis siete ocho nueve diez once doce", face12(), face12(), region, opts)
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("期望多行")
	}
	if !near(lines[0].Baseline, 100+12*0.8, 1e-9) {
		t.Fatalf("首行基线错误: %g", lines[0].Baseline)
	}
	if d := lines[1].Baseline - lines[0].Baseline; !near(d, 12*1.2-2, 1e-9) {
		t.Fatalf("行距错误: %g", d)
	}
}

func TestJustifyDegenerateRegion(t *testing.T) {
	_, err := Justify("texto", face12(), face12(), Region{XStart: 10, YStart: 0, XEnd: 10, YEnd: 50}, DefaultJustifyOptions())
	if !errors.Is(err, ErrDegenerateRegion) {
		t.Fatalf("期望 ErrDegenerateRegion，实际 %v", err)
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("期望 ConfigError，实际 %T", err)
	}
}

func TestWithLabel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Válido hasta agotar stock.", "CONDICIONES GENERALES: Válido hasta agotar stock."},
		{"CONDICIONES GENERALES: Válido.", "CONDICIONES GENERALES: Válido."},
		{"condiciones generales Válido.", "CONDICIONES GENERALES: Válido."},
		{"", "CONDICIONES GENERALES:"},
		{"CONDICIONES GENERALES", "CONDICIONES GENERALES:"},
		{"CONDICIONES GENERALESX vigentes", "CONDICIONES GENERALES: CONDICIONES GENERALESX vigentes"},
	}
	for _, c := range cases {
		if got := WithLabel(c.in, DefaultLegalLabel); got != c.want {
			t.Fatalf("WithLabel(%q) = %q，期望 %q", c.in, got, c.want)
		}
	}
	if got := WithLabel("  texto ", ""); got != "texto" {
		t.Fatalf("空标签应只去除空白: %q", got)
	}
}
