package layout

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// stubMetrics 是测试用的度量实现：每个字符宽 0.6 倍字号，粗体字体（Style == "bold"）宽 0.7 倍。
// 避免测试依赖真实字体文件。
type stubMetrics struct {
	calls int
}

func (m *stubMetrics) Face(font FontResource, size float64) (Face, error) {
	m.calls++
	if font.Src == "missing" {
		return nil, fmt.Errorf("no such font %s", font.Name)
	}
	adv := 0.6
	if font.Style == "bold" {
		adv = 0.7
	}
	return stubFace{size: size, advance: adv}, nil
}

type stubFace struct {
	size    float64
	advance float64
}

func (f stubFace) TextWidth(s string) float64 {
	return f.size * f.advance * float64(utf8.RuneCountInString(s))
}

func (f stubFace) Metrics() FontMetrics {
	return FontMetrics{Ascent: f.size * 0.8, Descent: f.size * 0.2, LineHeight: f.size * 1.2}
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func stubFonts() map[string]FontResource {
	return map[string]FontResource{
		"Regular": {Name: "Regular", Src: "embed:go-regular"},
		"Bold":    {Name: "Bold", Src: "embed:go-bold", Style: "bold"},
	}
}
