package layout

// RenderOptions 配置渲染阶段所需的依赖，例如字体度量后端。
type RenderOptions struct {
	Metrics Metrics
	// AllowEstimate 允许在没有 Metrics 时退回按字符数估算宽度（降级模式）。
	AllowEstimate bool
}

// FontMetrics 以像素表示的字体纵向度量。
type FontMetrics struct {
	Ascent     float64
	Descent    float64
	LineHeight float64
}

// Face 是某个字体在某个字号下的度量句柄，只读，可在多个 goroutine 间共享。
type Face interface {
	TextWidth(s string) float64
	Metrics() FontMetrics
}

// Metrics 根据字体资源与像素字号返回度量句柄；实现方负责缓存。
type Metrics interface {
	Face(font FontResource, size float64) (Face, error)
}

// EstimateMetrics 是没有真实字体时的降级度量：每个字符按字号的固定比例估算宽度。
type EstimateMetrics struct {
	// Advance 为字符宽度相对字号的比例，<=0 时取 0.55。
	Advance float64
}

func (m EstimateMetrics) Face(font FontResource, size float64) (Face, error) {
	adv := m.Advance
	if adv <= 0 {
		adv = 0.55
	}
	return estimateFace{size: size, advance: adv}, nil
}

type estimateFace struct {
	size    float64
	advance float64
}

func (f estimateFace) TextWidth(s string) float64 {
	return f.size * f.advance * float64(len([]rune(s)))
}

func (f estimateFace) Metrics() FontMetrics {
	return FontMetrics{Ascent: f.size * 0.8, Descent: f.size * 0.2, LineHeight: f.size * 1.2}
}

func (o RenderOptions) metrics() (Metrics, error) {
	if o.Metrics != nil {
		return o.Metrics, nil
	}
	if o.AllowEstimate {
		return EstimateMetrics{}, nil
	}
	return nil, ErrNoMetrics
}
