package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Template coordinates are pixels. Sizes written in pt or mm are converted
// at 96 DPI when the catalog is compiled, so the engine only sees pixels.
const (
	MmToPt = 72 / 25.4

	pxPerPt = 96.0 / 72
	pxPerMm = 96.0 / 25.4
)

var unitScale = []struct {
	suffix string
	scale  float64
}{
	{"px", 1},
	{"pt", pxPerPt},
	{"mm", pxPerMm},
}

// ParseLength converts "30", "30px", "72pt" or "25.4mm" to pixels.
func ParseLength(s string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	scale := 1.0
	for _, u := range unitScale {
		if num, ok := strings.CutSuffix(v, u.suffix); ok {
			v, scale = strings.TrimSpace(num), u.scale
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析长度 %q", s)
	}
	return f * scale, nil
}

// ParseAdvance resolves a line advance for a font of size pixels. "1.2x" is a
// multiple of the size; anything else is an absolute length.
func ParseAdvance(s string, size float64) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if factor, ok := strings.CutSuffix(v, "x"); ok {
		f, err := strconv.ParseFloat(factor, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("无法解析行距 %q", s)
		}
		return size * f, nil
	}
	px, err := ParseLength(v)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("无法解析行距 %q", s)
	}
	return px, nil
}
