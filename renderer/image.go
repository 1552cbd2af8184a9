package renderer

import (
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/vitrina/layout"
)

// FitPhoto 等比缩小图片使其不超过 maxW × maxH；不会放大。
func FitPhoto(img image.Image, maxW, maxH float64) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}
	limitW, limitH := int(math.Floor(maxW)), int(math.Floor(maxH))
	if limitW <= 0 {
		limitW = w
	}
	if limitH <= 0 {
		limitH = h
	}
	if w <= limitW && h <= limitH {
		return img
	}
	return imaging.Fit(img, limitW, limitH, imaging.Lanczos)
}

// PhotoOrigin 返回缩放后图片的左上角。Align 为 center 时 cmd.X 是水平中心线。
func PhotoOrigin(cmd *layout.ImageCommand, img image.Image) (float64, float64) {
	x := cmd.X
	if strings.EqualFold(cmd.Align, "center") {
		x -= float64(img.Bounds().Dx()) / 2
	}
	return math.Round(x), math.Round(cmd.Y)
}

// FitBackground 将背景缩放到画布尺寸；尺寸一致时原样返回。
func FitBackground(img image.Image, width, height float64) image.Image {
	w, h := int(math.Round(width)), int(math.Round(height))
	if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Format 是输出文件的编码格式。
type Format string

const (
	FormatJPEG Format = "jpg"
	FormatPNG  Format = "png"
)

// ParseFormat 解析 "jpg"/"jpeg"/"png"。
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpg", "jpeg", "":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %s", s)
	}
}

// Encode 将位图按格式写出；quality 只对 JPEG 生效。
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	default:
		if quality <= 0 || quality > 100 {
			quality = 95
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
}
