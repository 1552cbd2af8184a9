// Package fonts serves the Go font family as built-in fallbacks, addressed as "embed:<name>".
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
)

// Prefix 标记内置字体引用。
const Prefix = "embed:"

var builtin = map[string][]byte{
	"go-regular":       goregular.TTF,
	"go-italic":        goitalic.TTF,
	"go-medium":        gomedium.TTF,
	"go-medium-italic": gomediumitalic.TTF,
	"go-bold":          gobold.TTF,
	"go-bold-italic":   gobolditalic.TTF,
	"go-mono":          gomono.TTF,
	"go-smallcaps":     gosmallcaps.TTF,
}

// IsEmbedded 判断 src 是否引用内置字体。
func IsEmbedded(src string) bool { return strings.HasPrefix(src, Prefix) }

// Load 返回内置字体的字节数据，name 可写为 "embed:go-bold" 或直接 "go-bold"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimPrefix(name, Prefix))
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("内置字体 %s 不存在（可用：%s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 返回全部内置字体名，按字母排序。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for k := range builtin {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
