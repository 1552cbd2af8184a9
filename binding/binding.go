// Package binding 展开模板文本中的 ${field} 占位符。
package binding

import (
	"regexp"
	"slices"
	"strings"
)

// Vars 是占位符的取值表，键区分大小写。
type Vars map[string]string

var placeholder = regexp.MustCompile(`\$\{\s*([A-Za-z0-9_.-]+)\s*\}`)

// Expand 替换 text 中的占位符，未定义的占位符原样保留。
func Expand(text string, vars Vars) string {
	out, _ := Resolve(text, vars)
	return out
}

// Resolve 与 Expand 相同，另外按出现顺序返回未定义或取值为空白的字段名（去重）。
func Resolve(text string, vars Vars) (string, []string) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok || strings.TrimSpace(v) == "" {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			if !ok {
				return m
			}
		}
		return v
	})
	return out, missing
}

// Fields 返回 text 引用的字段名，按出现顺序去重。
func Fields(text string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(names, m[1]) {
			names = append(names, m[1])
		}
	}
	return names
}
