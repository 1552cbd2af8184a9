package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/vitrina/dsl"
	"github.com/ByLCY/vitrina/layout"
)

// attrs 是命令参数的 key/value 视图，记录被读取过的键以便报告未知属性。
type attrs struct {
	cmd  *dsl.Command
	vals map[string]string
	used map[string]bool
}

// parseArgs 将 `key value key value` 形式的参数拆成映射。
// lead 个前导位置参数（例如字段 ID）被单独返回；剩余参数个数为奇数时，第一个视为样式名。
func parseArgs(cmd *dsl.Command, lead int) ([]string, string, *attrs) {
	args := cmd.Args
	var head []string
	for i := 0; i < lead && i < len(args); i++ {
		head = append(head, args[i].Value)
	}
	rest := args[min(lead, len(args)):]
	style := ""
	if len(rest)%2 == 1 && rest[0].Kind == dsl.KindIdent {
		style = rest[0].Value
		rest = rest[1:]
	}
	a := &attrs{cmd: cmd, vals: map[string]string{}, used: map[string]bool{}}
	for i := 0; i+1 < len(rest); i += 2 {
		a.vals[strings.ToLower(rest[i].Value)] = rest[i+1].Value
	}
	return head, style, a
}

// merge 以样式属性为底、行内属性覆盖。
func (a *attrs) merge(style string, styles map[string]Style) error {
	if style == "" {
		return nil
	}
	s, ok := styles[style]
	if !ok {
		return a.errorf("style %s 未定义", style)
	}
	for k, v := range s.Props {
		k = strings.ToLower(k)
		if _, set := a.vals[k]; !set {
			a.vals[k] = v
			// 样式中与当前命令无关的属性不算未知属性。
			a.used[k] = true
		}
	}
	return nil
}

func (a *attrs) has(key string) bool {
	_, ok := a.vals[key]
	return ok
}

func (a *attrs) str(key, def string) string {
	a.used[key] = true
	if v, ok := a.vals[key]; ok {
		return v
	}
	return def
}

func (a *attrs) num(key string, def float64) (float64, error) {
	a.used[key] = true
	v, ok := a.vals[key]
	if !ok {
		return def, nil
	}
	f, err := layout.ParseLength(v)
	if err != nil {
		return 0, a.errorf("属性 %s 不是数字: %q", key, v)
	}
	return f, nil
}

func (a *attrs) integer(key string, def int) (int, error) {
	f, err := a.num(key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (a *attrs) boolean(key string, def bool) (bool, error) {
	a.used[key] = true
	v, ok := a.vals[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, a.errorf("属性 %s 不是布尔值: %q", key, v)
	}
	return b, nil
}

// unused 返回行内写出却未被读取的属性。
func (a *attrs) unused() []string {
	var out []string
	for k := range a.vals {
		if !a.used[k] {
			out = append(out, k)
		}
	}
	return out
}

func (a *attrs) errorf(format string, args ...any) error {
	return fmt.Errorf("%s: %s: %s", a.cmd.Pos, a.cmd.Name, fmt.Sprintf(format, args...))
}

func parseColor(value string) (layout.Color, error) {
	hex := strings.TrimPrefix(value, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
		hex = hex[:6]
	default:
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return layout.Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	return layout.Color{R: int(v>>16&0xff), G: int(v>>8&0xff), B: int(v&0xff)}, nil
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(*stmt.Text))
		}
	}
	return builder.String()
}
