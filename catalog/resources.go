package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ByLCY/vitrina/binding"
	"github.com/ByLCY/vitrina/dsl"
	"github.com/ByLCY/vitrina/layout"
)

// Style 是一组可复用的属性，可通过 extends 继承另一个样式。
type Style struct {
	Name    string
	Extends string
	Props   map[string]string
}

// ResourceSet 汇总 resources 段中声明的字体、颜色与样式。
type ResourceSet struct {
	Fonts  map[string]layout.FontResource
	Colors map[string]layout.Color
	Styles map[string]Style
}

// fontVars 是字体路径中允许出现的占位符。
var fontVars = []string{"store", "design", "format"}

func newResourceSet() ResourceSet {
	return ResourceSet{
		Fonts: map[string]layout.FontResource{},
		Colors: map[string]layout.Color{
			"White": {R: 255, G: 255, B: 255},
			"Black": {},
		},
		Styles: map[string]Style{},
	}
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := newResourceSet()
	declared := map[string]Style{}
	for _, section := range doc.Sections {
		if section.Resources == nil {
			continue
		}
		for _, stmt := range section.Resources.Statements {
			cmd := stmt.Command
			if cmd == nil {
				continue
			}
			var err error
			switch cmd.Name {
			case "font":
				err = res.addFont(cmd)
			case "color":
				err = res.addColor(cmd)
			case "style":
				if len(cmd.Args) == 0 {
					err = fmt.Errorf("style 缺少名称")
					break
				}
				s := Style{Name: cmd.Args[0].Value, Props: properties(cmd.Block)}
				if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
					s.Extends = cmd.Args[2].Value
				}
				declared[s.Name] = s
			default:
				err = fmt.Errorf("未知资源类型 %s", cmd.Name)
			}
			if err != nil {
				return res, fmt.Errorf("%s: %w", cmd.Pos, err)
			}
		}
	}

	// 按名字排序，循环继承时报告的样式名稳定。
	for _, name := range slices.Sorted(maps.Keys(declared)) {
		s, err := flattenStyle(name, declared)
		if err != nil {
			return res, err
		}
		res.Styles[name] = s
	}
	return res, nil
}

// properties 收集块中的 key: value，忽略空值。
func properties(block *dsl.Block) map[string]string {
	props := map[string]string{}
	if block == nil {
		return props
	}
	for _, stmt := range block.Statements {
		if stmt.Property == nil {
			continue
		}
		if v := stmt.Property.Value.Text(); v != "" {
			props[stmt.Property.Key] = v
		}
	}
	return props
}

func (r ResourceSet) addFont(cmd *dsl.Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("font 缺少名称")
	}
	props := properties(cmd.Block)
	font := layout.FontResource{
		Name:     cmd.Args[0].Value,
		Src:      props["src"],
		Style:    props["style"],
		Fallback: props["fallback"],
	}
	if font.Src == "" && font.Fallback == "" {
		return fmt.Errorf("font %s 缺少 src", font.Name)
	}
	for _, name := range binding.Fields(font.Src + font.Fallback) {
		if !slices.Contains(fontVars, name) {
			return fmt.Errorf("font %s 引用了未知占位符 ${%s}", font.Name, name)
		}
	}
	r.Fonts[font.Name] = font
	return nil
}

// addColor 处理 `color Name = #RRGGBB`，等号可省略。
func (r ResourceSet) addColor(cmd *dsl.Command) error {
	if len(cmd.Args) < 2 {
		return fmt.Errorf("color 声明不完整")
	}
	c, err := parseColor(cmd.Args[len(cmd.Args)-1].Value)
	if err != nil {
		return err
	}
	r.Colors[cmd.Args[0].Value] = c
	return nil
}

// flattenStyle 沿 extends 链向上合并属性，子样式覆盖父样式。
func flattenStyle(name string, declared map[string]Style) (Style, error) {
	var chain []Style
	for cur := name; cur != ""; {
		s, ok := declared[cur]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", cur)
		}
		if slices.ContainsFunc(chain, func(c Style) bool { return c.Name == cur }) {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		chain = append(chain, s)
		cur = s.Extends
	}
	out := chain[0]
	out.Props = map[string]string{}
	for i := len(chain) - 1; i >= 0; i-- {
		maps.Copy(out.Props, chain[i].Props)
	}
	return out, nil
}

// fontsFor 为某个模板展开字体路径中的模板键占位符。
func (r ResourceSet) fontsFor(key layout.TemplateKey) map[string]layout.FontResource {
	return interpolateFonts(r.Fonts, key)
}

// interpolateFonts 展开 ${store}/${design}/${format}；通用门店 "*" 保留 ${store} 待查找时再展开。
func interpolateFonts(fonts map[string]layout.FontResource, key layout.TemplateKey) map[string]layout.FontResource {
	vars := binding.Vars{"design": key.Design, "format": key.Format}
	if key.Store != AnyStore {
		vars["store"] = key.Store
	}
	out := make(map[string]layout.FontResource, len(fonts))
	for name, f := range fonts {
		f.Src = binding.Expand(f.Src, vars)
		f.Fallback = binding.Expand(f.Fallback, vars)
		out[name] = f
	}
	return out
}

func (r ResourceSet) color(value string, def layout.Color) (layout.Color, error) {
	if value == "" {
		return def, nil
	}
	if c, ok := r.Colors[value]; ok {
		return c, nil
	}
	if strings.HasPrefix(value, "#") {
		return parseColor(value)
	}
	return layout.Color{}, fmt.Errorf("颜色 %s 未定义", value)
}
