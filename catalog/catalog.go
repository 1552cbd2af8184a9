// Package catalog compiles catalog DSL files into layout.TemplateSpec values
// and looks them up by store, design and format.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ByLCY/vitrina/dsl"
	"github.com/ByLCY/vitrina/layout"
)

// AnyStore 作为模板的门店名时匹配任意门店。
const AnyStore = "*"

// ErrTemplateNotFound 表示没有与 (store, design, format) 匹配的模板。
var ErrTemplateNotFound = errors.New("模板不存在")

// Meta 是 meta 段中的元数据。
type Meta struct {
	Title  string
	Stores []string
	Extra  map[string]string
}

// Catalog 是一组已编译、只读的模板；编译后可被多个 goroutine 并发读取。
type Catalog struct {
	Name      string
	Version   string
	Meta      Meta
	templates map[string]*layout.TemplateSpec
}

// Parse 读取并编译一个 catalog 文件。
func Parse(r io.Reader) (*Catalog, error) {
	doc, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 catalog 失败: %w", err)
	}
	return Compile(doc)
}

// LoadFile 从路径读取并编译 catalog。
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取 catalog 失败: %w", err)
	}
	defer f.Close()
	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// LoadGlob 编译所有匹配 pattern 的文件并合并为一个 catalog（支持 ** 与 {a,b}）。
// 同一模板键在多个文件中出现视为错误。
func LoadGlob(pattern string) (*Catalog, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("catalog 路径模式 %q 无效: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("没有文件匹配 %q", pattern)
	}
	sort.Strings(paths)
	var merged *Catalog
	for _, p := range paths {
		cat, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = cat
			continue
		}
		if err := merged.Merge(cat); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return merged, nil
}

// Compile 将 AST 编译为 Catalog。
func Compile(doc *dsl.Document) (*Catalog, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	cat := &Catalog{
		Name:      doc.Name,
		Version:   doc.Version,
		Meta:      collectMeta(doc),
		templates: map[string]*layout.TemplateSpec{},
	}
	for _, section := range doc.Sections {
		if section.Template == nil {
			continue
		}
		spec, err := compileTemplate(section.Template, res)
		if err != nil {
			return nil, err
		}
		if err := cat.add(spec); err != nil {
			return nil, err
		}
	}
	if len(cat.templates) == 0 {
		return nil, fmt.Errorf("catalog %s 中没有模板", doc.Name)
	}
	return cat, nil
}

func collectMeta(doc *dsl.Document) Meta {
	meta := Meta{Extra: map[string]string{}}
	for _, section := range doc.Sections {
		if section.Meta == nil {
			continue
		}
		for _, stmt := range section.Meta.Statements {
			if stmt.Property == nil {
				continue
			}
			switch key := strings.ToLower(stmt.Property.Key); key {
			case "title":
				meta.Title = stmt.Property.Value.Text()
			case "stores":
				meta.Stores = stmt.Property.Value.Strings()
			default:
				meta.Extra[key] = stmt.Property.Value.Text()
			}
		}
	}
	return meta
}

func normKey(store, design, format string) string {
	return strings.ToUpper(strings.TrimSpace(store)) + "\x00" +
		strings.ToUpper(strings.TrimSpace(design)) + "\x00" +
		strings.ToUpper(strings.TrimSpace(format))
}

func (c *Catalog) add(spec *layout.TemplateSpec) error {
	k := normKey(spec.Key.Store, spec.Key.Design, spec.Key.Format)
	if _, dup := c.templates[k]; dup {
		return fmt.Errorf("模板 %s 重复定义", spec.Key)
	}
	c.templates[k] = spec
	return nil
}

// Merge 将 other 的模板并入 c。
func (c *Catalog) Merge(other *Catalog) error {
	for _, spec := range other.templates {
		if err := c.add(spec); err != nil {
			return err
		}
	}
	c.Meta.Stores = append(c.Meta.Stores, other.Meta.Stores...)
	return nil
}

// Lookup 按 (store, design, format) 查找模板，大小写不敏感；
// 找不到门店专属模板时退回门店名为 "*" 的通用模板。
func (c *Catalog) Lookup(store, design, format string) (*layout.TemplateSpec, error) {
	if spec, ok := c.templates[normKey(store, design, format)]; ok {
		return spec, nil
	}
	if spec, ok := c.templates[normKey(AnyStore, design, format)]; ok {
		clone := *spec
		clone.Key.Store = store
		clone.Fonts = interpolateFonts(spec.Fonts, clone.Key)
		return &clone, nil
	}
	return nil, fmt.Errorf("%w: %s/%s/%s", ErrTemplateNotFound, store, design, format)
}

// Keys 返回全部模板键，按字符串排序。
func (c *Catalog) Keys() []layout.TemplateKey {
	keys := make([]layout.TemplateKey, 0, len(c.templates))
	for _, spec := range c.templates {
		keys = append(keys, spec.Key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Len 返回模板数量。
func (c *Catalog) Len() int { return len(c.templates) }
