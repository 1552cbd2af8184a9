package catalog

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/vitrina/layout"
)

const inlineCatalog = `
catalog Demo v1 {
  meta {
    title: "Demo"
    stores: ["EFE", "LC"]
    owner: "marketing"
  }

  resources {
    font Regular {
      src: "TIPOGRAFIA/${store}/Regular.ttf"
      fallback: "embed:go-regular"
    }
    font Bold {
      src: "TIPOGRAFIA/${store}/Bold.ttf"
      fallback: "embed:go-bold"
    }
    color Orange = #FFA002
    style Base {
      color: White
    }
    style Title extends Base {
      font: Bold
    }
  }

  template "*" EFERTON PPL {
    canvas width 1080 height 1080
    variant badge
    photo x 126 y 269 width 747 height 270
    text brand Title size 30 x 90 y 900 { "${brand}" }
    text name Title size 25 x 90 y 940 wrap 300 lines 2 advance 1.2x { "${name}" }
    text sku font Regular size 20 x 90 y 30 after name color Black { "SKU: ${sku}" }
    price Title size 90 symbol-size 35 x 840 y 910 tracking -3
    legal font Regular size 10 bold Bold left 90 top 998 right 910 spacing 1
  }

  template LC EFERTON PPL {
    canvas width 1000 height 1000
    variant standard
    text brand Title size 30 x 90 y 900 { "${brand}" }
    price font Bold size 80 x 91 y 830 gap 10 color Orange
  }
}
`

func mustParse(t *testing.T, src string) *Catalog {
	t.Helper()
	cat, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("编译 catalog 失败: %v", err)
	}
	return cat
}

func TestCompileInlineCatalog(t *testing.T) {
	cat := mustParse(t, inlineCatalog)
	if cat.Name != "Demo" || cat.Version != "v1" {
		t.Fatalf("catalog 名称或版本错误: %s %s", cat.Name, cat.Version)
	}
	if cat.Meta.Title != "Demo" || len(cat.Meta.Stores) != 2 || cat.Meta.Extra["owner"] != "marketing" {
		t.Fatalf("meta 解析错误: %+v", cat.Meta)
	}
	if cat.Len() != 2 {
		t.Fatalf("应有 2 个模板，实际 %d", cat.Len())
	}

	spec, err := cat.Lookup("EFE", "EFERTON", "PPL")
	if err != nil {
		t.Fatalf("查找模板失败: %v", err)
	}
	if spec.Width != 1080 || spec.Variant != layout.PriceBadge {
		t.Fatalf("画布或价格样式错误: %+v", spec)
	}
	if len(spec.Fields) != 3 {
		t.Fatalf("应有 3 个字段，实际 %d", len(spec.Fields))
	}
	brand := spec.Fields[0]
	if brand.Font != (layout.FontRef{Name: "Bold", Size: 30}) {
		t.Fatalf("样式继承的字体错误: %+v", brand.Font)
	}
	if brand.Color != (layout.Color{R: 255, G: 255, B: 255}) {
		t.Fatalf("样式继承的颜色错误: %+v", brand.Color)
	}
	name := spec.Fields[1]
	if name.Wrap == nil || name.Wrap.MaxLines != 2 || math.Abs(name.Wrap.Advance-30) > 1e-9 {
		t.Fatalf("折行参数错误: %+v", name.Wrap)
	}
	sku := spec.Fields[2]
	if sku.After != "name" || sku.Text != "SKU: ${sku}" || sku.Color != (layout.Color{}) {
		t.Fatalf("sku 字段错误: %+v", sku)
	}

	p := spec.Price
	if p == nil || p.Symbol != "S/" || p.Tracking != -3 {
		t.Fatalf("价格配置错误: %+v", p)
	}
	if p.SymbolFont != (layout.FontRef{Name: "Bold", Size: 35}) || p.NumeralFont.Size != 90 {
		t.Fatalf("价格字体错误: %+v / %+v", p.SymbolFont, p.NumeralFont)
	}
	if p.Badge.Height != 110 || p.Badge.Fill != (layout.Color{R: 0xFF, G: 0xA0, B: 0x02}) {
		t.Fatalf("价格牌默认样式错误: %+v", p.Badge)
	}

	l := spec.Legal
	if l == nil || l.Region.YEnd != 1080 || l.Region.XEnd != 910 {
		t.Fatalf("法律声明区域错误: %+v", l)
	}
	if l.Bold != (layout.FontRef{Name: "Bold", Size: 10}) || l.Opts.LineSpacing != 1 {
		t.Fatalf("法律声明字体或行距错误: %+v", l)
	}
}

func TestLookupWildcardInterpolatesStore(t *testing.T) {
	cat := mustParse(t, inlineCatalog)

	spec, err := cat.Lookup("efe", "eferton", "ppl")
	if err != nil {
		t.Fatalf("大小写不敏感查找失败: %v", err)
	}
	if spec.Key.Store != "efe" {
		t.Fatalf("通用模板应带上请求的门店: %+v", spec.Key)
	}
	if got := spec.Fonts["Regular"].Src; got != "TIPOGRAFIA/efe/Regular.ttf" {
		t.Fatalf("字体路径未展开门店: %s", got)
	}

	// 第二次查找不应受第一次展开影响。
	other, err := cat.Lookup("PLAZA", "EFERTON", "PPL")
	if err != nil {
		t.Fatalf("查找失败: %v", err)
	}
	if got := other.Fonts["Regular"].Src; got != "TIPOGRAFIA/PLAZA/Regular.ttf" {
		t.Fatalf("通用模板被修改: %s", got)
	}

	lc, err := cat.Lookup("LC", "EFERTON", "PPL")
	if err != nil {
		t.Fatalf("查找门店专属模板失败: %v", err)
	}
	if lc.Width != 1000 || lc.Variant != layout.PriceStandard {
		t.Fatalf("门店专属模板应优先于通用模板: %+v", lc)
	}
	if got := lc.Fonts["Bold"].Src; got != "TIPOGRAFIA/LC/Bold.ttf" {
		t.Fatalf("门店专属模板字体路径错误: %s", got)
	}

	if _, err := cat.Lookup("EFE", "EFERTON", "STORY"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("缺失模板应返回 ErrTemplateNotFound，实际 %v", err)
	}
}

func TestCompileErrors(t *testing.T) {
	wrap := func(body string) string {
		return `
catalog Bad v1 {
  resources {
    font Regular {
      src: "embed:go-regular"
    }
    style Loop extends Loop {
      color: White
    }
  }
` + body + `
}
`
	}
	noLoop := func(body string) string {
		return strings.Replace(wrap(body), "style Loop extends Loop", "style Plain", 1)
	}

	cases := []struct {
		name string
		src  string
		want string
		is   error
	}{
		{
			name: "style cycle",
			src:  wrap("template EFE X PPL {\n canvas width 10 height 10\n}"),
			want: "循环",
		},
		{
			name: "unknown attribute",
			src:  noLoop("template EFE X PPL {\n canvas width 10 height 10 depth 3\n}"),
			want: "depth",
		},
		{
			name: "unknown font",
			src:  noLoop("template EFE X PPL {\n canvas width 10 height 10\n text brand font Missing size 10 { \"${brand}\" }\n}"),
			is:   layout.ErrUnknownFont,
		},
		{
			name: "after references later field",
			src: noLoop("template EFE X PPL {\n canvas width 10 height 10\n" +
				" text sku font Regular size 10 after name { \"${sku}\" }\n" +
				" text name font Regular size 10 { \"${name}\" }\n}"),
			want: "name",
		},
		{
			name: "missing canvas",
			src:  noLoop("template EFE X PPL {\n variant badge\n}"),
			want: "canvas",
		},
		{
			name: "bottom outside cell",
			src:  noLoop("template EFE X PPL {\n canvas width 10 height 10\n text brand font Regular size 10 bottom true { \"${brand}\" }\n}"),
			want: "bottom",
		},
		{
			name: "unknown command",
			src:  noLoop("template EFE X PPL {\n canvas width 10 height 10\n barcode x 1 y 2\n}"),
			want: "barcode",
		},
		{
			name: "duplicate template",
			src: noLoop("template EFE X PPL {\n canvas width 10 height 10\n}\n" +
				"template efe x ppl {\n canvas width 10 height 10\n}"),
			want: "重复",
		},
		{
			name: "invalid hex color",
			src: strings.Replace(noLoop("template EFE X PPL {\n canvas width 10 height 10\n}"),
				"style Plain", "color Bad = \"#zzzzzz\"\n    style Plain", 1),
			want: "#zzzzzz",
		},
		{
			name: "invalid inline color",
			src: noLoop("template EFE X PPL {\n canvas width 10 height 10\n" +
				" text brand font Regular size 10 color \"#12g456\" { \"${brand}\" }\n}"),
			want: "#12g456",
		},
		{
			name: "font placeholder outside template key",
			src: strings.Replace(noLoop("template EFE X PPL {\n canvas width 10 height 10\n}"),
				`src: "embed:go-regular"`, `src: "TIPOGRAFIA/${sku}.ttf"`, 1),
			want: "${sku}",
		},
		{
			name: "tiers do not cover eight items",
			src: noLoop("template EFE X FLYER {\n canvas width 100 height 100\n" +
				" grid left 0 top 0 right 100 bottom 100 {\n  tier max 6 rows 3 height 20\n }\n}"),
			want: "分档",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.src))
			if err == nil {
				t.Fatalf("期望编译失败")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("错误应包装 %v，实际 %v", tc.is, err)
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("错误信息应包含 %q，实际 %v", tc.want, err)
			}
		})
	}
}

func TestLoadShippedCatalog(t *testing.T) {
	cat, err := LoadGlob("../catalogs/**/*.catalog")
	if err != nil {
		t.Fatalf("加载内置 catalog 失败: %v", err)
	}
	if cat.Len() != 8 {
		t.Fatalf("内置 catalog 应有 8 个模板，实际 %d", cat.Len())
	}

	record := layout.ProductRecord{
		Brand: "Samsung",
		Name:  "Refrigeradora No Frost 320 litros con dispensador",
		SKU:   "100200",
		Price: "1899.90",
		Legal: "Precios válidos del 1 al 31 de octubre o hasta agotar stock.",
		Photo: "foto.png",
		Extra: map[string]string{"flyer_date": "del 1 al 31 de octubre"},
	}
	for _, design := range []string{"EFERTON", "IRRESISTIBLE"} {
		for _, format := range []string{"PPL", "STORY", "DISPLAY", "FLYER"} {
			spec, err := cat.Lookup("EFE", design, format)
			if err != nil {
				t.Fatalf("%s/%s: %v", design, format, err)
			}
			if got := spec.Fonts["Medium"].Src; got != "TIPOGRAFIA/EFE/Poppins-Medium.ttf" {
				t.Fatalf("%s/%s 字体路径错误: %s", design, format, got)
			}
			records := []layout.ProductRecord{record}
			if spec.IsGrid() {
				records = []layout.ProductRecord{record, record, record, record, record}
			}
			res, err := layout.Render(records, spec, layout.RenderOptions{AllowEstimate: true})
			if err != nil {
				t.Fatalf("%s/%s 渲染失败: %v", design, format, err)
			}
			if len(res.Commands) == 0 {
				t.Fatalf("%s/%s 没有输出指令", design, format)
			}
		}
	}

	flyer, err := cat.Lookup("LC", "EFERTON", "FLYER")
	if err != nil {
		t.Fatalf("查找 flyer 模板失败: %v", err)
	}
	g := flyer.Grid
	if g == nil || len(g.Tiers) != 2 || g.Tiers[1].MaxItems != 8 {
		t.Fatalf("flyer 分档错误: %+v", g)
	}
	if g.Divider.Color != (layout.Color{R: 0x00, G: 0xAC, B: 0xDE}) {
		t.Fatalf("EFERTON 分隔线颜色错误: %+v", g.Divider.Color)
	}
	if len(flyer.Fields) != 1 || flyer.Fields[0].Pill == nil || !flyer.Fields[0].Upper {
		t.Fatalf("flyer 日期标签配置错误: %+v", flyer.Fields)
	}
}
