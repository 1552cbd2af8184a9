package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ByLCY/vitrina/dsl"
	"github.com/ByLCY/vitrina/layout"
)

// compiler 把一个 template 段落编译为 TemplateSpec。
type compiler struct {
	res  ResourceSet
	spec *layout.TemplateSpec
}

func compileTemplate(section *dsl.TemplateSection, res ResourceSet) (*layout.TemplateSpec, error) {
	key := layout.TemplateKey{
		Store:  strings.TrimSpace(string(section.Store)),
		Design: strings.TrimSpace(string(section.Design)),
		Format: strings.TrimSpace(string(section.Format)),
	}
	c := &compiler{
		res: res,
		spec: &layout.TemplateSpec{
			Key:   key,
			Fonts: res.fontsFor(key),
		},
	}
	if section.Body == nil {
		return nil, fmt.Errorf("%s: template %s 缺少内容", section.Pos, key)
	}
	legalBottom := false
	for _, stmt := range section.Body.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		var err error
		switch cmd.Name {
		case "canvas":
			err = c.canvas(cmd)
		case "background":
			if len(cmd.Args) == 0 {
				err = fmt.Errorf("%s: background 缺少路径", cmd.Pos)
			} else {
				c.spec.Background = cmd.Args[0].Value
			}
		case "variant":
			err = c.variant(cmd)
		case "photo":
			c.spec.Photo, err = c.photo(cmd)
		case "text", "pill":
			var f layout.FieldSpec
			f, err = c.field(cmd, false)
			c.spec.Fields = append(c.spec.Fields, f)
		case "price":
			c.spec.Price, err = c.price(cmd)
		case "legal":
			c.spec.Legal, legalBottom, err = c.legal(cmd)
		case "grid":
			c.spec.Grid, err = c.grid(cmd)
		default:
			err = fmt.Errorf("%s: 未知命令 %s", cmd.Pos, cmd.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", key, err)
		}
	}

	if !(c.spec.Width > 0) || !(c.spec.Height > 0) {
		return nil, fmt.Errorf("template %s: 缺少 canvas 尺寸", key)
	}
	if c.spec.Legal != nil && !legalBottom {
		c.spec.Legal.Region.YEnd = c.spec.Height
	}
	if err := checkAfter(c.spec.Fields); err != nil {
		return nil, fmt.Errorf("template %s: %w", key, err)
	}
	if c.spec.Grid != nil {
		if err := checkAfter(c.spec.Grid.Cell.Fields); err != nil {
			return nil, fmt.Errorf("template %s: %w", key, err)
		}
	}
	return c.spec, nil
}

func (c *compiler) canvas(cmd *dsl.Command) error {
	_, _, a := parseArgs(cmd, 0)
	var err error
	if c.spec.Width, err = a.num("width", 0); err != nil {
		return err
	}
	if c.spec.Height, err = a.num("height", 0); err != nil {
		return err
	}
	return c.finish(a)
}

func (c *compiler) variant(cmd *dsl.Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("%s: variant 缺少取值", cmd.Pos)
	}
	switch strings.ToLower(cmd.Args[0].Value) {
	case "badge":
		c.spec.Variant = layout.PriceBadge
	case "standard":
		c.spec.Variant = layout.PriceStandard
	default:
		return fmt.Errorf("%s: 未知价格样式 %s", cmd.Pos, cmd.Args[0].Value)
	}
	return nil
}

func (c *compiler) photo(cmd *dsl.Command) (*layout.PhotoSpec, error) {
	_, style, a := parseArgs(cmd, 0)
	if err := a.merge(style, c.res.Styles); err != nil {
		return nil, err
	}
	p := &layout.PhotoSpec{Align: strings.ToLower(a.str("align", ""))}
	var err error
	if p.X, err = a.num("x", 0); err != nil {
		return nil, err
	}
	if p.Y, err = a.num("y", 0); err != nil {
		return nil, err
	}
	if p.MaxWidth, err = a.num("width", 0); err != nil {
		return nil, err
	}
	if p.MaxHeight, err = a.num("height", 0); err != nil {
		return nil, err
	}
	return p, c.finish(a)
}

// field 编译 text/pill 命令：`text <id> [Style] key value ... { "内容" }`。
func (c *compiler) field(cmd *dsl.Command, inCell bool) (layout.FieldSpec, error) {
	head, style, a := parseArgs(cmd, 1)
	if len(head) == 0 {
		return layout.FieldSpec{}, a.errorf("缺少字段 ID")
	}
	if err := a.merge(style, c.res.Styles); err != nil {
		return layout.FieldSpec{}, err
	}
	f := layout.FieldSpec{
		ID:   head[0],
		Text: extractText(cmd.Block),
	}
	if f.Text == "" {
		f.Text = a.str("value", "")
	}
	if f.Text == "" {
		return f, a.errorf("字段 %s 缺少内容", f.ID)
	}

	var err error
	if f.X, err = a.num("x", 0); err != nil {
		return f, err
	}
	if f.Y, err = a.num("y", 0); err != nil {
		return f, err
	}
	if f.Bottom, err = a.boolean("bottom", false); err != nil {
		return f, err
	}
	if f.Bottom && !inCell {
		return f, a.errorf("bottom 只能用于网格单元内的字段")
	}
	f.After = a.str("after", "")
	switch anchor := layout.Anchor(strings.ToLower(a.str("anchor", "left"))); anchor {
	case layout.AnchorLeft, layout.AnchorMiddle, layout.AnchorTop:
		f.Anchor = anchor
	default:
		return f, a.errorf("未知锚点 %s", anchor)
	}
	if f.Font, err = c.fontRef(a, "font", "size"); err != nil {
		return f, err
	}
	if f.Color, err = c.colorAttr(a, "color", layout.Color{}); err != nil {
		return f, err
	}
	if f.MaxChars, err = a.integer("max-chars", 0); err != nil {
		return f, err
	}
	if f.Upper, err = a.boolean("upper", false); err != nil {
		return f, err
	}

	if a.has("wrap") {
		w := &layout.WrapSpec{}
		if w.Width, err = a.num("wrap", 0); err != nil {
			return f, err
		}
		if w.MaxLines, err = a.integer("lines", 0); err != nil {
			return f, err
		}
		if raw := a.str("advance", ""); raw != "" {
			if w.Advance, err = layout.ParseAdvance(raw, f.Font.Size); err != nil {
				return f, a.errorf("%v", err)
			}
		}
		f.Wrap = w
	}

	if cmd.Name == "pill" {
		p := &layout.PillSpec{}
		if p.PaddingX, err = a.num("padding", 20); err != nil {
			return f, err
		}
		if p.Height, err = a.num("height", 0); err != nil {
			return f, err
		}
		if p.Radius, err = a.num("radius", 10); err != nil {
			return f, err
		}
		if p.Fill, err = c.colorAttr(a, "fill", layout.DefaultBadgeStyle().Fill); err != nil {
			return f, err
		}
		f.Pill = p
	}
	return f, c.finish(a)
}

// price 编译价格字段。价格牌几何参数以 badge- 为前缀。
func (c *compiler) price(cmd *dsl.Command) (*layout.PriceSpec, error) {
	_, style, a := parseArgs(cmd, 0)
	if err := a.merge(style, c.res.Styles); err != nil {
		return nil, err
	}
	p := &layout.PriceSpec{Symbol: a.str("symbol", "S/")}
	var err error
	if p.X, err = a.num("x", 0); err != nil {
		return nil, err
	}
	if p.Y, err = a.num("y", 0); err != nil {
		return nil, err
	}
	if p.Bottom, err = a.boolean("bottom", false); err != nil {
		return nil, err
	}
	if p.NumeralFont, err = c.fontRef(a, "font", "size"); err != nil {
		return nil, err
	}
	p.SymbolFont = p.NumeralFont
	if a.has("symbol-font") || a.has("symbol-size") {
		if a.str("symbol-font", "") == "" {
			a.vals["symbol-font"] = p.NumeralFont.Name
		}
		if a.str("symbol-size", "") == "" {
			a.vals["symbol-size"] = fmt.Sprint(p.NumeralFont.Size)
		}
		if p.SymbolFont, err = c.fontRef(a, "symbol-font", "symbol-size"); err != nil {
			return nil, err
		}
	}
	orange := layout.DefaultBadgeStyle().Fill
	if p.Color, err = c.colorAttr(a, "color", orange); err != nil {
		return nil, err
	}
	if p.Gap, err = a.num("gap", 5); err != nil {
		return nil, err
	}
	if p.Scale, err = a.num("scale", 1); err != nil {
		return nil, err
	}
	if p.Tracking, err = a.num("tracking", 0); err != nil {
		return nil, err
	}

	b := layout.DefaultBadgeStyle()
	if b.Height, err = a.num("badge-height", b.Height); err != nil {
		return nil, err
	}
	if b.PaddingX, err = a.num("badge-padding", b.PaddingX); err != nil {
		return nil, err
	}
	if b.Gap, err = a.num("badge-gap", b.Gap); err != nil {
		return nil, err
	}
	if b.Radius, err = a.num("badge-radius", b.Radius); err != nil {
		return nil, err
	}
	if b.Fill, err = c.colorAttr(a, "badge-fill", b.Fill); err != nil {
		return nil, err
	}
	if b.TextColor, err = c.colorAttr(a, "badge-color", b.TextColor); err != nil {
		return nil, err
	}
	p.Badge = b
	return p, c.finish(a)
}

// legal 编译法律声明段落；第二个返回值表示是否显式给出了区域底边。
func (c *compiler) legal(cmd *dsl.Command) (*layout.LegalSpec, bool, error) {
	_, style, a := parseArgs(cmd, 0)
	if err := a.merge(style, c.res.Styles); err != nil {
		return nil, false, err
	}
	l := &layout.LegalSpec{Opts: layout.DefaultJustifyOptions()}
	var err error
	if l.Font, err = c.fontRef(a, "font", "size"); err != nil {
		return nil, false, err
	}
	if a.has("bold") {
		a.vals["bold-size"] = a.str("bold-size", fmt.Sprint(l.Font.Size))
		if l.Bold, err = c.fontRef(a, "bold", "bold-size"); err != nil {
			return nil, false, err
		}
	}
	if l.Color, err = c.colorAttr(a, "color", layout.Color{}); err != nil {
		return nil, false, err
	}
	r := &l.Region
	if r.XStart, err = a.num("left", 0); err != nil {
		return nil, false, err
	}
	if r.YStart, err = a.num("top", 0); err != nil {
		return nil, false, err
	}
	if r.XEnd, err = a.num("right", 0); err != nil {
		return nil, false, err
	}
	hasBottom := a.has("bottom")
	if r.YEnd, err = a.num("bottom", 0); err != nil {
		return nil, false, err
	}
	if a.has("label") {
		l.Opts.Label = a.str("label", "")
	}
	if l.Opts.BoldWords, err = a.integer("bold-words", l.Opts.BoldWords); err != nil {
		return nil, false, err
	}
	if l.Opts.MaxGapRatio, err = a.num("gap-ratio", l.Opts.MaxGapRatio); err != nil {
		return nil, false, err
	}
	if l.Opts.LineSpacing, err = a.num("spacing", 0); err != nil {
		return nil, false, err
	}
	if l.Opts.Justify, err = a.boolean("justify", true); err != nil {
		return nil, false, err
	}
	return l, hasBottom, c.finish(a)
}

// grid 编译网格：区域参数在命令行上，分档、分隔线与单元布局在块内。
func (c *compiler) grid(cmd *dsl.Command) (*layout.GridSpec, error) {
	_, _, a := parseArgs(cmd, 0)
	g := &layout.GridSpec{}
	var err error
	r := &g.Region
	if r.XStart, err = a.num("left", 0); err != nil {
		return nil, err
	}
	if r.YStart, err = a.num("top", 0); err != nil {
		return nil, err
	}
	if r.XEnd, err = a.num("right", 0); err != nil {
		return nil, err
	}
	if r.YEnd, err = a.num("bottom", 0); err != nil {
		return nil, err
	}
	if g.ColumnGap, err = a.num("column-gap", 20); err != nil {
		return nil, err
	}
	if g.RowGap, err = a.num("row-gap", 12); err != nil {
		return nil, err
	}
	if err := c.finish(a); err != nil {
		return nil, err
	}
	if err := g.Region.Validate(); err != nil {
		return nil, a.errorf("网格区域无效: %v", err)
	}
	g.Divider = layout.DividerSpec{Width: 2, Dash: 8, Gap: 8, Inset: 20, Color: layout.Color{R: 0x0A, G: 0x74, B: 0xDA}}

	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Command == nil {
				continue
			}
			sub := stmt.Command
			switch sub.Name {
			case "tier":
				t, err := c.tier(sub)
				if err != nil {
					return nil, err
				}
				g.Tiers = append(g.Tiers, t)
			case "divider":
				if err := c.divider(sub, &g.Divider); err != nil {
					return nil, err
				}
			case "cell":
				if err := c.cell(sub, &g.Cell); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("%s: grid 中的未知命令 %s", sub.Pos, sub.Name)
			}
		}
	}
	if len(g.Tiers) == 0 {
		g.Tiers = layout.DefaultGridTiers()
	}
	sort.SliceStable(g.Tiers, func(i, j int) bool { return g.Tiers[i].MaxItems < g.Tiers[j].MaxItems })
	if last := g.Tiers[len(g.Tiers)-1]; last.MaxItems < layout.MaxGridItems {
		return nil, fmt.Errorf("%s: 分档最多只容纳 %d 个商品，需要覆盖到 %d", cmd.Pos, last.MaxItems, layout.MaxGridItems)
	}
	return g, nil
}

func (c *compiler) tier(cmd *dsl.Command) (layout.GridTier, error) {
	_, _, a := parseArgs(cmd, 0)
	var t layout.GridTier
	var err error
	if t.MaxItems, err = a.integer("max", 0); err != nil {
		return t, err
	}
	if t.Rows, err = a.integer("rows", 0); err != nil {
		return t, err
	}
	if t.CellHeight, err = a.num("height", 0); err != nil {
		return t, err
	}
	if t.PhotoWidth, err = a.num("photo-width", 0); err != nil {
		return t, err
	}
	if t.PhotoHeight, err = a.num("photo-height", 0); err != nil {
		return t, err
	}
	if t.BadgeScale, err = a.num("scale", 1); err != nil {
		return t, err
	}
	if t.MaxItems <= 0 || t.Rows <= 0 || t.CellHeight <= 0 {
		return t, a.errorf("tier 需要正的 max/rows/height")
	}
	return t, c.finish(a)
}

func (c *compiler) divider(cmd *dsl.Command, d *layout.DividerSpec) error {
	if len(cmd.Args) == 1 && strings.EqualFold(cmd.Args[0].Value, "none") {
		d.Disable = true
		return nil
	}
	_, _, a := parseArgs(cmd, 0)
	var err error
	if d.Color, err = c.colorAttr(a, "color", d.Color); err != nil {
		return err
	}
	if d.Width, err = a.num("width", d.Width); err != nil {
		return err
	}
	if d.Dash, err = a.num("dash", d.Dash); err != nil {
		return err
	}
	if d.Gap, err = a.num("gap", d.Gap); err != nil {
		return err
	}
	if d.Inset, err = a.num("inset", d.Inset); err != nil {
		return err
	}
	return c.finish(a)
}

func (c *compiler) cell(cmd *dsl.Command, cell *layout.CellSpec) error {
	if cmd.Block == nil {
		return fmt.Errorf("%s: cell 缺少内容", cmd.Pos)
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		sub := stmt.Command
		var err error
		switch sub.Name {
		case "photo":
			cell.Photo, err = c.photo(sub)
		case "text", "pill":
			var f layout.FieldSpec
			f, err = c.field(sub, true)
			cell.Fields = append(cell.Fields, f)
		case "price":
			cell.Price, err = c.price(sub)
		default:
			err = fmt.Errorf("%s: cell 中的未知命令 %s", sub.Pos, sub.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) fontRef(a *attrs, fontKey, sizeKey string) (layout.FontRef, error) {
	name := a.str(fontKey, "")
	if name == "" {
		return layout.FontRef{}, a.errorf("缺少 %s", fontKey)
	}
	if _, ok := c.spec.Fonts[name]; !ok {
		return layout.FontRef{}, fmt.Errorf("%s: %s: %w: %s", a.cmd.Pos, a.cmd.Name, layout.ErrUnknownFont, name)
	}
	size, err := a.num(sizeKey, 0)
	if err != nil {
		return layout.FontRef{}, err
	}
	if size <= 0 {
		return layout.FontRef{}, a.errorf("字体 %s 缺少正的 %s", name, sizeKey)
	}
	return layout.FontRef{Name: name, Size: size}, nil
}

func (c *compiler) colorAttr(a *attrs, key string, def layout.Color) (layout.Color, error) {
	col, err := c.res.color(a.str(key, ""), def)
	if err != nil {
		return col, a.errorf("%v", err)
	}
	return col, nil
}

func (c *compiler) finish(a *attrs) error {
	if extra := a.unused(); len(extra) > 0 {
		sort.Strings(extra)
		return a.errorf("未知属性 %s", strings.Join(extra, ", "))
	}
	return nil
}

// checkAfter 确保 after 引用的字段出现在引用者之前。
func checkAfter(fields []layout.FieldSpec) error {
	seen := map[string]bool{}
	for _, f := range fields {
		if f.After != "" && !seen[f.After] {
			return fmt.Errorf("字段 %s 引用了未在其之前声明的字段 %s", f.ID, f.After)
		}
		seen[f.ID] = true
	}
	return nil
}
