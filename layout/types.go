package layout

// 该文件定义渲染引擎的输入（商品记录、模板配置）与输出（绘制指令），供引擎、合成器与调试 JSON 共用。
// 所有坐标均为画布像素，原点在左上角，y 轴向下。

// ProductRecord 是一条商品数据，由外部数据源创建，引擎只读使用。
type ProductRecord struct {
	Brand string `json:"brand"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Price string `json:"price"` // 已格式化的价格字符串，可能带小数
	Legal string `json:"legal"`
	Photo string `json:"photo,omitempty"` // 不透明的图片引用（URL 或路径）
	// Extra 保存模板可引用的其它列（例如 flyer_date、store）。
	Extra map[string]string `json:"extra,omitempty"`
}

// Values 返回供 ${...} 占位符解析使用的字段映射。
func (p ProductRecord) Values() map[string]string {
	out := map[string]string{
		"brand": p.Brand,
		"name":  p.Name,
		"sku":   p.SKU,
		"price": p.Price,
		"legal": p.Legal,
		"photo": p.Photo,
	}
	for k, v := range p.Extra {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	return out
}

// Point 是画布上的一个点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region 是画布中的矩形区域，作为折行与网格分配的边界。
type Region struct {
	XStart float64 `json:"xStart"`
	YStart float64 `json:"yStart"`
	XEnd   float64 `json:"xEnd"`
	YEnd   float64 `json:"yEnd"`
}

func (r Region) Width() float64  { return r.XEnd - r.XStart }
func (r Region) Height() float64 { return r.YEnd - r.YStart }

// Validate 检查区域是否退化（宽或高非正）。
func (r Region) Validate() error {
	if !(r.Width() > 0) || !(r.Height() > 0) {
		return ErrDegenerateRegion
	}
	return nil
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// FontResource 描述字体资源，src 可以是文件路径或 embed:* 内置字体。
type FontResource struct {
	Name     string `json:"name"`
	Src      string `json:"src"`
	Style    string `json:"style"`
	Fallback string `json:"fallback"`
}

// FontRef 是绘制指令中引用的字体：资源名 + 像素字号。
type FontRef struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

// PriceStyle 选择价格的绘制方式。
type PriceStyle int

const (
	PriceStandard PriceStyle = iota // 货币符号 + 数字
	PriceBadge                      // 圆角底色的价格牌
)

func (s PriceStyle) String() string {
	if s == PriceBadge {
		return "badge"
	}
	return "standard"
}

// Anchor 决定文本坐标的含义。
type Anchor string

const (
	AnchorLeft   Anchor = "left"   // (x, y) 为左侧基线
	AnchorMiddle Anchor = "middle" // (x, y) 为文本中心
	AnchorTop    Anchor = "top"    // (x, y) 为左上角
)

// TemplateKey 标识一个模板：门店 / 设计类型 / 输出格式。
type TemplateKey struct {
	Store  string `json:"store"`
	Design string `json:"design"`
	Format string `json:"format"`
}

func (k TemplateKey) String() string { return k.Store + "/" + k.Design + "/" + k.Format }

// TemplateSpec 是一个模板的完整几何与样式配置，渲染时只读。
type TemplateSpec struct {
	Key        TemplateKey             `json:"key"`
	Width      float64                 `json:"width"`
	Height     float64                 `json:"height"`
	Background string                  `json:"background"`
	Variant    PriceStyle              `json:"variant"`
	Fonts      map[string]FontResource `json:"fonts"`
	// Fields 在单品模板中是绝对坐标；在网格模板中是模板级元素（例如日期标签），使用第一条记录。
	Fields []FieldSpec `json:"fields,omitempty"`
	Photo  *PhotoSpec  `json:"photo,omitempty"`
	Price  *PriceSpec  `json:"price,omitempty"`
	Legal  *LegalSpec  `json:"legal,omitempty"`
	Grid   *GridSpec   `json:"grid,omitempty"`
}

// IsGrid reports whether the template lays out a group of records.
func (s *TemplateSpec) IsGrid() bool { return s.Grid != nil }

// FieldSpec 描述一个文本字段。Text 支持 ${brand} 形式的占位符。
type FieldSpec struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Bottom bool    `json:"bottom,omitempty"` // Y 相对单元格底边（仅网格）
	// After 引用前一个字段的 ID：Y 变为该字段最后一行基线之后的偏移。
	After    string    `json:"after,omitempty"`
	Anchor   Anchor    `json:"anchor"`
	Font     FontRef   `json:"font"`
	Color    Color     `json:"color"`
	MaxChars int       `json:"maxChars,omitempty"`
	Upper    bool      `json:"upper,omitempty"`
	Wrap     *WrapSpec `json:"wrap,omitempty"`
	Pill     *PillSpec `json:"pill,omitempty"`
}

// WrapSpec 让字段按测量宽度折行，最多 MaxLines 行，行距 Advance。
type WrapSpec struct {
	Width    float64 `json:"width"`
	MaxLines int     `json:"maxLines"`
	Advance  float64 `json:"advance"`
}

// PillSpec 在文本后绘制一个贴合文本宽度的圆角底框。
type PillSpec struct {
	PaddingX float64 `json:"paddingX"`
	Height   float64 `json:"height"`
	Radius   float64 `json:"radius"`
	Fill     Color   `json:"fill"`
}

// PhotoSpec 描述商品图的目标位置与最大尺寸；Align 为 center 时 X 表示中心线。
type PhotoSpec struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	MaxWidth  float64 `json:"maxWidth"`
	MaxHeight float64 `json:"maxHeight"`
	Align     string  `json:"align,omitempty"`
}

// PriceSpec 描述价格字段。标准样式下 (X, Y) 为符号的左基线；价格牌样式下为牌子中心。
type PriceSpec struct {
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Bottom      bool       `json:"bottom,omitempty"`
	Symbol      string     `json:"symbol"`
	SymbolFont  FontRef    `json:"symbolFont"`
	NumeralFont FontRef    `json:"numeralFont"`
	Color       Color      `json:"color"`
	Gap         float64    `json:"gap"`
	Scale       float64    `json:"scale"`
	Tracking    float64    `json:"tracking"`
	Badge       BadgeStyle `json:"badge"`
}

// LegalSpec 描述法律声明段落的区域与排版参数。
type LegalSpec struct {
	Region Region         `json:"region"`
	Font   FontRef        `json:"font"`
	Bold   FontRef        `json:"bold"`
	Color  Color          `json:"color"`
	Opts   JustifyOptions `json:"opts"`
}

// GridSpec 描述多商品模板的网格区域与分档。Cell 中的坐标相对单元格左上角。
type GridSpec struct {
	Region    Region      `json:"region"`
	ColumnGap float64     `json:"columnGap"`
	RowGap    float64     `json:"rowGap"`
	Tiers     []GridTier  `json:"tiers"`
	Divider   DividerSpec `json:"divider"`
	Cell      CellSpec    `json:"cell"`
}

// GridTier 是按商品数量选择的一档行列配置。
type GridTier struct {
	MaxItems    int     `json:"maxItems"`
	Rows        int     `json:"rows"`
	CellHeight  float64 `json:"cellHeight"`
	PhotoWidth  float64 `json:"photoWidth"`
	PhotoHeight float64 `json:"photoHeight"`
	BadgeScale  float64 `json:"badgeScale"`
}

// DividerSpec 描述单元格之间的点线分隔。
type DividerSpec struct {
	Color   Color   `json:"color"`
	Width   float64 `json:"width"`
	Dash    float64 `json:"dash"`
	Gap     float64 `json:"gap"`
	Inset   float64 `json:"inset"`
	Disable bool    `json:"disable,omitempty"`
}

// CellSpec 是每个网格单元内重复的字段布局。
type CellSpec struct {
	Fields []FieldSpec `json:"fields,omitempty"`
	Photo  *PhotoSpec  `json:"photo,omitempty"`
	Price  *PriceSpec  `json:"price,omitempty"`
}

// GridCell 是一次网格分配中的单元。
type GridCell struct {
	Index  int    `json:"index"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Box    Region `json:"box"`
}

// CommandKind 标识绘制指令的种类。
type CommandKind string

const (
	KindText  CommandKind = "text"
	KindGlyph CommandKind = "glyph"
	KindRect  CommandKind = "rect"
	KindLine  CommandKind = "line"
	KindImage CommandKind = "image"
)

// DrawCommand 是引擎唯一的输出：一个带标签的变体，只有与 Kind 对应的字段非空。
type DrawCommand struct {
	Kind  CommandKind   `json:"kind"`
	Text  *TextCommand  `json:"text,omitempty"`
	Glyph *GlyphCommand `json:"glyph,omitempty"`
	Rect  *RectCommand  `json:"rect,omitempty"`
	Line  *LineCommand  `json:"line,omitempty"`
	Image *ImageCommand `json:"image,omitempty"`
}

// TextCommand 在左侧基线 (X, Y) 处绘制一段文本。
type TextCommand struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"content"`
	Font    FontRef `json:"font"`
	Color   Color   `json:"color"`
	Width   float64 `json:"width"`
}

// GlyphCommand 在左侧基线 (X, Y) 处绘制单个字符。
type GlyphCommand struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Char  string  `json:"char"`
	Font  FontRef `json:"font"`
	Color Color   `json:"color"`
}

// RectCommand 绘制（圆角）矩形；Fill 与 Stroke 为空表示不填充 / 不描边。
type RectCommand struct {
	Box         Region  `json:"box"`
	Radius      float64 `json:"radius"`
	Fill        *Color  `json:"fill,omitempty"`
	Stroke      *Color  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Segment 是一条线段。
type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// LineCommand 绘制若干线段（点线由多段组成）。
type LineCommand struct {
	Segments []Segment `json:"segments"`
	Color    Color     `json:"color"`
	Width    float64   `json:"width"`
}

// ImageCommand 在给定位置粘贴等比缩小后的图片。Align 为 center 时 X 为中心线。
type ImageCommand struct {
	Ref       string  `json:"ref"`
	Record    int     `json:"record"` // 图片所属的记录序号，用于报告加载失败
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	MaxWidth  float64 `json:"maxWidth"`
	MaxHeight float64 `json:"maxHeight"`
	Align     string  `json:"align,omitempty"`
}

// Result 是一次渲染的完整输出。
type Result struct {
	Key        TemplateKey             `json:"key"`
	Width      float64                 `json:"width"`
	Height     float64                 `json:"height"`
	Background string                  `json:"background"`
	Fonts      map[string]FontResource `json:"fonts"`
	Commands   []DrawCommand           `json:"commands"`
	Warnings   []Warning               `json:"warnings,omitempty"`
}
