package layout

import (
	"fmt"
	"math"
)

// MaxGridItems 是一个网格模板最多容纳的商品数。
const MaxGridItems = 8

// GridColumns 是网格的固定列数。
const GridColumns = 2

// DefaultGridTiers 返回原始传单使用的两档配置：不超过 6 个商品用 3 行大格，否则 4 行小格。
func DefaultGridTiers() []GridTier {
	return []GridTier{
		{MaxItems: 6, Rows: 3, CellHeight: 430, PhotoWidth: 434, PhotoHeight: 292, BadgeScale: 0.55},
		{MaxItems: 8, Rows: 4, CellHeight: 340, PhotoWidth: 350, PhotoHeight: 220, BadgeScale: 0.45},
	}
}

// Grid 是一次网格分配的结果。
type Grid struct {
	Tier    GridTier   `json:"tier"`
	Cells   []GridCell `json:"cells"`
	OffsetY float64    `json:"offsetY"` // 第一行顶部相对区域顶部的偏移
	Content float64    `json:"content"` // 内容块总高度
}

// SelectTier 返回第一个能容纳 itemCount 的档位。
func SelectTier(itemCount int, tiers []GridTier) (GridTier, bool) {
	for _, t := range tiers {
		if itemCount <= t.MaxItems {
			return t, true
		}
	}
	return GridTier{}, false
}

// Allocate 为 itemCount 个商品在 region 内分配单元格：按数量选档，两列，行优先、先左后右，
// 整个内容块在区域内垂直居中。
func Allocate(itemCount int, region Region, spec GridSpec) (Grid, error) {
	if err := region.Validate(); err != nil {
		return Grid{}, configErr("grid", err)
	}
	if itemCount < 1 || itemCount > MaxGridItems {
		return Grid{}, configErr("grid", fmt.Errorf("%w: %d", ErrGridItems, itemCount))
	}
	tiers := spec.Tiers
	if len(tiers) == 0 {
		tiers = DefaultGridTiers()
	}
	tier, ok := SelectTier(itemCount, tiers)
	if !ok {
		return Grid{}, configErr("grid", fmt.Errorf("%w: 没有容纳 %d 个商品的档位", ErrGridItems, itemCount))
	}
	if tier.Rows*GridColumns < itemCount {
		return Grid{}, configErr("grid", fmt.Errorf("%w: %d 行放不下 %d 个商品", ErrGridOverflow, tier.Rows, itemCount))
	}

	content := float64(tier.Rows)*tier.CellHeight + float64(tier.Rows-1)*spec.RowGap
	if content > region.Height() {
		return Grid{}, configErr("grid", fmt.Errorf("%w: 内容高度 %g 大于区域高度 %g", ErrGridOverflow, content, region.Height()))
	}
	cellWidth := (region.Width() - spec.ColumnGap*(GridColumns-1)) / GridColumns
	if cellWidth <= 0 {
		return Grid{}, configErr("grid", ErrDegenerateRegion)
	}

	offset := (region.Height() - content) / 2
	top := region.YStart + offset
	cells := make([]GridCell, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		row, col := i/GridColumns, i%GridColumns
		x := region.XStart + float64(col)*(cellWidth+spec.ColumnGap)
		y := top + float64(row)*(tier.CellHeight+spec.RowGap)
		cells = append(cells, GridCell{
			Index:  i,
			Row:    row,
			Column: col,
			Box:    Region{XStart: x, YStart: y, XEnd: x + cellWidth, YEnd: y + tier.CellHeight},
		})
	}
	return Grid{Tier: tier, Cells: cells, OffsetY: offset, Content: content}, nil
}

// VerticalDivider 报告第 index 个单元格右侧是否需要竖向分隔：左格且右格有商品。
func VerticalDivider(index, itemCount int) bool {
	return index%GridColumns == 0 && index+1 < itemCount
}

// HorizontalDivider 报告第 row 行下方是否需要横向分隔：仅当还有下一行商品。
func HorizontalDivider(row, itemCount int) bool {
	rows := (itemCount + GridColumns - 1) / GridColumns
	return row+1 < rows
}

// dividerCommands 为已分配的网格生成点线分隔指令。
func dividerCommands(g Grid, itemCount int, spec GridSpec) []DrawCommand {
	d := spec.Divider
	if d.Disable {
		return nil
	}
	var cmds []DrawCommand
	for _, cell := range g.Cells {
		if !VerticalDivider(cell.Index, itemCount) {
			continue
		}
		x := cell.Box.XEnd + spec.ColumnGap/2
		from := Point{X: x, Y: cell.Box.YStart + d.Inset}
		to := Point{X: x, Y: cell.Box.YEnd - d.Inset}
		cmds = append(cmds, dottedLine(from, to, d))
	}
	for _, cell := range g.Cells {
		if cell.Column != 0 || !HorizontalDivider(cell.Row, itemCount) {
			continue
		}
		y := cell.Box.YEnd + spec.RowGap/2
		from := Point{X: spec.Region.XStart + d.Inset, Y: y}
		to := Point{X: spec.Region.XEnd - d.Inset, Y: y}
		cmds = append(cmds, dottedLine(from, to, d))
	}
	return cmds
}

// dottedLine 将 from→to 拆成长度为 Dash、间隔为 Gap 的线段。
func dottedLine(from, to Point, d DividerSpec) DrawCommand {
	dash, gap, width := d.Dash, d.Gap, d.Width
	if dash <= 0 {
		dash = 8
	}
	if gap < 0 {
		gap = 0
	}
	if width <= 0 {
		width = 2
	}
	dx, dy := to.X-from.X, to.Y-from.Y
	dist := math.Hypot(dx, dy)
	var segs []Segment
	if dist > 0 {
		ux, uy := dx/dist, dy/dist
		for s := 0.0; s < dist; s += dash + gap {
			e := math.Min(s+dash, dist)
			segs = append(segs, Segment{
				From: Point{X: from.X + ux*s, Y: from.Y + uy*s},
				To:   Point{X: from.X + ux*e, Y: from.Y + uy*e},
			})
		}
	}
	return DrawCommand{Kind: KindLine, Line: &LineCommand{Segments: segs, Color: d.Color, Width: width}}
}
