// Package source 读取商品表格（CSV），把每一行映射为 layout.ProductRecord 与其模板键。
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ByLCY/vitrina/layout"
)

// DefaultStore 是缺少门店列或门店为空时使用的门店。
const DefaultStore = "LC"

var ErrMissingColumn = errors.New("缺少必需列")

// Columns 把表头名映射到记录字段。PhotoAlt 在 Photo 为空时使用。
type Columns struct {
	Brand     string `toml:"brand"`
	Name      string `toml:"name"`
	SKU       string `toml:"sku"`
	Price     string `toml:"price"`
	Legal     string `toml:"legal"`
	Photo     string `toml:"photo"`
	PhotoAlt  string `toml:"photo_alt"`
	Store     string `toml:"store"`
	Design    string `toml:"design"`
	Format    string `toml:"format"`
	FlyerID   string `toml:"flyer_id"`
	FlyerDate string `toml:"flyer_date"`
}

// DefaultColumns 返回商品表的默认表头。
func DefaultColumns() Columns {
	return Columns{
		Brand:     "Marca",
		Name:      "Nombre del producto",
		SKU:       "SKU",
		Price:     "Precio desc",
		Legal:     "Legales",
		Photo:     "Foto del producto calado",
		PhotoAlt:  "Foto",
		Store:     "Tienda",
		Design:    "Tipo de diseño",
		Format:    "Formato",
		FlyerID:   "ID_Flyer",
		FlyerDate: "Fecha_disponibilidad_flyer",
	}
}

// withDefaults 用默认表头补齐未配置的列。
func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Columns{
		Brand:     pick(c.Brand, d.Brand),
		Name:      pick(c.Name, d.Name),
		SKU:       pick(c.SKU, d.SKU),
		Price:     pick(c.Price, d.Price),
		Legal:     pick(c.Legal, d.Legal),
		Photo:     pick(c.Photo, d.Photo),
		PhotoAlt:  pick(c.PhotoAlt, d.PhotoAlt),
		Store:     pick(c.Store, d.Store),
		Design:    pick(c.Design, d.Design),
		Format:    pick(c.Format, d.Format),
		FlyerID:   pick(c.FlyerID, d.FlyerID),
		FlyerDate: pick(c.FlyerDate, d.FlyerDate),
	}
}

// Row 是一行商品数据。Store、Design、Format 已去空格并转为大写。
type Row struct {
	Line    int
	Record  layout.ProductRecord
	Store   string
	Design  string
	Format  string
	FlyerID string
}

// Key 返回该行对应的模板键。
func (r Row) Key() layout.TemplateKey {
	return layout.TemplateKey{Store: r.Store, Design: r.Design, Format: r.Format}
}

// ReadFile 读取 CSV 文件。
func ReadFile(path string, cols Columns) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := Read(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Read 从 r 读取带表头的 CSV。设计类型与格式两列是必需的，其余列缺失时对应字段为空。
func Read(r io.Reader, cols Columns) ([]Row, error) {
	cols = cols.withDefaults()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	for _, required := range []string{cols.Design, cols.Format} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}

		store := strings.ToUpper(get(cols.Store))
		if store == "" {
			store = DefaultStore
		}
		row := Row{
			Line:    line,
			Store:   store,
			Design:  strings.ToUpper(get(cols.Design)),
			Format:  strings.ToUpper(get(cols.Format)),
			FlyerID: NormalizeID(get(cols.FlyerID)),
		}
		photo := get(cols.Photo)
		if photo == "" {
			photo = get(cols.PhotoAlt)
		}
		row.Record = layout.ProductRecord{
			Brand: get(cols.Brand),
			Name:  get(cols.Name),
			SKU:   NormalizeID(get(cols.SKU)),
			Price: get(cols.Price),
			Legal: get(cols.Legal),
			Photo: photo,
			Extra: map[string]string{
				"store":      row.Store,
				"design":     row.Design,
				"format":     row.Format,
				"flyer_id":   row.FlyerID,
				"flyer_date": get(cols.FlyerDate),
			},
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeID 去掉表格导出数字时附带的 ".0" 后缀，例如 "12.0" → "12"。
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") && isDigits(s[:len(s)-2]) {
		return s[:len(s)-2]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
