package source

import (
	"errors"
	"strings"
	"testing"
)

const sheet = "\uFEFFMarca,Nombre del producto,SKU,Precio desc,Legales,Foto del producto calado,Foto,Tienda,Tipo de diseño,Formato,ID_Flyer,Fecha_disponibilidad_flyer\n" +
	"Samsung,Televisor 55\",123456.0,1299,Válido hasta agotar stock,,http://img/1.png,efe ,eferton,ppl,0,\n" +
	",,,,,,,,,,,\n" +
	"LG,Monitor,777,499,,http://img/2.png,http://img/alt.png,,Irresistible,Flyer,12.0,del 1 al 7 de julio\n"

func TestReadMapsColumns(t *testing.T) {
	rows, err := Read(strings.NewReader(sheet), Columns{})
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("空行应被跳过，实际 %d 行", len(rows))
	}

	first := rows[0]
	if first.Line != 2 || first.Store != "EFE" || first.Design != "EFERTON" || first.Format != "PPL" {
		t.Fatalf("模板键解析错误: %+v", first)
	}
	if first.Record.SKU != "123456" || first.Record.Name != `Televisor 55"` {
		t.Fatalf("商品字段解析错误: %+v", first.Record)
	}
	if first.Record.Photo != "http://img/1.png" {
		t.Fatalf("主图为空时应使用备用图: %q", first.Record.Photo)
	}
	if first.FlyerID != "0" {
		t.Fatalf("flyer id 应规范化: %q", first.FlyerID)
	}

	second := rows[1]
	if second.Line != 4 || second.Store != DefaultStore {
		t.Fatalf("缺少门店时应使用 %s: %+v", DefaultStore, second)
	}
	if second.Record.Photo != "http://img/2.png" {
		t.Fatalf("应优先使用主图: %q", second.Record.Photo)
	}
	if second.FlyerID != "12" || second.Record.Extra["flyer_date"] != "del 1 al 7 de julio" {
		t.Fatalf("flyer 字段解析错误: %+v", second)
	}
	if k := second.Key(); k.String() != "LC/IRRESISTIBLE/FLYER" {
		t.Fatalf("模板键错误: %s", k)
	}
}

func TestReadCustomColumns(t *testing.T) {
	data := "brand,design,format\nSony,EFERTON,STORY\n"
	rows, err := Read(strings.NewReader(data), Columns{Brand: "brand", Design: "design", Format: "format"})
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if len(rows) != 1 || rows[0].Record.Brand != "Sony" || rows[0].Record.SKU != "" {
		t.Fatalf("自定义列映射错误: %+v", rows)
	}
}

func TestReadMissingRequiredColumn(t *testing.T) {
	_, err := Read(strings.NewReader("Marca,Formato\nLG,PPL\n"), Columns{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("缺少设计类型列应报错，实际 %v", err)
	}
	rows, err := Read(strings.NewReader(""), Columns{})
	if err != nil || rows != nil {
		t.Fatalf("空输入应返回空结果: %v", err)
	}
}

func TestNormalizeID(t *testing.T) {
	cases := map[string]string{"12.0": "12", " 7 ": "7", "0.0": "0", "A1.0": "A1.0", "": "", "3.05": "3.05"}
	for in, want := range cases {
		if got := NormalizeID(in); got != want {
			t.Fatalf("NormalizeID(%q)=%q want %q", in, got, want)
		}
	}
}
