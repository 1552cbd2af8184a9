package binding

import (
	"reflect"
	"testing"
)

func TestExpand(t *testing.T) {
	vars := Vars{"store": "EFE", "design": "EFERTON"}
	if got := Expand("FONDOS/${store}/${ design }/${format}.jpg", vars); got != "FONDOS/EFE/EFERTON/${format}.jpg" {
		t.Fatalf("展开结果错误: %q", got)
	}
	if got := Expand("embed:go-regular", nil); got != "embed:go-regular" {
		t.Fatalf("无占位符的文本应原样返回: %q", got)
	}
}

func TestResolveReportsMissing(t *testing.T) {
	vars := Vars{"brand": "LG", "name": "  ", "price": "1299"}
	out, missing := Resolve("${brand}|${name}|${sku}|${price}|${sku}", vars)
	if out != "LG|  |${sku}|1299|${sku}" {
		t.Fatalf("解析结果错误: %q", out)
	}
	if !reflect.DeepEqual(missing, []string{"name", "sku"}) {
		t.Fatalf("缺失字段应按出现顺序去重: %v", missing)
	}
}

func TestResolveNilVars(t *testing.T) {
	out, missing := Resolve("SKU: ${sku}", nil)
	if out != "SKU: ${sku}" || len(missing) != 1 || missing[0] != "sku" {
		t.Fatalf("空取值表应保留占位符并报告缺失: %q %v", out, missing)
	}
}

func TestFields(t *testing.T) {
	got := Fields("${brand} ${name} - ${brand} ${flyer_date}")
	if !reflect.DeepEqual(got, []string{"brand", "name", "flyer_date"}) {
		t.Fatalf("字段列表错误: %v", got)
	}
}
