package layout

import (
	"errors"
	"fmt"
)

var (
	ErrDegenerateRegion = errors.New("区域宽度或高度非正")
	ErrNoMetrics        = errors.New("缺少字体度量提供者")
	ErrUnknownFont      = errors.New("字体未定义")
	ErrGridItems        = errors.New("网格商品数量超出范围")
	ErrGridOverflow     = errors.New("网格内容超出区域")
	ErrNoRecords        = errors.New("没有可渲染的商品记录")
)

// ConfigError 表示模板配置错误，对本次渲染是致命的；引擎在输出任何指令前返回它。
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("layout: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErr(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

// WarningKind 区分可恢复的问题。
type WarningKind string

const (
	// WarnMissingField 表示记录缺少某个字段，对应指令被跳过。
	WarnMissingField WarningKind = "missing-field"
	// WarnOverflow 表示应用了溢出策略（超宽单词、超过 8 个商品、段落超出区域）。
	WarnOverflow WarningKind = "overflow"
	// WarnPhoto 表示图片无法加载，由合成器报告。
	WarnPhoto WarningKind = "photo"
)

// Warning 是渲染过程中被吸收的问题，不会中断渲染。
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Record int         `json:"record"`
	Field  string      `json:"field,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("%s: record %d: %s", w.Kind, w.Record, w.Detail)
	}
	return fmt.Sprintf("%s: record %d: %s %s", w.Kind, w.Record, w.Field, w.Detail)
}
