// Package batch 把商品表转换为渲染任务，并用固定数量的 worker 并发渲染、写出图片与登记。
package batch

import (
	"fmt"
	"strings"

	"github.com/ByLCY/vitrina/layout"
	"github.com/ByLCY/vitrina/source"
)

// FlyerFormat 是按 flyer ID 分组渲染的格式。
const FlyerFormat = "FLYER"

// Job 是一次渲染：单品任务只有一条记录，flyer 任务包含同一 flyer ID 的全部记录。
type Job struct {
	Key       layout.TemplateKey
	LedgerKey string // 登记表去重键，大写
	// LedgerStore 写入登记行的门店列；flyer 任务使用品牌名。
	LedgerStore string
	Name        string // 输出文件名（不含扩展名）
	Records     []layout.ProductRecord
	Lines       []int // 记录在表格中的行号
}

// IsFlyer reports whether the job renders a grouped flyer.
func (j Job) IsFlyer() bool { return j.Key.Format == FlyerFormat }

// Skip 是规划阶段跳过的一行及原因。
type Skip struct {
	Line   int
	Reason string
}

// Plan 先为每个非 flyer 行生成单品任务，再按 flyer ID 分组生成 flyer 任务。
// 同一批次中重复的登记键只保留第一次出现。
func Plan(rows []source.Row, brand string) ([]Job, []Skip) {
	var (
		jobs   []Job
		skips  []Skip
		seen   = map[string]int{}
		flyers = map[string]*Job{}
		order  []string
	)
	add := func(job Job) {
		if first, dup := seen[job.LedgerKey]; dup {
			skips = append(skips, Skip{Line: job.Lines[0], Reason: fmt.Sprintf("与第 %d 行重复: %s", first, job.LedgerKey)})
			return
		}
		seen[job.LedgerKey] = job.Lines[0]
		jobs = append(jobs, job)
	}

	for _, row := range rows {
		switch row.Format {
		case "", "0":
			skips = append(skips, Skip{Line: row.Line, Reason: "缺少格式"})
			continue
		case FlyerFormat:
			id := row.FlyerID
			if id == "" || id == "0" || id == "0.0" {
				skips = append(skips, Skip{Line: row.Line, Reason: "flyer 缺少 ID"})
				continue
			}
			g, ok := flyers[id]
			if !ok {
				g = &Job{
					Key:         layout.TemplateKey{Store: row.Store, Design: row.Design, Format: FlyerFormat},
					LedgerKey:   strings.ToUpper(fmt.Sprintf("%s_%s_%s", id, FlyerFormat, brand)),
					LedgerStore: strings.ToUpper(brand),
					Name:        fmt.Sprintf("%s_%s_%s", id, FlyerFormat, row.Store),
				}
				flyers[id] = g
				order = append(order, id)
			}
			g.Records = append(g.Records, row.Record)
			g.Lines = append(g.Lines, row.Line)
			continue
		}

		id := row.Record.SKU
		if id == "" {
			id = row.FlyerID
		}
		if id == "" {
			skips = append(skips, Skip{Line: row.Line, Reason: "缺少 SKU"})
			continue
		}
		add(Job{
			Key:         row.Key(),
			LedgerKey:   strings.ToUpper(fmt.Sprintf("%s_%s_%s_%s", id, row.Format, row.Store, brand)),
			LedgerStore: row.Store,
			Name:        fmt.Sprintf("%s_%s_%s", id, row.Format, row.Store),
			Records:     []layout.ProductRecord{row.Record},
			Lines:       []int{row.Line},
		})
	}

	for _, id := range order {
		add(*flyers[id])
	}
	return jobs, skips
}
