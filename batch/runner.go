package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ByLCY/vitrina/layout"
	"github.com/ByLCY/vitrina/ledger"
	"github.com/ByLCY/vitrina/logging"
	"github.com/ByLCY/vitrina/renderer"
)

// TimeLayout 是登记时间的格式。
const TimeLayout = "2006-01-02 15:04"

// Templates 按模板键查找模板，由 *catalog.Catalog 实现。
type Templates interface {
	Lookup(store, design, format string) (*layout.TemplateSpec, error)
}

// Assets 在 renderer.Assets 之上增加背景查找，由 *assets.Store 实现。
type Assets interface {
	renderer.Assets
	FindBackground(key layout.TemplateKey) (string, error)
}

// Ledger 由 *ledger.Ledger 实现。
type Ledger interface {
	Has(key string) bool
	Append(e ledger.Entry) error
}

// Options 控制输出与并发。
type Options struct {
	OutDir        string
	Format        renderer.Format
	Quality       int
	URLBase       string // 为空时登记本地路径
	Workers       int
	Debug         bool // 在图片旁写出同名 .json 布局
	AllowEstimate bool
	Brand         string
	Location      *time.Location
}

// Status 是单个任务的结果。
type Status string

const (
	StatusRendered Status = "rendered"
	StatusExisting Status = "existing" // 登记表中已有
	StatusFailed   Status = "failed"
)

// Outcome 记录一个任务的处理结果。
type Outcome struct {
	Job      Job
	Status   Status
	Path     string
	URL      string
	Warnings []layout.Warning
	Err      error
}

// Summary 汇总一次批量运行。Outcomes 与输入任务同序。
type Summary struct {
	Rendered int
	Existing int
	Failed   int
	Outcomes []Outcome
}

// Runner 并发执行渲染任务。模板、渲染器与资源在 worker 间共享，均需并发安全。
type Runner struct {
	Templates Templates
	Renderer  renderer.Renderer
	Assets    Assets
	Ledger    Ledger
	Options   Options
	Log       *logrus.Entry
	Now       func() time.Time
}

// Run 处理全部任务。单个任务失败只计入 Summary；ctx 取消时返回 ctx.Err()。
func (r *Runner) Run(ctx context.Context, jobs []Job) (Summary, error) {
	log := r.Log
	if log == nil {
		log = logging.Discard()
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Options.Location
	if loc == nil {
		loc = time.UTC
	}
	stamp := now().In(loc).Format(TimeLayout)

	workers := r.Options.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	outcomes := make([]Outcome, len(jobs))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				outcomes[i] = r.process(ctx, jobs[i], stamp, log)
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	var sum Summary
	sum.Outcomes = outcomes
	for _, o := range outcomes {
		switch o.Status {
		case StatusRendered:
			sum.Rendered++
		case StatusExisting:
			sum.Existing++
		case StatusFailed:
			sum.Failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

func (r *Runner) process(ctx context.Context, job Job, stamp string, log *logrus.Entry) Outcome {
	out := Outcome{Job: job}
	jl := log.WithField("job", job.LedgerKey)
	if job.IsFlyer() {
		jl = jl.WithField("items", len(job.Records))
	}

	if r.Ledger != nil && r.Ledger.Has(job.LedgerKey) {
		out.Status = StatusExisting
		jl.Debug("已登记，跳过")
		return out
	}
	fail := func(err error) Outcome {
		out.Status = StatusFailed
		out.Err = err
		jl.WithField("lines", job.Lines).Errorf("生成失败: %v", err)
		return out
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	img, res, warnings, err := r.render(ctx, job)
	out.Warnings = warnings
	for _, w := range warnings {
		jl.WithField("kind", w.Kind).Warn(describe(w, job))
	}
	if err != nil {
		return fail(err)
	}

	path, err := r.write(job, img, res)
	if err != nil {
		return fail(err)
	}
	out.Path = path
	out.URL = r.url(path)

	if r.Ledger != nil {
		entry := ledger.Entry{
			Time:   stamp,
			Key:    job.LedgerKey,
			Store:  job.LedgerStore,
			Design: job.Key.Design,
			Format: job.Key.Format,
			Brand:  strings.ToUpper(r.Options.Brand),
			URL:    out.URL,
		}
		if err := r.Ledger.Append(entry); err != nil {
			return fail(fmt.Errorf("登记失败: %w", err))
		}
	}
	out.Status = StatusRendered
	jl.WithField("file", filepath.Base(path)).Info("已生成")
	return out
}

func (r *Runner) render(ctx context.Context, job Job) (image.Image, *layout.Result, []layout.Warning, error) {
	spec, err := r.Templates.Lookup(job.Key.Store, job.Key.Design, job.Key.Format)
	if err != nil {
		return nil, nil, nil, err
	}
	bg := spec.Background
	if bg == "" {
		if bg, err = r.Assets.FindBackground(job.Key); err != nil {
			return nil, nil, nil, err
		}
	}

	res, err := layout.Render(job.Records, spec, layout.RenderOptions{Metrics: r.Renderer, AllowEstimate: r.Options.AllowEstimate})
	if err != nil {
		return nil, nil, nil, err
	}
	res.Background = bg

	img, photoWarnings, err := r.Renderer.Render(ctx, res, r.Assets)
	warnings := append(append([]layout.Warning(nil), res.Warnings...), photoWarnings...)
	if err != nil {
		return nil, nil, warnings, err
	}
	return img, res, warnings, nil
}

// write 先写入临时文件再改名，避免中断时留下半张图片。
func (r *Runner) write(job Job, img image.Image, res *layout.Result) (string, error) {
	format := r.Options.Format
	if format == "" {
		format = renderer.FormatJPEG
	}
	if err := os.MkdirAll(r.Options.OutDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.Options.OutDir, job.Name+"."+string(format))

	tmp, err := os.CreateTemp(r.Options.OutDir, "."+job.Name+"-*")
	if err != nil {
		return "", err
	}
	if err := renderer.Encode(tmp, img, format, r.Options.Quality); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("编码 %s 失败: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	if r.Options.Debug {
		if err := layout.WriteDebugJSON(res, strings.TrimSuffix(path, filepath.Ext(path))+".json"); err != nil {
			return "", fmt.Errorf("写出调试 JSON 失败: %w", err)
		}
	}
	return path, nil
}

func (r *Runner) url(path string) string {
	if r.Options.URLBase == "" {
		return path
	}
	return r.Options.URLBase + filepath.Base(path)
}

// describe 把警告中的记录序号换算为表格行号。
func describe(w layout.Warning, job Job) string {
	if w.Record >= 0 && w.Record < len(job.Lines) {
		return fmt.Sprintf("第 %d 行: %s", job.Lines[w.Record], strings.TrimSpace(w.Field+" "+w.Detail))
	}
	return w.String()
}

// Err 合并全部失败任务的错误，便于调用方决定退出码。
func (s Summary) Err() error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed && o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Job.LedgerKey, o.Err))
		}
	}
	return errors.Join(errs...)
}
