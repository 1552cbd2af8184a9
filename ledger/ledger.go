// Package ledger 维护已生成图片的追加式登记表（CSV），用于跨批次去重。
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Header 是登记表的列。
var Header = []string{"fecha", "llave", "tienda", "diseno", "formato", "marca", "url"}

// Entry 是一行登记记录。
type Entry struct {
	Time   string
	Key    string
	Store  string
	Design string
	Format string
	Brand  string
	URL    string
}

func (e Entry) row() []string {
	return []string{e.Time, e.Key, e.Store, e.Design, e.Format, e.Brand, e.URL}
}

// Ledger 是并发安全的登记表。键比较不区分大小写。
type Ledger struct {
	mu   sync.Mutex
	path string
	keys map[string]struct{}
}

// Open 读取已有登记表（不存在时视为空）。
func Open(path string) (*Ledger, error) {
	l := &Ledger{path: path, keys: map[string]struct{}{}}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取登记表 %s 失败: %w", path, err)
		}
		if len(rec) < 2 || rec[1] == Header[1] {
			continue
		}
		l.keys[normalize(rec[1])] = struct{}{}
	}
	return l, nil
}

// Has 报告键是否已登记。
func (l *Ledger) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[normalize(key)]
	return ok
}

// Len 返回已登记的键数量。
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Append 追加一行并记住其键。文件为新建时先写表头。
func (l *Ledger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Write(e.row()); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("写入登记表失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	l.keys[normalize(e.Key)] = struct{}{}
	return nil
}

func normalize(key string) string { return strings.ToUpper(strings.TrimSpace(key)) }
