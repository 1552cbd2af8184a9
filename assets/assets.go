// Package assets 提供背景图查找与商品图加载：背景来自本地 FONDOS 目录，商品图可以是 http(s) 地址或本地路径。
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/ByLCY/vitrina/layout"
	"github.com/ByLCY/vitrina/logging"
	"github.com/ByLCY/vitrina/renderer"
)

var (
	ErrBackgroundNotFound = errors.New("未找到背景图")
	ErrNoPhoto            = errors.New("商品图引用为空")
)

// BackgroundDir 是背景图根目录（相对资源根目录）。
const BackgroundDir = "FONDOS"

var backgroundExts = []string{".jpg", ".png", ".JPG"}

// Options 配置资源加载。
type Options struct {
	Root      string        // 资源根目录，背景与本地商品图均相对于它
	RetryMax  int           // 远程商品图的最大重试次数，默认 2
	Timeout   time.Duration // 单次请求超时，默认 10s
	UserAgent string        // 默认 Mozilla/5.0
	Client    *retryablehttp.Client
	Logger    *logrus.Entry
}

// Store 实现 renderer.Assets。背景图解码后缓存，商品图不缓存。
type Store struct {
	root      string
	fsys      fs.FS
	client    *retryablehttp.Client
	userAgent string
	log       *logrus.Entry

	mu          sync.Mutex
	backgrounds map[string]*cached
}

var _ renderer.Assets = (*Store)(nil)

type cached struct {
	once sync.Once
	img  image.Image
	err  error
}

// New 创建资源仓库。
func New(opts Options) *Store {
	client := opts.Client
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 2
		if opts.RetryMax > 0 {
			client.RetryMax = opts.RetryMax
		}
		client.HTTPClient.Timeout = 10 * time.Second
		if opts.Timeout > 0 {
			client.HTTPClient.Timeout = opts.Timeout
		}
		client.Logger = nil
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0"
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	root := opts.Root
	if root == "" {
		root = "."
	}
	return &Store{
		root:        root,
		fsys:        os.DirFS(root),
		client:      client,
		userAgent:   ua,
		log:         log,
		backgrounds: map[string]*cached{},
	}
}

// FindBackground 按 "{store} - {design} - {format}" 与 "{store} - REPOWER {design} - {format}" 的顺序查找背景图，
// 扩展名依次尝试 .jpg、.png、.JPG。返回相对资源根目录的路径。
func (s *Store) FindBackground(key layout.TemplateKey) (string, error) {
	dir := path.Join(BackgroundDir, key.Store, key.Design)
	names := []string{
		fmt.Sprintf("%s - %s - %s", key.Store, key.Design, key.Format),
		fmt.Sprintf("%s - REPOWER %s - %s", key.Store, key.Design, key.Format),
	}
	for _, name := range names {
		pattern := escapeMeta(dir) + "/" + escapeMeta(name) + ".{jpg,png,JPG}"
		matches, err := doublestar.Glob(s.fsys, pattern)
		if err != nil {
			return "", fmt.Errorf("查找背景 %s 失败: %w", pattern, err)
		}
		if best := preferExt(matches); best != "" {
			return best, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrBackgroundNotFound, key)
}

func preferExt(matches []string) string {
	for _, ext := range backgroundExts {
		for _, m := range matches {
			if strings.HasSuffix(m, ext) {
				return m
			}
		}
	}
	return ""
}

// escapeMeta 转义 glob 元字符，使门店、设计名中的括号等字符按字面匹配。
func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Background 加载并缓存背景图；ref 为相对资源根目录的路径或绝对路径。
func (s *Store) Background(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	c, ok := s.backgrounds[ref]
	if !ok {
		c = &cached{}
		s.backgrounds[ref] = c
	}
	s.mu.Unlock()

	c.once.Do(func() {
		c.img, c.err = imaging.Open(s.localPath(ref))
		if c.err == nil {
			s.log.WithField("path", ref).Debug("背景图已加载")
		}
	})
	return c.img, c.err
}

// Photo 加载商品图。http(s) 地址经 retryablehttp 下载，其它引用按本地路径打开。
func (s *Store) Photo(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNoPhoto
	}
	if isRemote(ref) {
		return s.fetch(ctx, ref)
	}
	img, err := imaging.Open(s.localPath(ref), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("打开商品图 %s 失败: %w", ref, err)
	}
	return img, nil
}

func (s *Store) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载商品图 %s 失败: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("下载商品图 %s 失败: HTTP %d", url, resp.StatusCode)
	}
	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("解码商品图 %s 失败: %w", url, err)
	}
	s.log.WithField("url", url).WithField("elapsed", time.Since(start).Round(time.Millisecond)).Debug("商品图已下载")
	return img, nil
}

func (s *Store) localPath(ref string) string {
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func isRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
