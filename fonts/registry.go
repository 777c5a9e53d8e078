// Package fonts 负责发现手写字体文件，并按名称提供可绘制的字体对象。
package fonts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/golang/freetype/truetype"
	"github.com/tdewolff/canvas"
	"golang.org/x/image/font"
)

// ErrNoFonts 表示字体目录中没有任何可用的 .ttf 字体。
var ErrNoFonts = errors.New("未找到手写字体文件")

// Options 配置字体扫描。
type Options struct {
	// Allow 非空时只加载其中列出的字体名（文件名去掉扩展名）。
	Allow  []string
	Logger *log.Logger
}

// Registry 保存已加载的字体，以及按字号缓存的绘制对象。
type Registry struct {
	dir   string
	names []string
	paths map[string]string
	data  map[string][]byte
	ttf   map[string]*truetype.Font

	mu       sync.Mutex
	faces    map[faceKey]font.Face
	families map[string]*canvas.FontFamily
	logger   *log.Logger
}

type faceKey struct {
	name string
	size float64
}

// Load 扫描 dir 下的 .ttf 文件。单个字体读取或解析失败只会被跳过；
// 一个字体都没有时返回 ErrNoFonts。
func Load(dir string, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: 字体目录 %s 不存在", ErrNoFonts, dir)
		}
		return nil, fmt.Errorf("读取字体目录 %s 失败: %w", dir, err)
	}

	r := &Registry{
		dir:      dir,
		paths:    map[string]string{},
		data:     map[string][]byte{},
		ttf:      map[string]*truetype.Font{},
		faces:    map[faceKey]font.Face{},
		families: map[string]*canvas.FontFamily{},
		logger:   logger,
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".ttf") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if len(opts.Allow) > 0 && !slices.Contains(opts.Allow, name) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("跳过无法读取的字体", "path", path, "err", err)
			continue
		}
		parsed, err := truetype.Parse(data)
		if err != nil {
			logger.Warn("跳过无法解析的字体", "path", path, "err", err)
			continue
		}
		r.names = append(r.names, name)
		r.paths[name] = path
		r.data[name] = data
		r.ttf[name] = parsed
	}
	if len(r.names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFonts, dir)
	}
	slices.Sort(r.names)
	logger.Debug("已加载手写字体", "dir", dir, "fonts", r.names)
	return r, nil
}

// Names 返回按名称排序的字体列表。
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Path 返回字体文件路径。
func (r *Registry) Path(name string) string {
	return r.paths[name]
}

// Has 判断字体是否已加载。
func (r *Registry) Has(name string) bool {
	_, ok := r.ttf[name]
	return ok
}

// Main 返回 preferred（若已加载），否则返回第一个字体。
func (r *Registry) Main(preferred string) string {
	if r.Has(preferred) {
		return preferred
	}
	return r.names[0]
}

// Others 返回除 name 以外的全部字体。
func (r *Registry) Others(name string) []string {
	out := make([]string, 0, len(r.names))
	for _, n := range r.names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// HasGlyph 报告字体是否包含字符 ch 的字形。
func (r *Registry) HasGlyph(name string, ch rune) bool {
	f, ok := r.ttf[name]
	if !ok {
		return false
	}
	return f.Index(ch) != 0
}

// Face 返回 size 像素大小的字体面，结果按 (name, size) 缓存。
func (r *Registry) Face(name string, size float64) (font.Face, error) {
	f, ok := r.ttf[name]
	if !ok {
		return nil, fmt.Errorf("字体 %s 未加载", name)
	}
	key := faceKey{name: name, size: size}
	r.mu.Lock()
	defer r.mu.Unlock()
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	r.faces[key] = face
	return face, nil
}

// Family 返回供 canvas 使用的字体族；字体无法被 canvas 载入时退回内置字体。
func (r *Registry) Family(name string) (*canvas.FontFamily, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if family, ok := r.families[name]; ok {
		return family, nil
	}

	data, ok := r.data[name]
	if !ok {
		return nil, fmt.Errorf("字体 %s 未加载", name)
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		r.logger.Warn("canvas 无法载入字体，使用内置字体", "font", name, "err", err)
		family, err = r.fallbackFamily()
		if err != nil {
			return nil, err
		}
	}
	r.families[name] = family
	return family, nil
}

func (r *Registry) fallbackFamily() (*canvas.FontFamily, error) {
	if family, ok := r.families[FallbackName]; ok {
		return family, nil
	}
	family := canvas.NewFontFamily(FallbackName)
	if err := family.LoadFont(Fallback(), 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("载入内置字体失败: %w", err)
	}
	r.families[FallbackName] = family
	return family, nil
}
