// Package glyph 逐字绘制手写页面：每个字符随机选择字体、字号与位置抖动。
package glyph

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"

	"github.com/ByLCY/handwrite/config"
	"github.com/ByLCY/handwrite/fonts"
	"github.com/ByLCY/handwrite/layout"
	"github.com/ByLCY/handwrite/renderer"
)

var _ renderer.Rasterizer = (*Renderer)(nil)

// Placement 是一个字符在页面上的最终绘制参数，单位为像素。
type Placement struct {
	Char rune
	Font string
	Size float64
	// X 为字符左边界，Top 为行框顶部加上基线偏移与抖动后的位置。
	X, Top  float64
	Advance float64
	// Fallback 表示所选字体缺少该字形或无法测量，已改用主字体。
	Fallback bool
}

// Renderer 是直接在进程内绘制的光栅化策略。
type Renderer struct {
	fonts  *fonts.Registry
	cfg    config.Render
	page   config.Page
	rng    *rand.Rand
	logger *log.Logger

	main   string
	others []string
	ink    colorful.Color
}

// New 创建逐字渲染器。rng 决定全部随机抖动，相同种子得到相同页面。
func New(reg *fonts.Registry, cfg config.Render, page config.Page, rng *rand.Rand, logger *log.Logger) (*Renderer, error) {
	if reg == nil {
		return nil, fonts.ErrNoFonts
	}
	if rng == nil {
		return nil, fmt.Errorf("逐字渲染需要随机源")
	}
	if logger == nil {
		logger = log.Default()
	}
	ink := colorful.Color{}
	if cfg.Ink != "" {
		c, err := colorful.Hex(cfg.Ink)
		if err != nil {
			return nil, fmt.Errorf("墨水颜色 %s 无效: %w", cfg.Ink, err)
		}
		ink = c
	}
	main := reg.Main(cfg.MainFont)
	return &Renderer{
		fonts:  reg,
		cfg:    cfg,
		page:   page,
		rng:    rng,
		logger: logger,
		main:   main,
		others: reg.Others(main),
		ink:    ink,
	}, nil
}

func (r *Renderer) Name() string { return renderer.StrategyDirect }

func (r *Renderer) Available() error { return nil }

// MainFont 返回实际使用的主字体名。
func (r *Renderer) MainFont() string { return r.main }

// Rasterize 为每个含行位的页面生成一张白底图像。
func (r *Renderer) Rasterize(job renderer.Job) ([]image.Image, error) {
	if job.Result == nil {
		return nil, fmt.Errorf("缺少分页结果")
	}
	images := make([]image.Image, 0, len(job.Result.Pages))
	for _, page := range job.Result.Pages {
		if len(page.Lines) == 0 {
			continue
		}
		img, err := r.RenderPage(page)
		if err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", page.Number, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// RenderPage 在 page.Width×page.Height 的白色画布上绘制一页。
func (r *Renderer) RenderPage(page layout.Page) (image.Image, error) {
	dc := gg.NewContext(r.page.Width, r.page.Height)
	dc.SetColor(color.White)
	dc.Clear()

	for i, line := range page.Lines {
		if line.Blank {
			continue
		}
		top := r.cfg.Top + float64(i)*r.cfg.LineHeight
		for _, p := range r.PlaceLine(line, top) {
			if unicode.IsSpace(p.Char) {
				continue
			}
			face, err := r.face(p)
			if err != nil {
				r.logger.Warn("无法加载字体，跳过字符", "char", string(p.Char), "font", p.Font, "err", err)
				continue
			}
			dc.SetFontFace(face)
			dc.SetColor(r.inkColor())
			baseline := p.Top + float64(face.Metrics().Ascent.Ceil())
			dc.DrawString(string(p.Char), p.X, baseline)
		}
	}
	return dc.Image(), nil
}

// face 返回放置结果对应的字体；加载失败时退回主字体的基础字号。
func (r *Renderer) face(p Placement) (font.Face, error) {
	face, err := r.fonts.Face(p.Font, p.Size)
	if err == nil {
		return face, nil
	}
	if p.Font == r.main && p.Size == r.cfg.FontSize {
		return nil, err
	}
	return r.fonts.Face(r.main, r.cfg.FontSize)
}

// PlaceLine 计算一行中每个字符的字体、字号与位置。top 为行框顶部。
func (r *Renderer) PlaceLine(line layout.Line, top float64) []Placement {
	x := r.cfg.Indent
	if line.ParagraphStart {
		x = r.cfg.IndentFirst
	}
	var out []Placement
	for _, ch := range line.Content {
		p := r.place(ch, x, top)
		out = append(out, p)
		x += p.Advance
	}
	return out
}

func (r *Renderer) place(ch rune, x, top float64) Placement {
	name := r.pickFont()
	size := r.cfg.FontSize + float64(randInt(r.rng, -r.cfg.SizeJitter, r.cfg.SizeJitter))
	jx := randInt(r.rng, -r.cfg.PositionJitter, r.cfg.PositionJitter)
	jy := randInt(r.rng, -r.cfg.PositionJitter, r.cfg.PositionJitter)
	gap := float64(randInt(r.rng, r.cfg.GapMin, r.cfg.GapMax))

	if !unicode.IsSpace(ch) && !r.fonts.HasGlyph(name, ch) {
		r.logger.Debug("字体缺少字形，改用主字体", "char", string(ch), "font", name, "main", r.main)
		return Placement{
			Char:     ch,
			Font:     r.main,
			Size:     r.cfg.FontSize,
			X:        x,
			Top:      top + float64(r.cfg.BaselineOffsets[r.main]),
			Advance:  r.cfg.FallbackAdvance,
			Fallback: true,
		}
	}

	p := Placement{
		Char: ch,
		Font: name,
		Size: size,
		X:    x + float64(jx),
		Top:  top + float64(r.cfg.BaselineOffsets[name]+jy),
	}
	width, err := r.measure(name, size, ch)
	if err != nil {
		r.logger.Debug("测量字符失败，改用主字体", "char", string(ch), "font", name, "err", err)
		p.Font = r.main
		p.Size = r.cfg.FontSize
		p.Top = top + float64(r.cfg.BaselineOffsets[r.main])
		p.Advance = r.cfg.FallbackAdvance
		p.Fallback = true
		return p
	}
	p.Advance = width + gap
	return p
}

// pickFont 以 AltFontProbability 的概率从主字体以外的字体中选择，否则使用主字体。
func (r *Renderer) pickFont() string {
	if len(r.others) > 0 && r.rng.Float64() < r.cfg.AltFontProbability {
		return r.others[r.rng.IntN(len(r.others))]
	}
	return r.main
}

// measure 返回字符的墨迹宽度；空白字符没有墨迹，使用其步进宽度。
func (r *Renderer) measure(name string, size float64, ch rune) (float64, error) {
	face, err := r.fonts.Face(name, size)
	if err != nil {
		return 0, err
	}
	bounds, advance := font.BoundString(face, string(ch))
	if w := (bounds.Max.X - bounds.Min.X).Ceil(); w > 0 {
		return float64(w), nil
	}
	return float64(advance.Ceil()), nil
}

func (r *Renderer) inkColor() color.Color {
	if r.cfg.InkJitter <= 0 {
		return r.ink.Clamped()
	}
	l, a, b := r.ink.Lab()
	l += (r.rng.Float64()*2 - 1) * r.cfg.InkJitter
	return colorful.Lab(min(max(l, 0), 1), a, b).Clamped()
}

// randInt 返回闭区间 [lo, hi] 内的随机整数。
func randInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
