package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/handwrite/config"
	"github.com/ByLCY/handwrite/document"
	"github.com/ByLCY/handwrite/fonts"
	"github.com/ByLCY/handwrite/layout"
	"github.com/ByLCY/handwrite/renderer"
)

// PDFName 是写入工作目录的中间 PDF 文件名。
const PDFName = "text.pdf"

var _ renderer.Rasterizer = (*Renderer)(nil)

// Options configures the converter strategy.
type Options struct {
	Fonts *fonts.Registry
	// Render 与 Page 提供与逐字渲染相同的行距、缩进与页面尺寸（像素）。
	Render config.Render
	Page   config.Page
	// DocumentFontSize 是中间文档的基准字号（pt），run 字号按 Render.FontSize/DocumentFontSize 缩放为像素。
	DocumentFontSize float64
	Command          string
	Rand             *rand.Rand
	Logger           *log.Logger
}

// Renderer draws the intermediate document to a PDF via github.com/tdewolff/canvas
// and rasterizes it with an external converter (mutool).
type Renderer struct {
	opts   Options
	logger *log.Logger
}

// New creates a converter strategy.
func New(opts Options) *Renderer {
	if opts.Command == "" {
		opts.Command = "mutool"
	}
	if opts.DocumentFontSize <= 0 {
		opts.DocumentFontSize = opts.Render.FontSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{opts: opts, logger: logger}
}

func (r *Renderer) Name() string { return renderer.StrategyConverter }

// Available 检查转换程序是否在 PATH 中。
func (r *Renderer) Available() error {
	if _, err := exec.LookPath(r.opts.Command); err != nil {
		return fmt.Errorf("%w: 找不到 %s，请安装 MuPDF（macOS: brew install mupdf-tools，Linux: apt install mupdf-tools）", renderer.ErrUnavailable, r.opts.Command)
	}
	return nil
}

// Rasterize 写出 text.pdf，调用 mutool 转为 text<n>.png 并读回。
func (r *Renderer) Rasterize(job renderer.Job) ([]image.Image, error) {
	if job.WorkDir == "" {
		return nil, fmt.Errorf("转换器需要工作目录")
	}
	data, err := r.RenderPDF(job.Result, job.Document)
	if err != nil {
		return nil, err
	}
	pdfPath := filepath.Join(job.WorkDir, PDFName)
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("写入 %s 失败: %w", pdfPath, err)
	}

	pattern := filepath.Join(job.WorkDir, "text%d.png")
	args := []string{"draw", "-o", pattern,
		"-w", strconv.Itoa(r.opts.Page.Width),
		"-h", strconv.Itoa(r.opts.Page.Height),
		pdfPath}
	cmd := exec.Command(r.opts.Command, args...)
	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf
	r.logger.Debug("调用转换器", "cmd", r.opts.Command, "args", args)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s draw: %v: %s", r.opts.Command, err, errBuf.String())
	}

	images := make([]image.Image, 0, len(job.Result.Pages))
	for i := range job.Result.Pages {
		path := filepath.Join(job.WorkDir, fmt.Sprintf("text%d.png", i+1))
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("读取转换结果 %s 失败: %w", path, err)
		}
		if b := img.Bounds(); b.Dx() != r.opts.Page.Width || b.Dy() != r.opts.Page.Height {
			img = imaging.Resize(img, r.opts.Page.Width, r.opts.Page.Height, imaging.Lanczos)
		}
		images = append(images, img)
	}
	return images, nil
}

// RenderPDF renders every page of the layout into a PDF byte slice, taking the
// per-character format from doc.
func (r *Renderer) RenderPDF(result *layout.Result, doc *document.Document) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	if doc == nil {
		return nil, fmt.Errorf("转换器需要中间文档")
	}
	if r.opts.Fonts == nil {
		return nil, fonts.ErrNoFonts
	}
	if r.opts.Rand == nil {
		return nil, fmt.Errorf("转换器需要随机源")
	}

	width := r.mm(float64(r.opts.Page.Width))
	height := r.mm(float64(r.opts.Page.Height))

	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	writer.SetInfo(doc.Meta.Title, "", strings.Join(doc.Meta.Keywords, ", "), doc.Meta.Creator, doc.Meta.Creator)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(width, height)
		}
		c := canvas.New(width, height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与页面保持左上角为原点
		ctx.SetFillColor(canvas.White)
		ctx.DrawPath(0, 0, canvas.Rectangle(width, height))

		if err := r.drawPage(ctx, page, doc); err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", page.Number, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, doc *document.Document) error {
	cfg := r.opts.Render
	for i, line := range page.Lines {
		if line.Blank || line.Paragraph >= len(doc.Paragraphs) {
			continue
		}
		para := doc.Paragraphs[line.Paragraph]
		top := cfg.Top + float64(i)*cfg.LineHeight
		x := cfg.Indent
		if line.ParagraphStart {
			x = cfg.IndentFirst
		}
		for j, ch := range []rune(line.Content) {
			run, ok := para.RunAt(line.Offset + j)
			if !ok {
				run = document.Run{Font: r.opts.Fonts.Main(cfg.MainFont), Size: r.opts.DocumentFontSize}
			}
			face, err := r.fontFace(run)
			if err != nil {
				return err
			}
			gap := r.mm(float64(randInt(r.opts.Rand, cfg.GapMin, cfg.GapMax)))
			if !unicode.IsSpace(ch) {
				// 基线位置：行顶部加上字体上升部
				baseline := r.mm(top) + face.Metrics().Ascent
				ctx.DrawText(r.mm(x), baseline, canvas.NewTextLine(face, string(ch), canvas.Left))
			}
			x += r.px(face.TextWidth(string(ch)) + gap)
		}
	}
	return nil
}

func (r *Renderer) fontFace(run document.Run) (*canvas.FontFace, error) {
	name := run.Font
	if !r.opts.Fonts.Has(name) {
		name = r.opts.Fonts.Main(r.opts.Render.MainFont)
	}
	family, err := r.opts.Fonts.Family(name)
	if err != nil {
		return nil, err
	}
	sizePx := run.Size * r.opts.Render.FontSize / r.opts.DocumentFontSize
	sizePt := layout.PxToPt(sizePx, r.opts.Page.DPI)
	return family.Face(sizePt, grayColor(run.Gray), runStyle(run), canvas.FontNormal), nil
}

// mm 把像素长度换算为毫米。
func (r *Renderer) mm(px float64) float64 { return layout.PxToMm(px, r.opts.Page.DPI) }

// px 把毫米长度换算为像素。
func (r *Renderer) px(mm float64) float64 { return layout.MmToPx(mm, r.opts.Page.DPI) }

func runStyle(run document.Run) canvas.FontStyle {
	style := canvas.FontRegular
	if run.Bold {
		style = canvas.FontBold
	}
	if run.Italic {
		style |= canvas.FontItalic
	}
	return style
}

func grayColor(gray uint8) color.Color {
	return color.RGBA{R: gray, G: gray, B: gray, A: 0xff}
}

func randInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
