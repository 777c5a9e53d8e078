// Package pipeline 串联一次完整的生成：读取输入、构建中间文档、换行分页、
// 光栅化并与作业纸背景合成，最终写出 result_<n>.jpg。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/ByLCY/handwrite/compose"
	"github.com/ByLCY/handwrite/config"
	"github.com/ByLCY/handwrite/document"
	"github.com/ByLCY/handwrite/fonts"
	"github.com/ByLCY/handwrite/layout"
	"github.com/ByLCY/handwrite/renderer"
	canvasrenderer "github.com/ByLCY/handwrite/renderer/canvas"
	"github.com/ByLCY/handwrite/renderer/glyph"
	"github.com/ByLCY/handwrite/source"
)

// 工作目录中的中间产物。
const (
	DocumentName = "text.hw"
	LayoutName   = "layout.json"
)

// Options 描述一次运行。
type Options struct {
	// Input 为输入文件路径；Text 非空时优先使用 Text。
	Input string
	Text  string
	// Data 为替换 ${path} 占位符的 JSON 数据。
	Data      []byte
	OutputDir string
	TempDir   string
	Config    config.Config
	// Seed 为 0 时使用当前时间。
	Seed uint64
	// Debug 为真时在临时目录写出 layout.json。
	Debug  bool
	Logger *log.Logger
}

// Report 汇总一次运行的结果。
type Report struct {
	Pages    int
	Outputs  []string
	Strategy string
	Document string
	// MainFont 为逐字绘制时的主字体。
	MainFont string
	Fonts    []string
	// RulePolicy 为合成时使用的红线策略。
	RulePolicy string
	Seed       uint64
	Elapsed    time.Duration
}

// Run 执行完整流程。字体缺失时在写出任何文件之前失败。
func Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg, err := fonts.Load(cfg.FontDir, fonts.Options{Allow: cfg.Render.Fonts, Logger: logger})
	if err != nil {
		return nil, err
	}
	logger.Info("已加载字体", "count", len(reg.Names()), "main", reg.Main(cfg.Render.MainFont))

	in, err := loadInput(opts)
	if err != nil {
		return nil, err
	}

	if err := prepareDirs(opts.OutputDir, opts.TempDir); err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	logger.Debug("随机种子", "seed", seed)

	docPath := filepath.Join(opts.TempDir, DocumentName)
	doc, err := buildDocument(in, reg, cfg, rng, docPath)
	if err != nil {
		return nil, err
	}

	res, err := layout.Build(doc, layout.OptionsFromConfig(cfg.Layout))
	if err != nil {
		return nil, err
	}
	logger.Info("排版完成", "pages", len(res.Pages), "slots", res.Slots())
	if opts.Debug {
		if err := layout.WriteDebugJSON(res, filepath.Join(opts.TempDir, LayoutName)); err != nil {
			return nil, fmt.Errorf("写入调试文件失败: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chain, mainFont, err := newChain(reg, cfg, rng, logger)
	if err != nil {
		return nil, err
	}
	images, strategy, err := chain.Rasterize(renderer.Job{Result: res, Document: doc, WorkDir: opts.TempDir})
	if err != nil {
		return nil, err
	}
	logger.Info("光栅化完成", "strategy", strategy, "images", len(images))

	bg, err := compose.Background(cfg.Background, cfg.Page.Width, cfg.Page.Height, cfg.Ruled, logger)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Pages:      len(images),
		Strategy:   strategy,
		Document:   docPath,
		MainFont:   mainFont,
		Fonts:      reg.Names(),
		RulePolicy: cfg.Ruled.RulePolicy,
		Seed:       seed,
	}
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		textPath := filepath.Join(opts.TempDir, fmt.Sprintf("text%d.png", i+1))
		if err := imaging.Save(img, textPath); err != nil {
			return nil, fmt.Errorf("写入 %s 失败: %w", textPath, err)
		}
		out := filepath.Join(opts.OutputDir, fmt.Sprintf("result_%d.jpg", i+1))
		if err := compose.Save(compose.Composite(bg, img, cfg.Ruled), out, cfg.Ruled.JPEGQuality); err != nil {
			return nil, err
		}
		logger.Debug("已写出页面", "path", out)
		report.Outputs = append(report.Outputs, out)
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

func loadInput(opts Options) (*source.Input, error) {
	srcOpts := source.Options{Data: opts.Data}
	if opts.Text != "" {
		return source.FromText(opts.Text, srcOpts)
	}
	return source.Load(opts.Input, srcOpts)
}

// prepareDirs 创建输出与临时目录，并清空输出目录中的旧文件。
func prepareDirs(output, temp string) error {
	for _, dir := range []string{output, temp} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	entries, err := os.ReadDir(output)
	if err != nil {
		return fmt.Errorf("读取输出目录 %s 失败: %w", output, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(output, entry.Name())); err != nil {
			return fmt.Errorf("清理输出文件失败: %w", err)
		}
	}
	return nil
}

// buildDocument 构建中间文档并写入 path，再从文件读回，后续步骤只依赖读回的文档。
// 输入本身是中间文档时直接使用。
func buildDocument(in *source.Input, reg *fonts.Registry, cfg config.Config, rng *rand.Rand, path string) (*document.Document, error) {
	doc := in.Document
	if doc == nil {
		refs := make([]document.FontRef, 0, len(reg.Names()))
		for _, name := range reg.Names() {
			refs = append(refs, document.FontRef{Name: name, Src: reg.Path(name)})
		}
		built, err := document.Build(in.Lines, document.BuildOptions{
			Title:        in.Name,
			Keywords:     []string{document.Creator, in.Kind},
			Fonts:        refs,
			Format:       cfg.Document,
			LinesPerPage: cfg.Layout.LinesPerPage,
			Rand:         rng,
		})
		if err != nil {
			return nil, err
		}
		doc = built
	}
	if err := document.Save(doc, path); err != nil {
		return nil, err
	}
	return document.Open(path)
}

func newChain(reg *fonts.Registry, cfg config.Config, rng *rand.Rand, logger *log.Logger) (*renderer.Chain, string, error) {
	direct, err := glyph.New(reg, cfg.Render, cfg.Page, rng, logger)
	if err != nil {
		return nil, "", err
	}
	converter := canvasrenderer.New(canvasrenderer.Options{
		Fonts:            reg,
		Render:           cfg.Render,
		Page:             cfg.Page,
		DocumentFontSize: cfg.Document.FontSize,
		Command:          cfg.Converter.Command,
		Rand:             rng,
		Logger:           logger,
	})
	strategies, err := renderer.Select(cfg.Converter.Strategy, direct, converter)
	if err != nil {
		return nil, "", err
	}
	chain, err := renderer.NewChain(logger, strategies...)
	if err != nil {
		return nil, "", err
	}
	return chain, direct.MainFont(), nil
}

// IsInputError 判断错误是否由输入缺失或为空引起。
func IsInputError(err error) bool {
	return errors.Is(err, source.ErrNotFound) || errors.Is(err, source.ErrEmptyInput)
}
