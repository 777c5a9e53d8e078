package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/ByLCY/handwrite/config"
	"github.com/ByLCY/handwrite/document"
	"github.com/ByLCY/handwrite/fonts"
)

func testOptions(t *testing.T, fontNames ...string) Options {
	t.Helper()
	root := t.TempDir()
	fontDir := filepath.Join(root, "font")
	if err := os.MkdirAll(fontDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range fontNames {
		if err := os.WriteFile(filepath.Join(fontDir, name+".ttf"), fonts.Fallback(), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.Default()
	cfg.FontDir = fontDir
	cfg.Background = ""
	cfg.Converter.Strategy = "direct"
	return Options{
		OutputDir: filepath.Join(root, "res"),
		TempDir:   filepath.Join(root, "temporary"),
		Config:    cfg,
		Seed:      2024,
		Logger:    log.New(io.Discard),
	}
}

func listJPEGs(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestRunSixtyLinesGivesThreePages(t *testing.T) {
	opts := testOptions(t, "李国夫手写体", "千图纤墨体")
	lines := make([]string, 60)
	for i := range lines {
		lines[i] = fmt.Sprintf("Homework line %d", i+1)
	}
	opts.Text = strings.Join(lines, "\n")

	report, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Pages != 3 || len(report.Outputs) != 3 {
		t.Fatalf("expected 3 pages, got %+v", report)
	}
	if report.Strategy != "direct" {
		t.Fatalf("unexpected strategy %s", report.Strategy)
	}
	if got := listJPEGs(t, opts.OutputDir); len(got) != 3 {
		t.Fatalf("expected 3 jpg files, got %v", got)
	}
	for i := 1; i <= 3; i++ {
		for _, path := range []string{
			filepath.Join(opts.OutputDir, fmt.Sprintf("result_%d.jpg", i)),
			filepath.Join(opts.TempDir, fmt.Sprintf("text%d.png", i)),
		} {
			if _, err := os.Stat(path); err != nil {
				t.Fatalf("missing artifact %s: %v", path, err)
			}
		}
	}

	doc, err := document.Open(report.Document)
	if err != nil {
		t.Fatalf("intermediate document unreadable: %v", err)
	}
	if len(doc.Paragraphs) != 60 || len(doc.Breaks) != 2 {
		t.Fatalf("unexpected document: %d paragraphs, breaks %v", len(doc.Paragraphs), doc.Breaks)
	}
}

func TestRunWithoutFontsWritesNothing(t *testing.T) {
	opts := testOptions(t)
	opts.Text = "这是第一段。"
	_, err := Run(context.Background(), opts)
	if !errors.Is(err, fonts.ErrNoFonts) {
		t.Fatalf("expected ErrNoFonts, got %v", err)
	}
	if got := listJPEGs(t, opts.OutputDir); len(got) != 0 {
		t.Fatalf("no output expected, got %v", got)
	}
	if _, err := os.Stat(filepath.Join(opts.TempDir, DocumentName)); !os.IsNotExist(err) {
		t.Fatalf("intermediate document should not exist: %v", err)
	}
}

func TestRunChineseParagraphsOnePage(t *testing.T) {
	opts := testOptions(t, "李国夫手写体")
	opts.Input = filepath.Join(t.TempDir(), "input.txt")
	content := "这是第一段。\n\n这是第二段，测试自动换行是否正常工作并且保持标点不被孤立。\n"
	if err := os.WriteFile(opts.Input, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.Debug = true

	report, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.Pages != 1 {
		t.Fatalf("expected one page, got %d", report.Pages)
	}
	if _, err := os.Stat(filepath.Join(opts.TempDir, LayoutName)); err != nil {
		t.Fatalf("debug layout missing: %v", err)
	}
}

func TestRunClearsOldOutputs(t *testing.T) {
	opts := testOptions(t, "a")
	opts.Text = "one page"
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(opts.OutputDir, "result_9.jpg")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale output should be removed")
	}
	if got := listJPEGs(t, opts.OutputDir); len(got) != 1 {
		t.Fatalf("expected a single result, got %v", got)
	}
}

func TestRunInputErrors(t *testing.T) {
	opts := testOptions(t, "a")
	opts.Input = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := Run(context.Background(), opts); !IsInputError(err) {
		t.Fatalf("expected input error, got %v", err)
	}
	opts.Text = " \n "
	if _, err := Run(context.Background(), opts); !IsInputError(err) {
		t.Fatalf("expected input error for blank text, got %v", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	opts := testOptions(t, "a")
	opts.Text = "cancelled"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, opts); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunOutputKeepsPaperAndRules(t *testing.T) {
	opts := testOptions(t, "李国夫手写体")
	opts.Text = "hello"

	report, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if report.MainFont != "李国夫手写体" {
		t.Fatalf("unexpected main font %q", report.MainFont)
	}
	img, err := imaging.Open(filepath.Join(opts.OutputDir, "result_1.jpg"))
	if err != nil {
		t.Fatalf("open result: %v", err)
	}
	cfg := opts.Config
	at := func(x, y int) (int, int, int) {
		r, g, b, _ := img.At(x, y).RGBA()
		return int(r >> 8), int(g >> 8), int(b >> 8)
	}

	if r, g, b := at(1000, 2000); r < 235 || g < 235 || b < 235 {
		t.Fatalf("paper away from ink should stay white, got %d,%d,%d", r, g, b)
	}
	if r, g, b := at(1000, cfg.Ruled.RuleTop); r < 150 || g > 120 || b > 120 {
		t.Fatalf("rule row should stay red, got %d,%d,%d", r, g, b)
	}

	top := int(cfg.Render.Top) + cfg.Ruled.OffsetY
	left := int(cfg.Render.IndentFirst) + cfg.Ruled.OffsetX
	inked := false
	for y := top; y < top+int(cfg.Render.LineHeight) && !inked; y++ {
		for x := left; x < left+400; x++ {
			if r, g, b := at(x, y); r < 100 && g < 100 && b < 100 {
				inked = true
				break
			}
		}
	}
	if !inked {
		t.Fatalf("expected ink near the first line around (%d,%d)", left, top)
	}
}
