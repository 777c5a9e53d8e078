package canvasrenderer

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/handwrite/config"
	"github.com/ByLCY/handwrite/document"
	"github.com/ByLCY/handwrite/fonts"
	"github.com/ByLCY/handwrite/layout"
	"github.com/ByLCY/handwrite/renderer"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "body.ttf"), fonts.Fallback(), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := fonts.Load(dir, fonts.Options{Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	return Options{
		Fonts:            reg,
		Render:           cfg.Render,
		Page:             cfg.Page,
		DocumentFontSize: cfg.Document.FontSize,
		Rand:             rand.New(rand.NewPCG(1, 2)),
		Logger:           log.New(io.Discard),
	}
}

func sampleDocument() *document.Document {
	return &document.Document{
		Meta: document.Meta{Title: "homework", Creator: document.Creator},
		Paragraphs: []document.Paragraph{
			{Runs: []document.Run{
				{Text: "Hello ", Font: "body", Size: 32, Gray: 20, Bold: true},
				{Text: "world", Font: "missing", Size: 30, Gray: 60, Italic: true},
			}},
			{},
			{Runs: []document.Run{{Text: "second paragraph", Font: "body", Size: 34, Gray: 45}}},
		},
	}
}

func TestRenderPDF(t *testing.T) {
	r := New(testOptions(t))
	doc := sampleDocument()
	res, err := layout.Build(doc, layout.Options{MaxChars: 8, LinesPerPage: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pages) < 2 {
		t.Fatalf("fixture should span several pages, got %d", len(res.Pages))
	}
	data, err := r.RenderPDF(res, doc)
	if err != nil {
		t.Fatalf("RenderPDF error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestRenderPDFRequiresInput(t *testing.T) {
	r := New(testOptions(t))
	if _, err := r.RenderPDF(nil, sampleDocument()); err == nil {
		t.Fatalf("expected error for nil result")
	}
	if _, err := r.RenderPDF(&layout.Result{}, sampleDocument()); err == nil {
		t.Fatalf("expected error for empty result")
	}
	res := &layout.Result{Pages: []layout.Page{{Number: 1, Lines: []layout.Line{{Content: "x"}}}}}
	if _, err := r.RenderPDF(res, nil); err == nil {
		t.Fatalf("expected error without document")
	}
}

func TestAvailableWithoutCommand(t *testing.T) {
	opts := testOptions(t)
	opts.Command = "handwrite-no-such-converter"
	r := New(opts)
	if err := r.Available(); !errors.Is(err, renderer.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if r.Name() != renderer.StrategyConverter {
		t.Fatalf("unexpected name %s", r.Name())
	}
}

func TestRasterizeReportsConverterFailure(t *testing.T) {
	opts := testOptions(t)
	opts.Command = "false"
	r := New(opts)
	if r.Available() != nil {
		t.Skip("false is not on PATH")
	}
	doc := sampleDocument()
	res, err := layout.Build(doc, layout.Options{})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := r.Rasterize(renderer.Job{Result: res, Document: doc, WorkDir: dir}); err == nil {
		t.Fatalf("expected error from failing converter")
	}
	if _, err := os.Stat(filepath.Join(dir, PDFName)); err != nil {
		t.Fatalf("pdf should be written before conversion: %v", err)
	}
}
