package compose

import (
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/ByLCY/handwrite/config"
)

func uniform(w, h int, c color.Color) image.Image {
	return imaging.New(w, h, c)
}

func rgb(img image.Image, x, y int) (uint8, uint8, uint8) {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestRuledDrawsRedRules(t *testing.T) {
	cfg := config.Default().Ruled
	img, err := Ruled(1998, 2585, cfg)
	if err != nil {
		t.Fatalf("Ruled error: %v", err)
	}
	if r, g, b := rgb(img, 1000, cfg.RuleTop); !isRule(r, g, b) {
		t.Fatalf("expected rule at y=%d, got %d,%d,%d", cfg.RuleTop, r, g, b)
	}
	if r, g, b := rgb(img, 1000, cfg.RuleTop+cfg.RulePitch); !isRule(r, g, b) {
		t.Fatalf("expected second rule, got %d,%d,%d", r, g, b)
	}
	if r, g, b := rgb(img, 1000, cfg.RuleTop+cfg.RulePitch/2); r != 255 || g != 255 || b != 255 {
		t.Fatalf("expected white between rules, got %d,%d,%d", r, g, b)
	}
	if r, g, b := rgb(img, 10, cfg.RuleTop); r != 255 || g != 255 || b != 255 {
		t.Fatalf("rules should stop at the inset, got %d,%d,%d", r, g, b)
	}
	if r, g, b := rgb(img, 1000, 2585-cfg.RuleBottomMargin+20); r != 255 || g != 255 || b != 255 {
		t.Fatalf("no rules in the bottom margin, got %d,%d,%d", r, g, b)
	}
}

func TestCompositeIgnoresNearWhite(t *testing.T) {
	cfg := config.Default().Ruled
	bg, err := Ruled(400, 400, cfg)
	if err != nil {
		t.Fatal(err)
	}
	text := uniform(300, 300, color.NRGBA{R: 245, G: 245, B: 245, A: 255})
	out := Composite(bg, text, cfg)
	for y := 0; y < 400; y += 7 {
		for x := 0; x < 400; x += 7 {
			br, bgc, bb := rgb(bg, x, y)
			or, og, ob := rgb(out, x, y)
			if br != or || bgc != og || bb != ob {
				t.Fatalf("pixel (%d,%d) changed: %d,%d,%d -> %d,%d,%d", x, y, br, bgc, bb, or, og, ob)
			}
		}
	}
}

func TestCompositeRulePolicy(t *testing.T) {
	cfg := config.Default().Ruled
	cfg.OffsetX, cfg.OffsetY = 0, 0
	bg, err := Ruled(400, 400, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ink := uniform(400, 400, color.NRGBA{R: 30, G: 30, B: 30, A: 255})

	out := Composite(bg, ink, cfg)
	if r, g, b := rgb(out, 200, cfg.RuleTop); !isRule(r, g, b) {
		t.Fatalf("rules-on-top: rule pixel should stay red, got %d,%d,%d", r, g, b)
	}
	if r, _, _ := rgb(out, 200, cfg.RuleTop+40); r != 30 {
		t.Fatalf("ink should replace white paper, got %d", r)
	}

	cfg.RulePolicy = InkOnTop
	out = Composite(bg, ink, cfg)
	if r, g, b := rgb(out, 200, cfg.RuleTop); r != 30 || g != 30 || b != 30 {
		t.Fatalf("ink-on-top: ink should cover the rule, got %d,%d,%d", r, g, b)
	}
}

func TestCompositeOffsetAndClipping(t *testing.T) {
	cfg := config.Default().Ruled
	bg := uniform(200, 200, color.White)
	text := uniform(100, 100, color.Black)
	out := Composite(bg, text, cfg)
	if out.Bounds() != bg.Bounds() {
		t.Fatalf("output bounds %v, want %v", out.Bounds(), bg.Bounds())
	}
	if r, _, _ := rgb(out, cfg.OffsetX-1, cfg.OffsetY+1); r != 255 {
		t.Fatalf("pixels left of the offset must stay background")
	}
	if r, _, _ := rgb(out, cfg.OffsetX, cfg.OffsetY-1); r != 255 {
		t.Fatalf("pixels above the offset must stay background")
	}

	small := uniform(100, 100, color.White)
	cfg.OffsetY = 10
	out = Composite(small, text, cfg)
	if out.Bounds() != small.Bounds() {
		t.Fatalf("clipped output bounds %v", out.Bounds())
	}
	if r, _, _ := rgb(out, 99, 99); r != 0 {
		t.Fatalf("text should reach the clipped corner, got %d", r)
	}
}

func TestBackgroundLoadsOrGenerates(t *testing.T) {
	cfg := config.Default().Ruled
	quiet := log.New(io.Discard)

	img, err := Background(filepath.Join(t.TempDir(), "missing.jpg"), 300, 400, cfg, quiet)
	if err != nil {
		t.Fatalf("Background error: %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 400 {
		t.Fatalf("generated background has wrong size %v", img.Bounds())
	}

	path := filepath.Join(t.TempDir(), "paper.png")
	if err := imaging.Save(uniform(50, 60, color.NRGBA{R: 200, G: 180, B: 150, A: 255}), path); err != nil {
		t.Fatal(err)
	}
	img, err = Background(path, 300, 400, cfg, quiet)
	if err != nil {
		t.Fatalf("Background error: %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 400 {
		t.Fatalf("loaded background not resized: %v", img.Bounds())
	}
	if r, g, _ := rgb(img, 150, 200); r < 190 || g < 170 {
		t.Fatalf("loaded background color lost: %d,%d", r, g)
	}
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result_1.jpg")
	if err := Save(uniform(20, 20, color.White), path, 95); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("output is not a JPEG")
	}
}

func TestCompositeCopiesInkOnly(t *testing.T) {
	cfg := config.Default().Ruled
	cfg.OffsetX, cfg.OffsetY = 0, 0
	paper := uniform(100, 100, color.White)
	text := imaging.New(100, 100, color.White)
	text.Set(50, 50, color.Black)

	out := Composite(paper, text, cfg)
	if c := out.NRGBAAt(50, 50); c.R != 0 || c.G != 0 || c.B != 0 || c.A != 255 {
		t.Fatalf("ink pixel should be opaque black, got %+v", c)
	}
	for _, pt := range []image.Point{{49, 50}, {51, 50}, {50, 49}, {0, 0}, {99, 99}} {
		if c := out.NRGBAAt(pt.X, pt.Y); c != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Fatalf("paper pixel %v should stay white, got %+v", pt, c)
		}
	}
}
