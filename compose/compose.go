// Package compose 生成红线作业纸背景，并把文字层合成到背景上。
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/ByLCY/handwrite/config"
)

// 红线像素的判定阈值。
const (
	ruleMinRed   = 150
	ruleMaxGreen = 100
	ruleMaxBlue  = 100
)

// 合成时红线与墨迹重叠的处理方式。
const (
	RulesOnTop = "rules-on-top"
	InkOnTop   = "ink-on-top"
)

// Ruled 生成 width×height 的白底红线纸。
func Ruled(width, height int, cfg config.Ruled) (image.Image, error) {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if err := setHexColor(dc, cfg.RuleColor); err != nil {
		return nil, err
	}
	dc.SetLineWidth(float64(max(cfg.RuleThickness, 1)))
	dc.SetLineCapButt()
	for y := cfg.RuleTop; y < height-cfg.RuleBottomMargin; y += cfg.RulePitch {
		dc.DrawLine(float64(cfg.RuleInset), float64(y)+0.5, float64(width-cfg.RuleInset), float64(y)+0.5)
		dc.Stroke()
	}
	return dc.Image(), nil
}

func setHexColor(dc *gg.Context, hex string) error {
	if hex == "" {
		hex = "#FF0000"
	}
	if len(hex) != 7 && len(hex) != 4 || hex[0] != '#' {
		return fmt.Errorf("红线颜色 %s 无效", hex)
	}
	dc.SetHexColor(hex)
	return nil
}

// Load 读取背景图片，尺寸不符时缩放到 width×height。
func Load(path string, width, height int) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取背景图片 %s 失败: %w", path, err)
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return img, nil
}

// Background 优先使用 path 处的背景图片；path 为空或文件不存在时生成红线纸。
func Background(path string, width, height int, cfg config.Ruled, logger *log.Logger) (image.Image, error) {
	if logger == nil {
		logger = log.Default()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			logger.Debug("使用背景图片", "path", path)
			return Load(path, width, height)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("检查背景图片 %s 失败: %w", path, err)
		}
		logger.Debug("背景图片不存在，生成红线纸", "path", path)
	}
	return Ruled(width, height, cfg)
}

// Composite 把文字层放在 (cfg.OffsetX, cfg.OffsetY) 处与背景合成，返回新图像。
//
// 文字层中任一通道不高于 cfg.WhiteThreshold 的像素视为墨迹；
// 策略为 rules-on-top 时，背景上的红线像素保持不变。其余像素取背景。
func Composite(bg, text image.Image, cfg config.Ruled) *image.NRGBA {
	dst := imaging.Clone(bg)
	src := imaging.Clone(text)
	offset := image.Pt(cfg.OffsetX, cfg.OffsetY)

	r := src.Bounds().Add(offset).Intersect(dst.Bounds())
	if r.Empty() {
		return dst
	}
	keepRules := cfg.RulePolicy != InkOnTop
	threshold := cfg.WhiteThreshold

	mask := image.NewAlpha(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			t := src.PixOffset(x-offset.X, y-offset.Y)
			if src.Pix[t] > threshold && src.Pix[t+1] > threshold && src.Pix[t+2] > threshold {
				continue
			}
			if keepRules {
				b := dst.PixOffset(x, y)
				if isRule(dst.Pix[b], dst.Pix[b+1], dst.Pix[b+2]) {
					continue
				}
			}
			mask.Pix[mask.PixOffset(x, y)] = 0xff
		}
	}
	draw.DrawMask(dst, r, src, r.Min.Sub(offset), mask, r.Min, draw.Over)
	return dst
}

func isRule(r, g, b uint8) bool {
	return r >= ruleMinRed && g < ruleMaxGreen && b < ruleMaxBlue
}

// Save 以 JPEG 写出图像。
func Save(img image.Image, path string, quality int) error {
	if quality <= 0 {
		quality = 95
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	return nil
}
