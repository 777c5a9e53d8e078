package document

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/ByLCY/handwrite/config"
)

// Creator 写入文档元信息的生成者名称。
const Creator = "handwrite"

// BuildOptions 配置文档构建。
type BuildOptions struct {
	Title        string
	Keywords     []string
	Fonts        []FontRef
	Format       config.Document
	LinesPerPage int
	Rand         *rand.Rand
}

// Build 把输入行转换为中间文档：每个非空行成为一个段落，空行保留为空段落。
// 每个字符拥有独立的随机字号、灰度与粗斜体，字体每隔 3~8 个字符切换一次。
func Build(lines []string, opts BuildOptions) (*Document, error) {
	if len(opts.Fonts) == 0 {
		return nil, fmt.Errorf("构建文档需要至少一种字体")
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("构建文档需要随机源")
	}
	f := opts.Format
	rng := opts.Rand

	doc := &Document{
		Meta: Meta{
			ID:       uuid.NewString(),
			Title:    opts.Title,
			Creator:  Creator,
			Keywords: opts.Keywords,
		},
		Page: PageFormat{
			MarginTop:       f.MarginTop,
			MarginBottom:    f.MarginBottom,
			MarginLeft:      f.MarginLeft,
			MarginRight:     f.MarginRight,
			LineSpacing:     f.LineSpacing,
			SpaceAfter:      f.SpaceAfter,
			FirstLineIndent: f.FirstLineIndent,
		},
		Fonts: opts.Fonts,
	}

	pickFont := func() string { return opts.Fonts[rng.IntN(len(opts.Fonts))].Name }
	current := pickFont()
	charCount := 0
	lineCount := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			doc.Paragraphs = append(doc.Paragraphs, Paragraph{})
			lineCount++
			continue
		}
		if opts.LinesPerPage > 0 && lineCount >= opts.LinesPerPage {
			doc.Breaks = append(doc.Breaks, len(doc.Paragraphs))
			lineCount = 0
		}

		var para Paragraph
		for _, ch := range line {
			if charCount%randInt(rng, f.SwitchMin, f.SwitchMax) == 0 {
				current = pickFont()
			}
			gray := f.GrayLevels[rng.IntN(len(f.GrayLevels))] + randInt(rng, -f.GrayJitter, f.GrayJitter)
			para.append(ch, Run{
				Font:   current,
				Size:   f.FontSize + float64(randInt(rng, -f.SizeJitter, f.SizeJitter)),
				Gray:   uint8(clamp(gray, f.GrayMin, f.GrayMax)),
				Bold:   rng.Float64() < f.BoldProbability,
				Italic: rng.Float64() < f.ItalicProbability,
			})
			charCount++
		}
		doc.Paragraphs = append(doc.Paragraphs, para)
		// 新段落重新选择字体
		current = pickFont()
		lineCount++
	}
	return doc, nil
}

// randInt 返回闭区间 [lo, hi] 内的随机整数。
func randInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
