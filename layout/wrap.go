package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Wrap 把一行文本切成若干段，每段长度不超过 opts.MaxChars。
//
// 每次在第 MaxChars 个字符处断开；若断点后紧跟的那个字符是标点，则把它留在本行，
// 这一段因此可能比 MaxChars 多一个字符。只检查紧随断点的一个字符。
// 按顺序拼接所有段落即得到原文。
func Wrap(text string, opts Options) []Segment {
	opts = opts.withDefaults()
	runes := []rune(text)
	measure := widthFunc(opts.Measure)
	if measure(runes) <= opts.MaxChars {
		return []Segment{{Text: text}}
	}

	var segments []Segment
	offset := 0
	remaining := runes
	for measure(remaining) > opts.MaxChars {
		cut := cutPoint(remaining, opts.MaxChars, opts.Measure)
		if cut < len(remaining) && strings.ContainsRune(opts.Punctuation, remaining[cut]) {
			cut++
		}
		segments = append(segments, Segment{Text: string(remaining[:cut]), Offset: offset})
		offset += cut
		remaining = remaining[cut:]
	}
	if len(remaining) > 0 {
		segments = append(segments, Segment{Text: string(remaining), Offset: offset})
	}
	return segments
}

func widthFunc(measure string) func([]rune) int {
	if measure == MeasureColumn {
		return func(rs []rune) int {
			w := 0
			for _, r := range rs {
				w += runewidth.RuneWidth(r)
			}
			return w
		}
	}
	return func(rs []rune) int { return len(rs) }
}

// cutPoint 返回宽度不超过 limit 的最长前缀长度，至少为 1。
func cutPoint(rs []rune, limit int, measure string) int {
	if measure != MeasureColumn {
		return min(limit, len(rs))
	}
	w := 0
	for i, r := range rs {
		w += runewidth.RuneWidth(r)
		if w > limit {
			return max(i, 1)
		}
	}
	return len(rs)
}
