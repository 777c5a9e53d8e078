// Package layout 负责把段落文本换行、分页，得到每页要绘制的行。
package layout

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ByLCY/handwrite/document"
)

// Build 从中间文档的段落文本重新推导行与页面。
func Build(doc *document.Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	opts = opts.withDefaults()
	lines := Lines(doc.Texts(), opts)
	return &Result{
		Pages:   Paginate(lines, opts.LinesPerPage),
		Options: opts,
	}, nil
}

// Lines 把段落转换为行位序列：空段落占一个空行位，其余段落按 Wrap 切分，
// 第一段标记为段首。输入末尾的空行不会单独占用页面，因此被丢弃。
func Lines(paragraphs []string, opts Options) []Line {
	opts = opts.withDefaults()
	var lines []Line
	for i, text := range paragraphs {
		trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
		lead := len([]rune(text)) - len([]rune(trimmed))
		trimmed = strings.TrimRightFunc(trimmed, unicode.IsSpace)
		if trimmed == "" {
			lines = append(lines, Line{Blank: true, Paragraph: i})
			continue
		}
		for j, seg := range Wrap(trimmed, opts) {
			lines = append(lines, Line{
				Content:        seg.Text,
				ParagraphStart: j == 0,
				Paragraph:      i,
				Offset:         lead + seg.Offset,
			})
		}
	}
	for len(lines) > 0 && lines[len(lines)-1].Blank {
		lines = lines[:len(lines)-1]
	}
	return lines
}
