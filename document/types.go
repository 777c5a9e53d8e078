// Package document 构建并读写 handwrite 的中间富文本文档。
//
// 中间文档与直接绘制路径互为备份：它保存每个字符的字体、字号、灰度与粗斜体，
// 渲染前会再次从文档的段落文本推导出行与页面。
package document

import (
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/handwrite/binding"
)

// Document 是中间文档的内存表示。
type Document struct {
	Meta       Meta        `json:"meta"`
	Page       PageFormat  `json:"page"`
	Fonts      []FontRef   `json:"fonts"`
	Paragraphs []Paragraph `json:"paragraphs"`
	// Breaks 记录分页符之后的第一个段落下标（升序）。
	Breaks []int `json:"breaks,omitempty"`
}

// Meta 保存文档元信息。
type Meta struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Creator string `json:"creator"`
	// Keywords 写入 PDF 元信息。
	Keywords []string `json:"keywords,omitempty"`
}

// FontRef 声明文档使用的字体及其文件位置。
type FontRef struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// PageFormat 记录页边距与段落格式，单位为 pt。
type PageFormat struct {
	MarginTop       float64 `json:"marginTop"`
	MarginBottom    float64 `json:"marginBottom"`
	MarginLeft      float64 `json:"marginLeft"`
	MarginRight     float64 `json:"marginRight"`
	LineSpacing     float64 `json:"lineSpacing"`
	SpaceAfter      float64 `json:"spaceAfter"`
	FirstLineIndent float64 `json:"firstLineIndent"`
}

// Paragraph 是一个段落；没有 run 的段落表示空行。
type Paragraph struct {
	Runs []Run `json:"runs"`
}

// Run 是格式相同的一段连续字符。
type Run struct {
	Text   string  `json:"text"`
	Font   string  `json:"font"`
	Size   float64 `json:"size"` // pt
	Gray   uint8   `json:"gray"` // R=G=B
	Bold   bool    `json:"bold,omitempty"`
	Italic bool    `json:"italic,omitempty"`
}

// Format 返回 run 的格式部分，用于判断相邻字符能否合并。
func (r Run) Format() Run {
	r.Text = ""
	return r
}

// Text 返回段落的纯文本。
func (p Paragraph) Text() string {
	if len(p.Runs) == 1 {
		return p.Runs[0].Text
	}
	var b strings.Builder
	for _, run := range p.Runs {
		b.WriteString(run.Text)
	}
	return b.String()
}

// Blank 报告段落是否为空行。
func (p Paragraph) Blank() bool {
	return strings.TrimSpace(p.Text()) == ""
}

// RunAt 返回段落中第 offset 个字符（按 rune 计）所在的 run。
func (p Paragraph) RunAt(offset int) (Run, bool) {
	if offset < 0 {
		return Run{}, false
	}
	for _, run := range p.Runs {
		n := len([]rune(run.Text))
		if offset < n {
			return run, true
		}
		offset -= n
	}
	return Run{}, false
}

// append 追加一个字符，格式与上一个 run 相同时合并。
func (p *Paragraph) append(ch rune, format Run) {
	if n := len(p.Runs); n > 0 && p.Runs[n-1].Format() == format {
		p.Runs[n-1].Text += string(ch)
		return
	}
	format.Text = string(ch)
	p.Runs = append(p.Runs, format)
}

// Texts 返回全部段落的纯文本，空行为空字符串。
func (d *Document) Texts() []string {
	out := make([]string, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		out[i] = p.Text()
	}
	return out
}

// Bind 用 data 替换各段落中的 ${path} 占位符。占位符可以跨越多个 run，
// 替换后的文字沿用占位符首字符的格式。
func (d *Document) Bind(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range d.Paragraphs {
		d.Paragraphs[i] = d.Paragraphs[i].bind(data)
	}
}

func (p Paragraph) bind(data []byte) Paragraph {
	text := p.Text()
	spans := binding.Resolve(text, data)
	if len(spans) == 0 {
		return p
	}
	var out Paragraph
	offset, pos := 0, 0
	copyText := func(s string) {
		for _, ch := range s {
			run, _ := p.RunAt(offset)
			out.append(ch, run.Format())
			offset++
		}
	}
	for _, span := range spans {
		copyText(text[pos:span.Start])
		run, _ := p.RunAt(offset)
		for _, ch := range span.Value {
			out.append(ch, run.Format())
		}
		offset += utf8.RuneCountInString(text[span.Start:span.End])
		pos = span.End
	}
	copyText(text[pos:])
	return out
}
