package layout

// 该文件定义换行与分页的结果类型，供渲染与调试 JSON 共用。

// Result 保存分页后的全部页面。
type Result struct {
	Pages   []Page  `json:"pages"`
	Options Options `json:"options"`
}

// Page 是一页中按顺序排列的行；行数不超过 Options.LinesPerPage。
type Page struct {
	Number int    `json:"number"` // 从 1 开始
	Lines  []Line `json:"lines"`
}

// Line 占用一页中的一个行位：可能是换行后的一段文本，也可能是段落之间的空行。
type Line struct {
	Content string `json:"content,omitempty"`
	Blank   bool   `json:"blank,omitempty"`
	// ParagraphStart 标记段落的第一段，渲染时使用更大的首行缩进。
	ParagraphStart bool `json:"paragraphStart,omitempty"`
	// Paragraph 为来源段落下标，Offset 为本段在段落文本中的起始位置（按 rune 计）。
	Paragraph int `json:"paragraph"`
	Offset    int `json:"offset"`
}

// Segment 是 Wrap 产出的一段文本。
type Segment struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Slots 返回所有页面的行位总数。
func (r *Result) Slots() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Lines)
	}
	return n
}
