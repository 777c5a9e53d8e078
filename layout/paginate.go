package layout

// Paginate 按顺序把行位装入页面，每页最多 linesPerPage 个行位。
// 空行同样占用一个行位。只在行与行之间分页；没有任何行位时不产生页面。
func Paginate(lines []Line, linesPerPage int) []Page {
	if linesPerPage <= 0 {
		linesPerPage = 1
	}
	collector := newPageCollector(linesPerPage)
	for _, line := range lines {
		collector.add(line)
	}
	return collector.pages()
}

type pageCollector struct {
	budget int
	accs   [][]Line
}

func newPageCollector(budget int) *pageCollector {
	return &pageCollector{budget: budget}
}

func (pc *pageCollector) newPage() {
	pc.accs = append(pc.accs, make([]Line, 0, pc.budget))
}

func (pc *pageCollector) add(line Line) {
	if len(pc.accs) == 0 || len(pc.accs[len(pc.accs)-1]) >= pc.budget {
		pc.newPage()
	}
	last := len(pc.accs) - 1
	pc.accs[last] = append(pc.accs[last], line)
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, 0, len(pc.accs))
	for i, acc := range pc.accs {
		if len(acc) == 0 {
			continue
		}
		out = append(out, Page{Number: i + 1, Lines: acc})
	}
	return out
}
