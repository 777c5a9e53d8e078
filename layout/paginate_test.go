package layout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ByLCY/handwrite/document"
)

func textLines(n int) []Line {
	lines := make([]Line, n)
	for i := range lines {
		lines[i] = Line{Content: fmt.Sprintf("line %d", i), ParagraphStart: true, Paragraph: i}
	}
	return lines
}

func TestPaginateFillsPagesToBudget(t *testing.T) {
	for _, tc := range []struct {
		lines, budget, pages int
	}{
		{0, 25, 0},
		{1, 25, 1},
		{25, 25, 1},
		{26, 25, 2},
		{60, 25, 3},
		{75, 25, 3},
		{7, 1, 7},
	} {
		t.Run(fmt.Sprintf("%d/%d", tc.lines, tc.budget), func(t *testing.T) {
			pages := Paginate(textLines(tc.lines), tc.budget)
			if len(pages) != tc.pages {
				t.Fatalf("expected %d pages, got %d", tc.pages, len(pages))
			}
			total := 0
			for i, p := range pages {
				if p.Number != i+1 {
					t.Fatalf("page %d numbered %d", i, p.Number)
				}
				if len(p.Lines) == 0 {
					t.Fatalf("page %d is empty", p.Number)
				}
				if i < len(pages)-1 && len(p.Lines) != tc.budget {
					t.Fatalf("page %d has %d slots, want %d", p.Number, len(p.Lines), tc.budget)
				}
				total += len(p.Lines)
			}
			if total != tc.lines {
				t.Fatalf("slot count changed: %d -> %d", tc.lines, total)
			}
		})
	}
}

// 空行同样计入页面预算。
func TestPaginateCountsBlankSlots(t *testing.T) {
	lines := []Line{{Content: "a"}, {Blank: true}, {Content: "b"}, {Blank: true}, {Content: "c"}}
	pages := Paginate(lines, 2)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if !pages[0].Lines[1].Blank || !pages[1].Lines[1].Blank {
		t.Fatalf("blank slots misplaced: %+v", pages)
	}
}

func paragraphsDoc(texts ...string) *document.Document {
	doc := &document.Document{}
	for _, text := range texts {
		var p document.Paragraph
		if text != "" {
			p.Runs = []document.Run{{Text: text}}
		}
		doc.Paragraphs = append(doc.Paragraphs, p)
	}
	return doc
}

func TestBuildTwoParagraphScenario(t *testing.T) {
	doc := paragraphsDoc("这是第一段。", "", "这是第二段，测试自动换行是否正常工作并且保持标点不被孤立。")
	res, err := Build(doc, Options{MaxChars: 29, LinesPerPage: 25})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(res.Pages))
	}
	lines := res.Pages[0].Lines
	if len(lines) != 3 {
		t.Fatalf("expected 3 slots, got %d: %+v", len(lines), lines)
	}
	if !lines[0].ParagraphStart || lines[0].Paragraph != 0 {
		t.Fatalf("first slot should start paragraph 0: %+v", lines[0])
	}
	if !lines[1].Blank {
		t.Fatalf("expected blank slot between paragraphs, got %+v", lines[1])
	}
	if !lines[2].ParagraphStart || lines[2].Paragraph != 2 {
		t.Fatalf("third slot should start paragraph 2: %+v", lines[2])
	}

	res, err = Build(doc, Options{MaxChars: 29, LinesPerPage: 25, Measure: MeasureColumn})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	var second int
	for _, l := range res.Pages[0].Lines {
		if l.Paragraph == 2 {
			second++
			if second > 1 && l.ParagraphStart {
				t.Fatalf("continuation flagged as paragraph start: %+v", l)
			}
		}
	}
	if len(res.Pages) != 1 || second < 2 {
		t.Fatalf("column mode: expected paragraph 2 wrapped on one page, pages=%d segments=%d", len(res.Pages), second)
	}
}

func TestBuildSixtyLinesGivesThreePages(t *testing.T) {
	texts := make([]string, 60)
	for i := range texts {
		texts[i] = fmt.Sprintf("Line number %d of the homework.", i+1)[:20]
	}
	res, err := Build(paragraphsDoc(texts...), Options{MaxChars: 29, LinesPerPage: 25})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(res.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(res.Pages))
	}
	if res.Slots() != 60 {
		t.Fatalf("expected 60 slots, got %d", res.Slots())
	}
}

func TestLinesDropsTrailingBlanksAndTracksOffsets(t *testing.T) {
	long := strings.Repeat("字", 40)
	lines := Lines([]string{"  " + long, "", "", ""}, Options{MaxChars: 29})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Offset != 2 || lines[1].Offset != 31 {
		t.Fatalf("offsets should account for leading spaces: %d, %d", lines[0].Offset, lines[1].Offset)
	}
	if lines[1].ParagraphStart {
		t.Fatalf("continuation line flagged as paragraph start")
	}
}
