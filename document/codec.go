package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ByLCY/handwrite/dsl"
)

// Encode 以 dsl 包可解析的格式写出文档。
func Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("文档为空")
	}
	var b strings.Builder
	b.WriteString("doc handwrite v1 {\n")

	b.WriteString("  meta {\n")
	fmt.Fprintf(&b, "    id: %s\n", dsl.Quote(doc.Meta.ID))
	fmt.Fprintf(&b, "    title: %s\n", dsl.Quote(doc.Meta.Title))
	fmt.Fprintf(&b, "    creator: %s\n", dsl.Quote(doc.Meta.Creator))
	if len(doc.Meta.Keywords) > 0 {
		quoted := make([]string, len(doc.Meta.Keywords))
		for i, k := range doc.Meta.Keywords {
			quoted[i] = dsl.Quote(k)
		}
		fmt.Fprintf(&b, "    keywords: [%s]\n", strings.Join(quoted, ", "))
	}
	b.WriteString("  }\n")

	b.WriteString("  resources {\n")
	for _, f := range doc.Fonts {
		fmt.Fprintf(&b, "    font %s { src: %s }\n", dsl.Quote(f.Name), dsl.Quote(f.Src))
	}
	b.WriteString("  }\n")

	p := doc.Page
	fmt.Fprintf(&b, "  page A4 margin-top %s margin-bottom %s margin-left %s margin-right %s line-spacing %sx space-after %s indent %s {\n",
		pt(p.MarginTop), pt(p.MarginBottom), pt(p.MarginLeft), pt(p.MarginRight),
		num(p.LineSpacing), pt(p.SpaceAfter), pt(p.FirstLineIndent))
	breaks := doc.Breaks
	for i, para := range doc.Paragraphs {
		for len(breaks) > 0 && breaks[0] == i {
			b.WriteString("    break\n")
			breaks = breaks[1:]
		}
		if len(para.Runs) == 0 {
			b.WriteString("    paragraph {}\n")
			continue
		}
		b.WriteString("    paragraph {\n")
		for _, run := range para.Runs {
			fmt.Fprintf(&b, "      run %s size %s color #%02X%02X%02X", dsl.Quote(run.Font), pt(run.Size), run.Gray, run.Gray, run.Gray)
			if s := styleFlags(run); s != "" {
				fmt.Fprintf(&b, " style %s", s)
			}
			fmt.Fprintf(&b, " { %s }\n", dsl.Quote(run.Text))
		}
		b.WriteString("    }\n")
	}
	b.WriteString("  }\n}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Decode 解析 Encode 写出的文档。未知命令会被忽略。
func Decode(r io.Reader) (*Document, error) {
	ast, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析中间文档失败: %w", err)
	}
	doc := &Document{}
	for _, section := range ast.Sections {
		switch {
		case section.Meta != nil && section.Meta.Block != nil:
			decodeMeta(section.Meta.Block, &doc.Meta)
		case section.Resources != nil && section.Resources.Block != nil:
			doc.Fonts = append(doc.Fonts, decodeFonts(section.Resources.Block)...)
		case section.Page != nil:
			if err := decodePage(section.Page, doc); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

// Save 把文档写入 path。
func Save(doc *Document, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入中间文档 %s 失败: %w", path, err)
	}
	return nil
}

// Open 读取 path 处的中间文档。
func Open(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开中间文档 %s: %w", path, err)
	}
	defer file.Close()
	return Decode(file)
}

func decodeMeta(block *dsl.Block, meta *Meta) {
	for _, stmt := range block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		val := valueToString(stmt.Assignment.Value)
		switch strings.ToLower(stmt.Assignment.Key) {
		case "id":
			meta.ID = val
		case "title":
			meta.Title = val
		case "creator":
			meta.Creator = val
		case "keywords":
			meta.Keywords = valueToStrings(stmt.Assignment.Value)
		}
	}
}

func decodeFonts(block *dsl.Block) []FontRef {
	var out []FontRef
	for _, stmt := range block.Statements {
		if stmt.Command == nil || stmt.Command.Name != "font" || len(stmt.Command.Args) == 0 {
			continue
		}
		ref := FontRef{Name: stmt.Command.Args[0].Value}
		if stmt.Command.Block != nil {
			for _, inner := range stmt.Command.Block.Statements {
				if inner.Assignment != nil && inner.Assignment.Key == "src" {
					ref.Src = valueToString(inner.Assignment.Value)
				}
			}
		}
		out = append(out, ref)
	}
	return out
}

func decodePage(section *dsl.PageSection, doc *Document) error {
	_, attrs := parseArgs(section.Spec.Params, false)
	doc.Page = PageFormat{
		MarginTop:       parseNumber(attrs["margin-top"]),
		MarginBottom:    parseNumber(attrs["margin-bottom"]),
		MarginLeft:      parseNumber(attrs["margin-left"]),
		MarginRight:     parseNumber(attrs["margin-right"]),
		LineSpacing:     parseNumber(attrs["line-spacing"]),
		SpaceAfter:      parseNumber(attrs["space-after"]),
		FirstLineIndent: parseNumber(attrs["indent"]),
	}
	if section.Block == nil {
		return fmt.Errorf("page 段落缺少内容")
	}
	for _, stmt := range section.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		switch stmt.Command.Name {
		case "break":
			doc.Breaks = append(doc.Breaks, len(doc.Paragraphs))
		case "paragraph":
			para, err := decodeParagraph(stmt.Command)
			if err != nil {
				return err
			}
			doc.Paragraphs = append(doc.Paragraphs, para)
		default:
			// 其余命令暂未使用，忽略即可
		}
	}
	return nil
}

func decodeParagraph(cmd *dsl.Command) (Paragraph, error) {
	var para Paragraph
	if cmd.Block == nil {
		return para, nil
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Command == nil || stmt.Command.Name != "run" {
			continue
		}
		font, attrs := parseArgs(stmt.Command.Args, true)
		gray, err := parseGray(attrs["color"])
		if err != nil {
			return para, fmt.Errorf("第 %d 行: %w", stmt.Command.Pos.Line, err)
		}
		style := attrs["style"]
		para.Runs = append(para.Runs, Run{
			Text:   extractText(stmt.Command.Block),
			Font:   font,
			Size:   parseNumber(attrs["size"]),
			Gray:   gray,
			Bold:   strings.Contains(style, "B"),
			Italic: strings.Contains(style, "I"),
		})
	}
	return para, nil
}

// parseArgs 把参数按 key value 成对读取；allowName 为真时首个字符串参数作为名称返回。
func parseArgs(args []*dsl.Lexeme, allowName bool) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}

	cursor := 0
	var name string
	if allowName && args[0].Type == "String" {
		name = args[0].Value
		cursor = 1
	}

	for cursor < len(args)-1 {
		result[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return name, result
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var builder strings.Builder
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Ident != nil:
		return *val.Ident
	default:
		return ""
	}
}

// valueToStrings 展开数组值；单个值视为只有一个元素的数组。
func valueToStrings(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array == nil {
		if s := valueToString(val); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(val.Array.Values))
	for _, item := range val.Array.Values {
		out = append(out, valueToString(item))
	}
	return out
}

func parseNumber(value string) float64 {
	value = strings.TrimSuffix(strings.TrimSuffix(value, "pt"), "x")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseGray 读取 #RRGGBB 并返回其红色分量（文档中的颜色总是灰度）。
func parseGray(value string) (uint8, error) {
	value = strings.TrimPrefix(value, "#")
	if len(value) != 6 && len(value) != 8 {
		return 0, fmt.Errorf("颜色值 #%s 无法解析", value)
	}
	v, err := strconv.ParseUint(value[0:2], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("颜色值 #%s 无法解析: %w", value, err)
	}
	return uint8(v), nil
}

func styleFlags(run Run) string {
	var s string
	if run.Bold {
		s += "B"
	}
	if run.Italic {
		s += "I"
	}
	return s
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pt(v float64) string {
	return num(v) + "pt"
}
