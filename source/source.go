// Package source 读取待生成的文本：命令行字面量、.txt、Markdown 或已有的中间文档。
package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ByLCY/handwrite/binding"
	"github.com/ByLCY/handwrite/document"
)

var (
	// ErrNotFound 表示输入文件不存在。
	ErrNotFound = errors.New("输入文件不存在")
	// ErrEmptyInput 表示输入中没有任何非空行。
	ErrEmptyInput = errors.New("输入内容为空")
)

// 输入类型。
const (
	KindText     = "text"
	KindMarkdown = "markdown"
	KindDocument = "document"
)

// Options 配置输入读取。
type Options struct {
	// Data 为 JSON 数据，非空时用于替换文本中的 ${path} 占位符。
	Data []byte
}

// Input 是读取后的输入。Document 仅在读取 .hw 中间文档时非空。
type Input struct {
	Name     string
	Kind     string
	Lines    []string
	Document *document.Document
}

// FromText 把命令行传入的文本按换行拆分。
func FromText(s string, opts Options) (*Input, error) {
	return newInput("text", KindText, splitLines(s), opts)
}

// Load 按扩展名读取 path。
func Load(path string, opts Options) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("读取输入文件 %s 失败: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return newInput(name, KindMarkdown, markdownLines(data), opts)
	case ".hw":
		doc, err := document.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("读取中间文档 %s 失败: %w", path, err)
		}
		doc.Bind(opts.Data)
		in := &Input{Name: name, Kind: KindDocument, Lines: doc.Texts(), Document: doc}
		if !hasContent(in.Lines) {
			return nil, fmt.Errorf("%w: %s", ErrEmptyInput, path)
		}
		return in, nil
	default:
		return newInput(name, KindText, splitLines(string(data)), opts)
	}
}

func newInput(name, kind string, lines []string, opts Options) (*Input, error) {
	if len(opts.Data) > 0 {
		lines = binding.InterpolateLines(lines, opts.Data)
	}
	if !hasContent(lines) {
		return nil, ErrEmptyInput
	}
	return &Input{Name: name, Kind: kind, Lines: lines}, nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func hasContent(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// markdownLines 把 Markdown 的段落、标题与列表项各转为一行纯文本，块之间插入空行。
// 段内软换行直接拼接，硬换行另起一行；代码块与图片被忽略。
func markdownLines(src []byte) []string {
	root := goldmark.DefaultParser().Parse(text.NewReader(src))
	var lines []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindParagraph, ast.KindHeading, ast.KindTextBlock:
			block := inlineText(n, src)
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, block...)
			return ast.WalkSkipChildren, nil
		case ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return lines
}

func inlineText(block ast.Node, src []byte) []string {
	var lines []string
	var b strings.Builder
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.HardLineBreak() {
				lines = append(lines, b.String())
				b.Reset()
			}
		case *ast.String:
			b.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	return append(lines, b.String())
}
