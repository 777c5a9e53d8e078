// Package binding 把文本中的 ${path.to.value} 占位符替换为 JSON 数据中的值。
package binding

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// indexPattern 把 items[0] 写法转换为 gjson 的 items.0。
var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// Span 是文本中一个可解析的占位符，Start/End 为字节偏移。
type Span struct {
	Start, End int
	Value      string
}

// Interpolate 将文本中的 ${path.to.value} 替换为 data（JSON）中的值。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data []byte) string {
	spans := Resolve(text, data)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		b.WriteString(text[pos:s.Start])
		b.WriteString(s.Value)
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Resolve 返回文本中能在 data 里找到取值的占位符，按出现顺序排列。
func Resolve(text string, data []byte) []Span {
	if len(data) == 0 || !strings.Contains(text, "${") {
		return nil
	}
	var spans []Span
	for _, m := range exprPattern.FindAllStringSubmatchIndex(text, -1) {
		path := strings.TrimSpace(text[m[2]:m[3]])
		if path == "" {
			continue
		}
		if val, ok := resolvePath(data, path); ok {
			spans = append(spans, Span{Start: m[0], End: m[1], Value: val})
		}
	}
	return spans
}

// InterpolateLines 对每一行执行 Interpolate。
func InterpolateLines(lines []string, data []byte) []string {
	if len(data) == 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Interpolate(line, data)
	}
	return out
}

// Valid 报告 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return gjson.ValidBytes(data)
}

func resolvePath(data []byte, path string) (string, bool) {
	path = indexPattern.ReplaceAllString(path, ".$1")
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		return "", false
	}
	return res.String(), true
}
