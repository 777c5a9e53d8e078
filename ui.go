package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ByLCY/handwrite/pipeline"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorRed   = lipgloss.Color("167")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")

	styleTitle       = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleValue       = lipgloss.NewStyle().Foreground(colorWhite)
	styleDim         = lipgloss.NewStyle().Foreground(colorDim)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	stylePrompt      = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
)

func printErrorTo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

// reportError 输出错误；输入缺失或为空时附带用法提示。
func reportError(w io.Writer, err error) {
	printErrorTo(w, "%v", err)
	if pipeline.IsInputError(err) {
		fmt.Fprintln(w, "  "+styleDim.Render("用法：handwrite 文件.txt|.md|.hw，或 handwrite --text \"内容\""))
	}
}

func printSuccessTo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+styleValue.Render(value))
}

// printSummary 输出本次生成的结果摘要。
func printSummary(w io.Writer, report *pipeline.Report, outputDir string) {
	fmt.Fprintln(w)
	printSuccessTo(w, "%s", styleTitle.Render("完成！结果已保存到 "+outputDir+" 目录"))
	printKeyValue(w, "页数", fmt.Sprintf("%d", report.Pages))
	printKeyValue(w, "光栅化", strategyLabel(report.Strategy))
	printKeyValue(w, "主字体", report.MainFont)
	printKeyValue(w, "字体", strings.Join(report.Fonts, ", "))
	printKeyValue(w, "红线", policyLabel(report.RulePolicy))
	printKeyValue(w, "随机种子", fmt.Sprintf("%d", report.Seed))
	printKeyValue(w, "中间文档", report.Document)
	for _, path := range report.Outputs {
		fmt.Fprintln(w, "  "+styleDim.Render(iconArrow)+" "+styleValue.Render(path))
	}
}

// confirm 显示 prompt 并读取一行回答；只有明确回答 n/no 时返回 false。
func confirm(in io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprint(w, stylePrompt.Render(prompt))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(w)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "n", "no":
		return false
	default:
		return true
	}
}
