// handwrite 把文本生成为逼真的手写作业图片。
//
//	handwrite input.txt -o res
//	handwrite --text "这是第一段。" --auto
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ByLCY/handwrite/binding"
	"github.com/ByLCY/handwrite/compose"
	"github.com/ByLCY/handwrite/config"
	"github.com/ByLCY/handwrite/pipeline"
	"github.com/ByLCY/handwrite/renderer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	output     string
	temp       string
	text       string
	auto       bool
	configPath string
	fontDir    string
	background string
	seed       uint64
	dataPath   string
	debug      bool
	strategy   string
	rules      string
	verbose    bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "handwrite [input]",
		Short:        "生成逼真的手写作业图片",
		Long:         "handwrite 把 .txt、Markdown 或中间文档（.hw）中的文本逐字绘制成手写风格，并合成到红线作业纸上。",
		Args:         cobra.MaximumNArgs(1),
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "input.txt"
			if len(args) == 1 {
				input = args[0]
			}
			return run(cmd.Context(), input, opts, in, out)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("handwrite %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "res", "输出目录")
	f.StringVarP(&opts.temp, "temp", "t", "temporary", "临时文件目录")
	f.StringVar(&opts.text, "text", "", "直接输入文本内容")
	f.BoolVar(&opts.auto, "auto", false, "自动模式，跳过确认步骤并保留临时文件")
	f.StringVar(&opts.configPath, "config", "", "TOML 配置文件（默认读取 $"+config.EnvConfig+"）")
	f.StringVar(&opts.fontDir, "fonts", "", "字体目录（默认读取 $"+config.EnvFontDir+"）")
	f.StringVar(&opts.background, "background", "", "背景图片，不存在时生成红线纸")
	f.Uint64Var(&opts.seed, "seed", 0, "随机种子，0 表示使用当前时间")
	f.StringVar(&opts.dataPath, "data", "", "替换 ${path} 占位符的 JSON 文件")
	f.BoolVar(&opts.debug, "debug", false, "在临时目录写出 layout.json")
	f.StringVar(&opts.strategy, "strategy", "", "光栅化策略: auto | direct | converter")
	f.StringVar(&opts.rules, "rules", "", "红线与墨迹重叠时的处理: rules-on-top | ink-on-top")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")
	return cmd
}

func run(ctx context.Context, input string, opts options, in io.Reader, out io.Writer) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	var data []byte
	if opts.dataPath != "" {
		if data, err = os.ReadFile(opts.dataPath); err != nil {
			return fmt.Errorf("读取数据文件 %s 失败: %w", opts.dataPath, err)
		}
		if !binding.Valid(data) {
			return fmt.Errorf("数据文件 %s 不是合法的 JSON", opts.dataPath)
		}
	}

	prog := newProgress(logger)
	report, err := pipeline.Run(ctx, pipeline.Options{
		Input:     input,
		Text:      opts.text,
		Data:      data,
		OutputDir: opts.output,
		TempDir:   opts.temp,
		Config:    cfg,
		Seed:      opts.seed,
		Debug:     opts.debug,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("生成了 %d 张作业图片", report.Pages))
	printSummary(out, report, opts.output)

	if opts.auto {
		return nil
	}
	if !confirm(in, out, "是否清理临时文件？(Y/n): ") {
		return nil
	}
	n, err := cleanDir(opts.temp)
	if err != nil {
		return err
	}
	printSuccessTo(out, "临时文件已清理（%d 个）", n)
	return nil
}

// loadConfig 依次叠加默认值、配置文件、环境变量与命令行参数。
func loadConfig(opts options) (config.Config, error) {
	envPath := config.LoadEnv()
	path := opts.configPath
	if path == "" {
		path = envPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if opts.fontDir != "" {
		cfg.FontDir = opts.fontDir
	}
	if opts.background != "" {
		cfg.Background = opts.background
	}
	if opts.strategy != "" {
		cfg.Converter.Strategy = opts.strategy
	}
	if opts.rules != "" {
		cfg.Ruled.RulePolicy = opts.rules
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// cleanDir 删除 dir 下的普通文件，返回删除数量。
func cleanDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("读取临时目录 %s 失败: %w", dir, err)
	}
	n := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return n, fmt.Errorf("删除临时文件失败: %w", err)
		}
		n++
	}
	return n, nil
}

// strategyLabel 把策略名转为摘要中显示的说明。
func strategyLabel(name string) string {
	switch name {
	case renderer.StrategyDirect:
		return "逐字绘制"
	case renderer.StrategyConverter:
		return "PDF 转换 (mutool)"
	default:
		return name
	}
}

// policyLabel 返回红线策略的说明。
func policyLabel(policy string) string {
	if policy == compose.InkOnTop {
		return "墨迹覆盖红线"
	}
	return "红线保留在墨迹之上"
}
