// Package config 定义 handwrite 的全部可调参数，默认值来自内嵌的 default.toml。
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/ridge/must/v2"
)

// 环境变量，优先级低于命令行参数。
const (
	EnvFontDir = "HANDWRITE_FONT_DIR"
	EnvConfig  = "HANDWRITE_CONFIG"
)

//go:embed default.toml
var defaultTOML string

// Config 是一次运行所需的全部参数。
type Config struct {
	FontDir    string    `toml:"font_dir"`
	Background string    `toml:"background_image"`
	Layout     Layout    `toml:"layout"`
	Page       Page      `toml:"page"`
	Render     Render    `toml:"render"`
	Document   Document  `toml:"document"`
	Ruled      Ruled     `toml:"background"`
	Converter  Converter `toml:"converter"`
}

// Layout 控制换行与分页。
type Layout struct {
	MaxChars     int    `toml:"max_chars"`
	LinesPerPage int    `toml:"lines_per_page"`
	Punctuation  string `toml:"punctuation"`
	Measure      string `toml:"measure"` // rune | column
}

// Page 为输出页面的像素尺寸。
type Page struct {
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	DPI    float64 `toml:"dpi"`
}

// Render 控制逐字绘制时的随机化参数，长度单位均为像素。
type Render struct {
	MainFont           string         `toml:"main_font"`
	Fonts              []string       `toml:"fonts"`
	AltFontProbability float64        `toml:"alt_font_probability"`
	FontSize           float64        `toml:"font_size"`
	SizeJitter         int            `toml:"size_jitter"`
	PositionJitter     int            `toml:"position_jitter"`
	GapMin             int            `toml:"gap_min"`
	GapMax             int            `toml:"gap_max"`
	FallbackAdvance    float64        `toml:"fallback_advance"`
	LineHeight         float64        `toml:"line_height"`
	Top                float64        `toml:"top"`
	IndentFirst        float64        `toml:"indent_first"`
	Indent             float64        `toml:"indent"`
	Ink                string         `toml:"ink"`
	InkJitter          float64        `toml:"ink_jitter"`
	BaselineOffsets    map[string]int `toml:"baseline_offsets"`
}

// Document 控制中间文档的 run 级格式，长度单位为 pt。
type Document struct {
	FontSize          float64 `toml:"font_size"`
	SizeJitter        int     `toml:"size_jitter"`
	SwitchMin         int     `toml:"switch_min"`
	SwitchMax         int     `toml:"switch_max"`
	GrayLevels        []int   `toml:"gray_levels"`
	GrayJitter        int     `toml:"gray_jitter"`
	GrayMin           int     `toml:"gray_min"`
	GrayMax           int     `toml:"gray_max"`
	BoldProbability   float64 `toml:"bold_probability"`
	ItalicProbability float64 `toml:"italic_probability"`
	LineSpacing       float64 `toml:"line_spacing"`
	SpaceAfter        float64 `toml:"space_after"`
	FirstLineIndent   float64 `toml:"first_line_indent"`
	MarginTop         float64 `toml:"margin_top"`
	MarginBottom      float64 `toml:"margin_bottom"`
	MarginLeft        float64 `toml:"margin_left"`
	MarginRight       float64 `toml:"margin_right"`
}

// Ruled 描述红线背景与合成参数。
type Ruled struct {
	RuleTop          int    `toml:"rule_top"`
	RulePitch        int    `toml:"rule_pitch"`
	RuleBottomMargin int    `toml:"rule_bottom_margin"`
	RuleInset        int    `toml:"rule_inset"`
	RuleThickness    int    `toml:"rule_thickness"`
	RuleColor        string `toml:"rule_color"`
	OffsetX          int    `toml:"offset_x"`
	OffsetY          int    `toml:"offset_y"`
	WhiteThreshold   uint8  `toml:"white_threshold"`
	RulePolicy       string `toml:"rule_policy"` // rules-on-top | ink-on-top
	JPEGQuality      int    `toml:"jpeg_quality"`
}

// Converter 选择页面光栅化策略。
type Converter struct {
	Strategy string `toml:"strategy"` // auto | direct | converter
	Command  string `toml:"command"`
}

// Default 返回内嵌默认配置。
func Default() Config {
	var cfg Config
	must.OK1(toml.Decode(defaultTOML, &cfg))
	return cfg
}

// Load 在默认配置上叠加 path 指定的 TOML 文件；path 为空时只返回默认值。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv 读取当前目录下的 .env（若存在），并返回环境变量中指定的配置文件路径。
func LoadEnv() string {
	_ = godotenv.Load()
	return os.Getenv(EnvConfig)
}

// ApplyEnv 用环境变量覆盖配置。
func (c *Config) ApplyEnv() {
	if dir := os.Getenv(EnvFontDir); dir != "" {
		c.FontDir = dir
	}
}

// Validate 检查会导致排版死循环或除零的取值。
func (c Config) Validate() error {
	switch {
	case c.Layout.MaxChars <= 0:
		return fmt.Errorf("layout.max_chars 必须为正数，实际 %d", c.Layout.MaxChars)
	case c.Layout.LinesPerPage <= 0:
		return fmt.Errorf("layout.lines_per_page 必须为正数，实际 %d", c.Layout.LinesPerPage)
	case c.Page.Width <= 0 || c.Page.Height <= 0:
		return fmt.Errorf("页面尺寸无效: %dx%d", c.Page.Width, c.Page.Height)
	case c.Render.FontSize <= 0:
		return fmt.Errorf("render.font_size 必须为正数")
	case c.Render.GapMax < c.Render.GapMin:
		return fmt.Errorf("render.gap_max 不能小于 gap_min")
	case c.Document.SwitchMin <= 0 || c.Document.SwitchMax < c.Document.SwitchMin:
		return fmt.Errorf("document.switch_min/switch_max 无效")
	case len(c.Document.GrayLevels) == 0:
		return fmt.Errorf("document.gray_levels 不能为空")
	case c.Ruled.RulePitch <= 0:
		return fmt.Errorf("background.rule_pitch 必须为正数")
	}
	switch c.Layout.Measure {
	case "", "rune", "column":
	default:
		return fmt.Errorf("未知的 layout.measure: %s", c.Layout.Measure)
	}
	switch c.Ruled.RulePolicy {
	case "", "rules-on-top", "ink-on-top":
	default:
		return fmt.Errorf("未知的 background.rule_policy: %s", c.Ruled.RulePolicy)
	}
	switch c.Converter.Strategy {
	case "", "auto", "direct", "converter":
	default:
		return fmt.Errorf("未知的 converter.strategy: %s", c.Converter.Strategy)
	}
	return nil
}
