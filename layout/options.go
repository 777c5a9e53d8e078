package layout

import "github.com/ByLCY/handwrite/config"

// 换行长度的计量方式。
const (
	MeasureRune   = "rune"   // 每个字符计 1
	MeasureColumn = "column" // 按终端显示宽度计，全角字符计 2
)

// DefaultPunctuation 是不应出现在行首的标点。
const DefaultPunctuation = "，。！？；：“”‘’\"（）【】《》、"

// Options 配置换行与分页。
type Options struct {
	MaxChars     int    `json:"maxChars"`
	LinesPerPage int    `json:"linesPerPage"`
	Punctuation  string `json:"punctuation"`
	Measure      string `json:"measure"`
}

// OptionsFromConfig 从配置中提取排版参数。
func OptionsFromConfig(c config.Layout) Options {
	return Options{
		MaxChars:     c.MaxChars,
		LinesPerPage: c.LinesPerPage,
		Punctuation:  c.Punctuation,
		Measure:      c.Measure,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = 29
	}
	if o.LinesPerPage <= 0 {
		o.LinesPerPage = 25
	}
	if o.Punctuation == "" {
		o.Punctuation = DefaultPunctuation
	}
	if o.Measure == "" {
		o.Measure = MeasureRune
	}
	return o
}
