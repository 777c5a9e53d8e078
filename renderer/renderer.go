// Package renderer 定义页面光栅化策略，以及按顺序回退的策略链。
package renderer

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/ByLCY/handwrite/document"
	"github.com/ByLCY/handwrite/layout"
)

// ErrUnavailable 表示策略依赖的外部程序或资源缺失。
var ErrUnavailable = errors.New("光栅化策略不可用")

// 策略名称，与配置项 converter.strategy 对应。
const (
	StrategyAuto      = "auto"
	StrategyDirect    = "direct"
	StrategyConverter = "converter"
)

// Job 是一次光栅化所需的输入。
type Job struct {
	Result   *layout.Result
	Document *document.Document
	// WorkDir 存放中间产物（PDF、转换出的 PNG 等）。
	WorkDir string
}

// Rasterizer 将分页结果绘制为逐页图像，页序与 Job.Result.Pages 一致。
type Rasterizer interface {
	Name() string
	// Available 在启动时探测策略是否可用；不可用时返回包装了 ErrUnavailable 的错误。
	Available() error
	Rasterize(job Job) ([]image.Image, error)
}

// Select 按策略名返回候选策略的顺序。auto 优先使用转换器，失败后退回直接绘制。
func Select(strategy string, direct, converter Rasterizer) ([]Rasterizer, error) {
	switch strategy {
	case "", StrategyAuto:
		return []Rasterizer{converter, direct}, nil
	case StrategyDirect:
		return []Rasterizer{direct}, nil
	case StrategyConverter:
		return []Rasterizer{converter}, nil
	default:
		return nil, fmt.Errorf("未知的光栅化策略: %s", strategy)
	}
}

// Chain 依次尝试多个策略，直到某个策略成功。
type Chain struct {
	strategies []Rasterizer
	logger     *log.Logger
}

// NewChain 探测各策略的可用性，只保留可用的策略。
// 一个可用策略都没有时返回 ErrUnavailable。
func NewChain(logger *log.Logger, strategies ...Rasterizer) (*Chain, error) {
	if logger == nil {
		logger = log.Default()
	}
	chain := &Chain{logger: logger}
	var errs []error
	for _, s := range strategies {
		if s == nil {
			continue
		}
		if err := s.Available(); err != nil {
			logger.Warn("光栅化策略不可用，已跳过", "strategy", s.Name(), "err", err)
			errs = append(errs, err)
			continue
		}
		chain.strategies = append(chain.strategies, s)
	}
	if len(chain.strategies) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}
	return chain, nil
}

// Names 返回链中的策略名。
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Rasterize 依次执行策略，返回第一个成功策略的图像及其名称。
func (c *Chain) Rasterize(job Job) ([]image.Image, string, error) {
	if job.Result == nil {
		return nil, "", fmt.Errorf("缺少分页结果")
	}
	var errs []error
	for _, s := range c.strategies {
		images, err := s.Rasterize(job)
		if err == nil {
			return images, s.Name(), nil
		}
		c.logger.Warn("光栅化失败，尝试下一个策略", "strategy", s.Name(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, "", fmt.Errorf("所有光栅化策略均失败 (%s): %w", strings.Join(c.Names(), ", "), errors.Join(errs...))
}
