// Package parser 提供网站首页的元素解析能力
//
// 两种解析方式:
//   - DynamicParser: Rod无头浏览器渲染后提取,配合自适应标签页池和资源监控
//   - StaticParser: Colly直接解析服务端HTML,作为浏览器不可用时的回退
package parser

import (
	"context"
	"fmt"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/utils"
)

// PageParser 页面解析器接口
type PageParser interface {
	// ParsePage 解析页面并提取全部元素
	ParsePage(ctx context.Context, pageURL string) (*models.PageElements, error)
}

// FallbackParser 组合解析器: 动态优先,失败回退静态
type FallbackParser struct {
	dynamic *DynamicParser
	static  *StaticParser
}

// ParsePage 先尝试动态解析,失败后回退静态解析
func (fp *FallbackParser) ParsePage(ctx context.Context, pageURL string) (*models.PageElements, error) {
	elements, err := fp.dynamic.ParsePage(ctx, pageURL)
	if err == nil {
		return elements, nil
	}

	utils.Warnf("动态解析失败 [%s]: %v, 回退静态解析", pageURL, err)
	return fp.static.ParsePage(ctx, pageURL)
}

// NewParser 按解析模式创建解析器
// 返回解析器和释放函数(关闭浏览器等)
func NewParser(config models.MonitorConfig, headerProvider models.HeaderProvider) (PageParser, func(), error) {
	switch config.Mode {
	case models.ModeStatic:
		return NewStaticParser(config, headerProvider), func() {}, nil

	case models.ModeDynamic:
		dp := NewDynamicParser(config, headerProvider)
		if err := dp.Start(); err != nil {
			return nil, nil, fmt.Errorf("启动动态解析器失败: %w", err)
		}
		return dp, dp.Stop, nil

	case models.ModeAll:
		dp := NewDynamicParser(config, headerProvider)
		if err := dp.Start(); err != nil {
			// 浏览器不可用,降级为纯静态解析
			utils.Warnf("启动浏览器失败: %v, 降级为静态解析", err)
			return NewStaticParser(config, headerProvider), func() {}, nil
		}
		return &FallbackParser{
			dynamic: dp,
			static:  NewStaticParser(config, headerProvider),
		}, dp.Stop, nil

	default:
		return nil, nil, fmt.Errorf("未知的解析模式: %s", config.Mode)
	}
}
