package main

import (
	"fmt"
	"net/url"

	"github.com/haiyousec/linkwatch/internal/models"
)

// ValidateURL 验证URL格式
func ValidateURL(urlStr string) error {
	return models.ValidateURL(urlStr)
}

// ValidateFlags 验证命令行标志
// 零值表示未指定,使用配置文件或默认值
func ValidateFlags(
	mode string,
	pageLoadTimeout int,
	linkTestTimeout int,
	maxWorkers int,
	maxTabs int,
) error {
	// 验证模式
	if mode != "" {
		validModes := map[string]bool{
			"all":     true,
			"static":  true,
			"dynamic": true,
		}
		if !validModes[mode] {
			return fmt.Errorf("无效的解析模式: %s (有效值: all, static, dynamic)", mode)
		}
	}

	// 验证页面加载超时
	if pageLoadTimeout != 0 && (pageLoadTimeout < 1000 || pageLoadTimeout > 120000) {
		return fmt.Errorf("页面加载超时必须在1000-120000毫秒之间,当前值: %d", pageLoadTimeout)
	}

	// 验证链接检测超时
	if linkTestTimeout != 0 && (linkTestTimeout < 500 || linkTestTimeout > 60000) {
		return fmt.Errorf("链接检测超时必须在500-60000毫秒之间,当前值: %d", linkTestTimeout)
	}

	// 验证并发数
	if maxWorkers != 0 && (maxWorkers < 1 || maxWorkers > 100) {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", maxWorkers)
	}

	// 验证标签页数
	if maxTabs != 0 && (maxTabs < 1 || maxTabs > 20) {
		return fmt.Errorf("浏览器标签页数必须在1-20之间,当前值: %d", maxTabs)
	}

	return nil
}

// NormalizeURL 规范化URL
func NormalizeURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	// 如果没有协议,默认使用https
	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
