package utils

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/haiyousec/linkwatch/internal/models"
)

// ReadSitesFromFile 从文件中读取网站列表
// 每行一个网站, 格式为 "名称|URL" 或仅 "URL" (名称取主机名)
func ReadSitesFromFile(filepath string) ([]models.Site, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开网站列表文件失败: %w", err)
	}
	defer file.Close()

	sites := make([]models.Site, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, rawURL := parseSiteLine(line)

		// 验证URL格式
		if err := ValidateURL(rawURL); err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, rawURL, err)
			continue
		}

		if name == "" {
			parsed, _ := url.Parse(rawURL)
			name = parsed.Host
		}

		sites = append(sites, models.Site{Name: name, URL: rawURL})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取网站列表文件失败: %w", err)
	}

	if len(sites) == 0 {
		return nil, fmt.Errorf("网站列表文件中没有有效的网站")
	}

	Infof("从文件加载了 %d 个网站", len(sites))
	return sites, nil
}

// parseSiteLine 解析单行 "名称|URL" 或 "URL"
func parseSiteLine(line string) (name, rawURL string) {
	if idx := strings.Index(line, "|"); idx >= 0 {
		return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
	}
	return "", line
}

// ValidateURL 验证URL格式
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("URL缺少协议(http/https)")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL协议必须是http或https")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL缺少主机名")
	}

	return nil
}
