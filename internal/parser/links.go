package parser

import (
	"net/url"
	"strings"

	"github.com/haiyousec/linkwatch/internal/models"
)

// maxAttrTextLength 链接文本/图片alt的最大长度
const maxAttrTextLength = 200

// skippedHrefPrefixes 不参与检测的特殊链接前缀
var skippedHrefPrefixes = []string{
	"javascript:", "mailto:", "tel:", "#", "void(0)",
}

// shouldSkipHref 判断href是否为特殊链接
func shouldSkipHref(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range skippedHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// NormalizeLinks 规范化页面提取的原始链接
// 处理: 跳过特殊链接、相对链接转绝对、按URL小写去重、截断文本、应用数量上限
func NormalizeLinks(baseURL string, raw []models.LinkInfo) []models.LinkInfo {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	result := make([]models.LinkInfo, 0, len(raw))

	for _, link := range raw {
		if len(result) >= models.MaxLinksPerPage {
			break
		}

		href := strings.TrimSpace(link.Href)
		if href == "" || shouldSkipHref(href) {
			continue
		}

		absolute, ok := resolveURL(base, href)
		if !ok {
			continue
		}

		// 按小写URL去重
		key := strings.ToLower(absolute)
		if seen[key] {
			continue
		}
		seen[key] = true

		result = append(result, models.LinkInfo{
			Text: truncateText(link.Text, maxAttrTextLength),
			Href: absolute,
		})
	}

	return result
}

// NormalizeImages 规范化页面提取的原始图片
func NormalizeImages(baseURL string, raw []models.ImageInfo) []models.ImageInfo {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	result := make([]models.ImageInfo, 0, len(raw))

	for _, img := range raw {
		if len(result) >= models.MaxImagesPerPage {
			break
		}

		src := strings.TrimSpace(img.Src)
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			continue
		}

		absolute, ok := resolveURL(base, src)
		if !ok {
			continue
		}

		if seen[absolute] {
			continue
		}
		seen[absolute] = true

		result = append(result, models.ImageInfo{
			Src: absolute,
			Alt: truncateText(img.Alt, maxAttrTextLength),
		})
	}

	return result
}

// resolveURL 将相对链接解析为绝对URL
// 只接受http/https结果
func resolveURL(base *url.URL, ref string) (string, bool) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", false
	}

	absolute := base.ResolveReference(parsed)
	if absolute.Scheme != "http" && absolute.Scheme != "https" {
		return "", false
	}
	if absolute.Host == "" {
		return "", false
	}

	return absolute.String(), true
}

// truncateText 清理并截断文本
// 折叠连续空白为单个空格,按rune截断避免切断多字节字符
func truncateText(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
