package parser

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/haiyousec/linkwatch/internal/models"
)

// skippedTextTags 正文提取时跳过的标签
var skippedTextTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// ExtractVisibleText 从HTML节点树提取可见文本
// 跳过script/style等标签,折叠空白,截断到正文预览上限
func ExtractVisibleText(root *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTextTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return truncateText(sb.String(), models.MaxTextPreview)
}
