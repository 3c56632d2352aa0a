package parser

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	node, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("解析HTML失败: %v", err)
	}
	return node
}

func TestExtractVisibleText(t *testing.T) {
	src := `<html><head>
		<title>测试页面</title>
		<style>body { color: red; }</style>
	</head><body>
		<h1>欢迎访问</h1>
		<script>var secret = "不应出现";</script>
		<p>这是  正文   内容</p>
		<noscript>请启用JS</noscript>
	</body></html>`

	text := ExtractVisibleText(parseHTML(t, src))

	if !strings.Contains(text, "欢迎访问") {
		t.Errorf("正文缺少标题文本: %q", text)
	}
	if !strings.Contains(text, "这是 正文 内容") {
		t.Errorf("空白未折叠或正文缺失: %q", text)
	}
	if strings.Contains(text, "不应出现") {
		t.Errorf("script内容泄漏到正文: %q", text)
	}
	if strings.Contains(text, "color: red") {
		t.Errorf("style内容泄漏到正文: %q", text)
	}
	if strings.Contains(text, "请启用JS") {
		t.Errorf("noscript内容泄漏到正文: %q", text)
	}
}

func TestExtractVisibleText_Limit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 2000; i++ {
		b.WriteString("<p>段落内容测试文字</p>")
	}
	b.WriteString("</body></html>")

	text := ExtractVisibleText(parseHTML(t, b.String()))
	if textLen := len([]rune(text)); textLen > 5000 {
		t.Errorf("正文预览未截断: %d字符", textLen)
	}
}
