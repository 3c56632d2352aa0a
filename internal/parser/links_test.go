package parser

import (
	"strings"
	"testing"

	"github.com/haiyousec/linkwatch/internal/models"
)

func TestShouldSkipHref(t *testing.T) {
	tests := []struct {
		name string
		href string
		want bool
	}{
		{"javascript伪协议", "javascript:void(0)", true},
		{"大写JavaScript", "JavaScript:doSomething()", true},
		{"mailto链接", "mailto:admin@example.com", true},
		{"tel链接", "tel:+8610000000", true},
		{"页内锚点", "#section", true},
		{"void调用", "void(0)", true},
		{"普通相对链接", "/about", false},
		{"绝对链接", "https://example.com/about", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkipHref(tt.href); got != tt.want {
				t.Errorf("shouldSkipHref(%q) = %v, 期望 %v", tt.href, got, tt.want)
			}
		})
	}
}

func TestNormalizeLinks(t *testing.T) {
	raw := []models.LinkInfo{
		{Text: "关于我们", Href: "/about"},
		{Text: "新闻中心", Href: "https://example.com/news"},
		{Text: "重复新闻", Href: "HTTPS://EXAMPLE.COM/NEWS"},
		{Text: "脚本", Href: "javascript:void(0)"},
		{Text: "邮件", Href: "mailto:a@b.com"},
		{Text: "锚点", Href: "#top"},
		{Text: "外站", Href: "https://other.example.org/page"},
	}

	links := NormalizeLinks("https://example.com/index.html", raw)

	if len(links) != 3 {
		t.Fatalf("链接数量 = %d, 期望 3: %+v", len(links), links)
	}
	if links[0].Href != "https://example.com/about" {
		t.Errorf("相对链接未正确解析: %s", links[0].Href)
	}
	for _, l := range links {
		if strings.HasPrefix(l.Href, "javascript:") || strings.HasPrefix(l.Href, "mailto:") {
			t.Errorf("跳过规则未生效: %s", l.Href)
		}
	}
}

func TestNormalizeLinks_Caps(t *testing.T) {
	raw := make([]models.LinkInfo, 0, 150)
	for i := 0; i < 150; i++ {
		raw = append(raw, models.LinkInfo{
			Text: "链接",
			Href: "https://example.com/page/" + strings.Repeat("x", i%7) + string(rune('a'+i%26)) + "/" + strings.Repeat("y", i/26),
		})
	}

	links := NormalizeLinks("https://example.com/", raw)
	if len(links) > models.MaxLinksPerPage {
		t.Errorf("链接数量超出上限: %d > %d", len(links), models.MaxLinksPerPage)
	}
}

func TestNormalizeLinks_TruncatesText(t *testing.T) {
	longText := strings.Repeat("很长的链接文本", 100)
	links := NormalizeLinks("https://example.com/", []models.LinkInfo{
		{Text: longText, Href: "https://example.com/long"},
	})

	if len(links) != 1 {
		t.Fatalf("链接数量 = %d, 期望 1", len(links))
	}
	if textLen := len([]rune(links[0].Text)); textLen > maxAttrTextLength {
		t.Errorf("链接文本未截断: %d字符", textLen)
	}
}

func TestNormalizeImages(t *testing.T) {
	raw := []models.ImageInfo{
		{Src: "/images/logo.png", Alt: "标志"},
		{Src: "data:image/png;base64,iVBOR", Alt: "内联图片"},
		{Src: "https://example.com/banner.jpg", Alt: "横幅"},
		{Src: "https://example.com/banner.jpg", Alt: "重复横幅"},
	}

	images := NormalizeImages("https://example.com/", raw)
	if len(images) != 2 {
		t.Fatalf("图片数量 = %d, 期望 2: %+v", len(images), images)
	}
	if images[0].Src != "https://example.com/images/logo.png" {
		t.Errorf("相对路径未解析: %s", images[0].Src)
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"短文本不截断", "你好世界", 10, "你好世界"},
		{"多余空白合并", "你好   世界\n\n测试", 20, "你好 世界 测试"},
		{"超长截断", "abcdefghij", 5, "abcde"},
		{"中文按字符截断", "一二三四五六", 3, "一二三"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateText(tt.input, tt.limit); got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, 期望 %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}
