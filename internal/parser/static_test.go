package parser

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/haiyousec/linkwatch/internal/models"
)

type staticTestHeaders struct{}

func (staticTestHeaders) GetHeaders() (http.Header, error) {
	h := http.Header{}
	h.Set("User-Agent", "linkwatch-test/1.0")
	return h, nil
}

func staticTestConfig() models.MonitorConfig {
	return models.MonitorConfig{
		Mode:            models.ModeStatic,
		PageLoadTimeout: 10000,
		LinkTestTimeout: 5000,
		MaxWorkers:      5,
		MaxTabs:         4,
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
	<title>测试站点首页</title>
	<meta name="description" content="这是一个测试站点">
</head>
<body>
	<h1>欢迎</h1>
	<h2>新闻</h2>
	<h2>公告</h2>
	<script>var hidden = "脚本内容";</script>
	<a href="/about">关于我们</a>
	<a href="https://example.org/external">外部链接</a>
	<a href="javascript:void(0)">无效链接</a>
	<a href="#top">回到顶部</a>
	<img src="/logo.png" alt="站点标志">
	<img src="data:image/png;base64,AAAA" alt="内联">
	<p>页面正文内容</p>
</body>
</html>`

func TestStaticParser_ParsePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(testPage))
	}))
	defer server.Close()

	sp := NewStaticParser(staticTestConfig(), staticTestHeaders{})
	elements, err := sp.ParsePage(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("ParsePage() 失败: %v", err)
	}

	if elements.Title != "测试站点首页" {
		t.Errorf("标题 = %q", elements.Title)
	}
	if elements.MetaDescription != "这是一个测试站点" {
		t.Errorf("meta描述 = %q", elements.MetaDescription)
	}
	if elements.ParseMethod != "static" {
		t.Errorf("解析方式 = %q, 期望 static", elements.ParseMethod)
	}

	if len(elements.Headings["h1"]) != 1 || elements.Headings["h1"][0] != "欢迎" {
		t.Errorf("h1标题不匹配: %+v", elements.Headings["h1"])
	}
	if len(elements.Headings["h2"]) != 2 {
		t.Errorf("h2数量 = %d, 期望 2", len(elements.Headings["h2"]))
	}

	// javascript:和锚点链接被跳过
	if len(elements.Links) != 2 {
		t.Fatalf("链接数量 = %d, 期望 2: %+v", len(elements.Links), elements.Links)
	}
	if elements.Links[0].Href != server.URL+"/about" {
		t.Errorf("相对链接未解析: %s", elements.Links[0].Href)
	}

	// data:图片被跳过
	if len(elements.Images) != 1 {
		t.Fatalf("图片数量 = %d, 期望 1: %+v", len(elements.Images), elements.Images)
	}
	if elements.Images[0].Alt != "站点标志" {
		t.Errorf("图片alt = %q", elements.Images[0].Alt)
	}

	if elements.TextPreview == "" {
		t.Error("正文预览不应为空")
	}
}

func TestStaticParser_BrotliResponse(t *testing.T) {
	// 默认头部声明Accept-Encoding: br, 服务器返回brotli压缩内容时必须解压后再解析
	var compressed bytes.Buffer
	bw := brotli.NewWriter(&compressed)
	if _, err := bw.Write([]byte(testPage)); err != nil {
		t.Fatalf("压缩测试页面失败: %v", err)
	}
	bw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "br")
		w.Write(compressed.Bytes())
	}))
	defer server.Close()

	sp := NewStaticParser(staticTestConfig(), brotliTestHeaders{})
	elements, err := sp.ParsePage(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("ParsePage() 失败: %v", err)
	}

	if elements.Title != "测试站点首页" {
		t.Errorf("brotli响应解压后标题 = %q, 期望 测试站点首页", elements.Title)
	}
	if len(elements.Links) != 2 {
		t.Errorf("brotli响应解压后链接数量 = %d, 期望 2: %+v", len(elements.Links), elements.Links)
	}
}

type brotliTestHeaders struct{}

func (brotliTestHeaders) GetHeaders() (http.Header, error) {
	h := http.Header{}
	h.Set("User-Agent", "linkwatch-test/1.0")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	return h, nil
}

func TestStaticParser_CustomHeaders(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>页面</title></head><body></body></html>"))
	}))
	defer server.Close()

	sp := NewStaticParser(staticTestConfig(), staticTestHeaders{})
	if _, err := sp.ParsePage(context.Background(), server.URL+"/"); err != nil {
		t.Fatalf("ParsePage() 失败: %v", err)
	}
	if gotUA != "linkwatch-test/1.0" {
		t.Errorf("自定义User-Agent未生效: %q", gotUA)
	}
}

func TestStaticParser_NonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"key": "value"}`))
	}))
	defer server.Close()

	sp := NewStaticParser(staticTestConfig(), staticTestHeaders{})
	if _, err := sp.ParsePage(context.Background(), server.URL+"/data.json"); err == nil {
		t.Error("非HTML响应应返回错误")
	}
}

func TestStaticParser_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sp := NewStaticParser(staticTestConfig(), staticTestHeaders{})
	if _, err := sp.ParsePage(context.Background(), server.URL+"/"); err == nil {
		t.Error("服务器错误应返回解析失败")
	}
}
