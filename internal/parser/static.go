package parser

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/utils"
)

// StaticParser 静态页面解析器(使用Colly)
// 不渲染JavaScript,直接解析服务端返回的HTML
// 用于dynamic模式不可用或失败时的回退
type StaticParser struct {
	config models.MonitorConfig

	// HTTP头部提供者
	headerProvider models.HeaderProvider
}

// NewStaticParser 创建静态解析器
func NewStaticParser(config models.MonitorConfig, headerProvider models.HeaderProvider) *StaticParser {
	return &StaticParser{
		config:         config,
		headerProvider: headerProvider,
	}
}

// ParsePage 解析单个页面,提取全部元素
func (sp *StaticParser) ParsePage(ctx context.Context, pageURL string) (*models.PageElements, error) {
	timeout := time.Duration(sp.config.PageLoadTimeout) * time.Millisecond

	// 禁用TLS证书验证,允许访问自签名、过期或主机名不匹配的HTTPS站点
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
		Timeout: timeout,
	}

	c := colly.NewCollector()
	c.SetClient(httpClient)
	c.SetRequestTimeout(timeout)

	var elements *models.PageElements
	var parseErr error

	c.OnRequest(func(r *colly.Request) {
		// context取消时中止请求
		select {
		case <-ctx.Done():
			r.Abort()
			return
		default:
		}

		// 应用自定义HTTP头部
		if sp.headerProvider != nil {
			headers, err := sp.headerProvider.GetHeaders()
			if err != nil {
				utils.Warnf("获取HTTP头部失败: %v", err)
			} else {
				for name, values := range headers {
					if len(values) > 0 {
						r.Headers.Set(name, values[0])
					}
				}
			}
		}

		utils.Debugf("静态解析访问: %s", r.URL.String())
	})

	c.OnResponse(func(r *colly.Response) {
		// 解压响应体(如果有压缩), 否则goquery会解析到空文档
		encoding := r.Headers.Get("Content-Encoding")
		if encoding == "" {
			return
		}
		decompressed, err := utils.DecompressResponse(encoding, r.Body)
		if err != nil {
			// gzip响应已被collector解压,再解压会失败,属预期情况
			utils.Debugf("跳过响应解压 [%s] (编码=%s): %v", r.Request.URL, encoding, err)
			return
		}
		r.Body = decompressed
		r.Headers.Del("Content-Encoding")
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		// 重定向后以实际URL为基准解析相对链接
		finalURL := e.Request.URL.String()
		elements = sp.extractElements(finalURL, e.DOM)
		elements.URL = pageURL
	})

	c.OnError(func(r *colly.Response, err error) {
		parseErr = fmt.Errorf("静态解析请求失败: %w", err)
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("访问页面失败: %w", err)
	}
	c.Wait()

	if parseErr != nil {
		return nil, parseErr
	}
	if elements == nil {
		return nil, fmt.Errorf("响应不是HTML页面: %s", pageURL)
	}

	utils.Infof("📄 静态解析完成: %s (链接%d个, 图片%d个)", pageURL, len(elements.Links), len(elements.Images))

	return elements, nil
}

// extractElements 从goquery选择集提取页面元素
func (sp *StaticParser) extractElements(baseURL string, sel *goquery.Selection) *models.PageElements {
	elements := models.NewPageElements(baseURL)
	elements.ParseMethod = "static"

	// 标题与meta描述
	elements.Title = strings.TrimSpace(sel.Find("title").First().Text())
	elements.MetaDescription = truncateText(sel.Find(`meta[name="description"]`).AttrOr("content", ""), maxAttrTextLength)

	// h1-h6标题, 每级最多10个
	for level := 1; level <= 6; level++ {
		tag := fmt.Sprintf("h%d", level)
		texts := make([]string, 0)
		sel.Find(tag).EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if text := strings.TrimSpace(h.Text()); text != "" {
				texts = append(texts, text)
			}
			return len(texts) < models.MaxHeadingsPerLevel
		})
		elements.Headings[tag] = texts
	}

	// 链接: 原始提取后统一规范化
	rawLinks := make([]models.LinkInfo, 0)
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		rawLinks = append(rawLinks, models.LinkInfo{
			Text: a.Text(),
			Href: a.AttrOr("href", ""),
		})
	})
	elements.Links = NormalizeLinks(baseURL, rawLinks)

	// 图片
	rawImages := make([]models.ImageInfo, 0)
	sel.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		rawImages = append(rawImages, models.ImageInfo{
			Src: img.AttrOr("src", ""),
			Alt: img.AttrOr("alt", ""),
		})
	})
	elements.Images = NormalizeImages(baseURL, rawImages)

	// 正文预览: goquery的Text()会包含script内容,改用节点遍历跳过
	if len(sel.Nodes) > 0 {
		elements.TextPreview = ExtractVisibleText(sel.Nodes[0])
	}

	return elements
}
