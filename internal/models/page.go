package models

import "time"

// 页面元素提取上限,避免超大页面拖垮结果文件
const (
	MaxLinksPerPage     = 100  // 每页最多保留的链接数
	MaxImagesPerPage    = 50   // 每页最多保留的图片数
	MaxHeadingsPerLevel = 10   // 每级标题最多保留数
	MaxTextPreview      = 5000 // 正文预览最大字符数
)

// LinkInfo 页面中的一个链接
type LinkInfo struct {
	Text string `json:"text"` // 链接文本
	Href string `json:"href"` // 绝对URL
}

// ImageInfo 页面中的一张图片
type ImageInfo struct {
	Src string `json:"src"` // 图片绝对URL
	Alt string `json:"alt"` // 替代文本
}

// PageElements 单个页面解析出的全部元素
type PageElements struct {
	URL             string              `json:"url"`              // 页面URL
	Title           string              `json:"title"`            // 页面标题
	MetaDescription string              `json:"meta_description"` // meta描述
	Headings        map[string][]string `json:"headings"`         // h1-h6标题, 键为标签名
	Links           []LinkInfo          `json:"links"`            // 页面链接(去重后)
	Images          []ImageInfo         `json:"images"`           // 页面图片
	TextPreview     string              `json:"text_preview"`     // 正文预览
	ParseMethod     string              `json:"parse_method"`     // 解析方式: dynamic/static
	ParsedAt        time.Time           `json:"parsed_at"`        // 解析时间
}

// NewPageElements 创建空的页面元素集合
func NewPageElements(url string) *PageElements {
	return &PageElements{
		URL:      url,
		Headings: make(map[string][]string),
		Links:    make([]LinkInfo, 0),
		Images:   make([]ImageInfo, 0),
		ParsedAt: time.Now(),
	}
}
