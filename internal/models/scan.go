package models

import "time"

// LinkCheckResult 单个链接的检测结果
type LinkCheckResult struct {
	URL        string `json:"url"`         // 被检测的链接
	Accessible bool   `json:"accessible"`  // 是否可访问 (2xx/3xx)
	Status     string `json:"status"`      // 状态描述, 如 "HTTP 404" / "请求超时"
	StatusCode int    `json:"status_code"` // HTTP状态码, 0表示请求失败
}

// InaccessibleLink 不可访问的链接及其来源
type InaccessibleLink struct {
	URL    string `json:"url"`    // 链接地址
	Text   string `json:"text"`   // 链接文本
	Status string `json:"status"` // 状态描述
}

// BrokenLink 确认为404的链接 (最终报告条目)
type BrokenLink struct {
	URL    string `json:"url"`    // 404链接地址
	Source string `json:"source"` // 来源网站名称
	Text   string `json:"text"`   // 链接文本
}

// SiteResult 单个网站的巡检结果
type SiteResult struct {
	Site         Site               `json:"site"`                    // 网站信息
	Elements     *PageElements      `json:"elements,omitempty"`      // 首页解析结果
	CheckedLinks int                `json:"checked_links"`           // 已检测链接数
	Accessible   int                `json:"accessible"`              // 其中可访问数
	Skipped      int                `json:"skipped"`                 // 跳过的下载资源数
	Inaccessible []InaccessibleLink `json:"inaccessible"`            // 全部不可访问链接
	Broken       []BrokenLink       `json:"broken"`                  // 其中的404链接
	Duration     float64            `json:"duration"`                // 耗时(秒)
	ErrorMessage string             `json:"error_message,omitempty"` // 网站级错误
}

// ScanStats 巡检任务统计
type ScanStats struct {
	TotalSites     int     `json:"total_sites"`     // 网站总数
	CompletedSites int     `json:"completed_sites"` // 成功完成数
	FailedSites    int     `json:"failed_sites"`    // 失败数
	TotalLinks     int     `json:"total_links"`     // 提取的链接总数
	CheckedLinks   int     `json:"checked_links"`   // 已检测链接数
	BrokenLinks    int     `json:"broken_links"`    // 404链接总数
	Duration       float64 `json:"duration"`        // 总耗时(秒)
}

// MonitorStatus 监测任务运行状态 (供Web接口查询)
type MonitorStatus struct {
	IsRunning      bool       `json:"is_running"`           // 是否正在扫描
	Progress       int        `json:"progress"`             // 已处理网站数
	Total          int        `json:"total"`                // 网站总数
	CurrentWebsite string     `json:"current_website"`      // 当前网站名称
	Completed      bool       `json:"completed"`            // 本轮是否已完成
	Error          string     `json:"error,omitempty"`      // 错误信息
	StartedAt      *time.Time `json:"started_at,omitempty"` // 本轮开始时间
}
