package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ScanStatus 扫描状态
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"   // 待执行
	ScanStatusRunning   ScanStatus = "running"   // 执行中
	ScanStatusCompleted ScanStatus = "completed" // 已完成
	ScanStatusFailed    ScanStatus = "failed"    // 失败
	ScanStatusCancelled ScanStatus = "cancelled" // 已取消
)

// ParseMode 页面解析模式
type ParseMode string

const (
	ModeAll     ParseMode = "all"     // 动态优先,失败回退静态
	ModeStatic  ParseMode = "static"  // 仅静态解析
	ModeDynamic ParseMode = "dynamic" // 仅动态解析(无头浏览器)
)

// Site 待监测的网站
type Site struct {
	Name string `json:"name" mapstructure:"name"` // 网站名称
	URL  string `json:"url" mapstructure:"url"`   // 网站首页URL
}

// MonitorConfig 监测配置
type MonitorConfig struct {
	Mode            ParseMode `json:"mode" mapstructure:"mode"`                           // 解析模式 (默认:all)
	PageLoadTimeout int       `json:"page_load_timeout" mapstructure:"page_load_timeout"` // 页面加载超时(毫秒) (默认:20000)
	LinkTestTimeout int       `json:"link_test_timeout" mapstructure:"link_test_timeout"` // 链接测试超时(毫秒) (默认:5000)
	MaxWorkers      int       `json:"max_workers" mapstructure:"max_workers"`             // 链接检测并发数 (默认:5)
	MaxTabs         int       `json:"max_tabs" mapstructure:"max_tabs"`                   // 浏览器标签页上限 (默认:4)
	Headless        bool      `json:"headless" mapstructure:"headless"`                   // 无头模式 (默认:true)
	SiteDelay       int       `json:"site_delay" mapstructure:"site_delay"`               // 网站之间延迟(秒) (默认:1)
	ContinueOnError bool      `json:"continue_on_error" mapstructure:"continue_on_error"` // 单站失败后继续 (默认:true)
	OutputDir       string    `json:"output_dir" mapstructure:"output_dir"`               // 结果输出目录 (默认:results)
}

// Validate 验证配置
func (c *MonitorConfig) Validate() error {
	switch c.Mode {
	case ModeAll, ModeStatic, ModeDynamic:
	default:
		return fmt.Errorf("解析模式必须是 all/static/dynamic 之一")
	}
	if c.PageLoadTimeout < 1000 || c.PageLoadTimeout > 120000 {
		return fmt.Errorf("页面加载超时必须在1000-120000毫秒之间")
	}
	if c.LinkTestTimeout < 500 || c.LinkTestTimeout > 60000 {
		return fmt.Errorf("链接测试超时必须在500-60000毫秒之间")
	}
	if c.MaxWorkers < 1 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间")
	}
	if c.MaxTabs < 1 || c.MaxTabs > 20 {
		return fmt.Errorf("标签页数必须在1-20之间")
	}
	if c.SiteDelay < 0 || c.SiteDelay > 300 {
		return fmt.Errorf("网站间延迟必须在0-300秒之间")
	}
	return nil
}

// ScanTask 一次完整的巡检任务
type ScanTask struct {
	// 基本信息
	ID          string     `json:"id"`                     // 任务唯一ID (UUID)
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at,omitempty"`   // 开始时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间

	// 配置参数
	Sites  []Site        `json:"sites"`  // 网站列表
	Config MonitorConfig `json:"config"` // 监测配置

	// 执行状态
	Status ScanStatus `json:"status"` // 任务状态

	// 统计信息
	Stats ScanStats `json:"stats"` // 任务统计

	// 错误信息
	ErrorMessage string `json:"error_message,omitempty"` // 错误消息
}

// NewScanTask 创建新巡检任务
func NewScanTask(sites []Site, config MonitorConfig) (*ScanTask, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("网站列表不能为空")
	}
	for _, site := range sites {
		if err := ValidateURL(site.URL); err != nil {
			return nil, fmt.Errorf("网站 %s: %w", site.Name, err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ScanTask{
		ID:        generateID(),
		CreatedAt: time.Now(),
		Sites:     sites,
		Config:    config,
		Status:    ScanStatusPending,
		Stats:     ScanStats{},
	}, nil
}

// ToJSON 序列化为JSON
func (t *ScanTask) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// FromJSON 从JSON反序列化
func (t *ScanTask) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}
