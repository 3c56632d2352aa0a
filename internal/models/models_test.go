package models

import (
	"encoding/json"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMonitorConfig_Validate(t *testing.T) {
	valid := MonitorConfig{
		Mode:            ModeAll,
		PageLoadTimeout: 20000,
		LinkTestTimeout: 5000,
		MaxWorkers:      5,
		MaxTabs:         4,
		Headless:        true,
		SiteDelay:       1,
		ContinueOnError: true,
		OutputDir:       "results",
	}

	tests := []struct {
		name    string
		modify  func(c *MonitorConfig)
		wantErr bool
	}{
		{"默认配置有效", func(c *MonitorConfig) {}, false},
		{"静态模式有效", func(c *MonitorConfig) { c.Mode = ModeStatic }, false},
		{"动态模式有效", func(c *MonitorConfig) { c.Mode = ModeDynamic }, false},
		{"无效模式", func(c *MonitorConfig) { c.Mode = "fast" }, true},
		{"页面超时过小", func(c *MonitorConfig) { c.PageLoadTimeout = 500 }, true},
		{"页面超时过大", func(c *MonitorConfig) { c.PageLoadTimeout = 200000 }, true},
		{"链接超时过小", func(c *MonitorConfig) { c.LinkTestTimeout = 100 }, true},
		{"并发数为0", func(c *MonitorConfig) { c.MaxWorkers = 0 }, true},
		{"并发数过大", func(c *MonitorConfig) { c.MaxWorkers = 101 }, true},
		{"标签页数为0", func(c *MonitorConfig) { c.MaxTabs = 0 }, true},
		{"标签页数过大", func(c *MonitorConfig) { c.MaxTabs = 21 }, true},
		{"网站延迟为负", func(c *MonitorConfig) { c.SiteDelay = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid
			tt.modify(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewScanTask(t *testing.T) {
	config := MonitorConfig{
		Mode:            ModeAll,
		PageLoadTimeout: 20000,
		LinkTestTimeout: 5000,
		MaxWorkers:      5,
		MaxTabs:         4,
	}
	sites := []Site{
		{Name: "示例", URL: "https://example.com"},
	}

	task, err := NewScanTask(sites, config)
	if err != nil {
		t.Fatalf("NewScanTask() 失败: %v", err)
	}
	if task.ID == "" {
		t.Error("任务ID不应为空")
	}
	if task.Status != ScanStatusPending {
		t.Errorf("新任务状态应为pending, 实际: %s", task.Status)
	}
	if len(task.Sites) != 1 {
		t.Errorf("网站数量不匹配: %d", len(task.Sites))
	}

	// 空网站列表应报错
	if _, err := NewScanTask(nil, config); err == nil {
		t.Error("空网站列表应返回错误")
	}

	// 无效URL应报错
	bad := []Site{{Name: "坏站", URL: "ftp://example.com"}}
	if _, err := NewScanTask(bad, config); err == nil {
		t.Error("无效URL应返回错误")
	}
}

func TestScanTask_JSONRoundTrip(t *testing.T) {
	config := MonitorConfig{
		Mode:            ModeStatic,
		PageLoadTimeout: 20000,
		LinkTestTimeout: 5000,
		MaxWorkers:      5,
		MaxTabs:         4,
	}
	task, err := NewScanTask([]Site{{Name: "示例", URL: "https://example.com"}}, config)
	if err != nil {
		t.Fatalf("NewScanTask() 失败: %v", err)
	}
	task.Stats.BrokenLinks = 3

	data, err := task.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() 失败: %v", err)
	}

	var restored ScanTask
	if err := restored.FromJSON(data); err != nil {
		t.Fatalf("FromJSON() 失败: %v", err)
	}
	if restored.ID != task.ID {
		t.Errorf("任务ID不匹配: %s != %s", restored.ID, task.ID)
	}
	if restored.Stats.BrokenLinks != 3 {
		t.Errorf("统计字段丢失: %d", restored.Stats.BrokenLinks)
	}
}

func TestPageElements_JSON(t *testing.T) {
	elements := NewPageElements("https://example.com")
	elements.Title = "示例页面"
	elements.Headings["h1"] = []string{"欢迎"}
	elements.Links = append(elements.Links, LinkInfo{Text: "关于我们", Href: "https://example.com/about"})

	data, err := json.Marshal(elements)
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}

	var restored PageElements
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("反序列化失败: %v", err)
	}
	if restored.Title != "示例页面" {
		t.Errorf("标题不匹配: %s", restored.Title)
	}
	if len(restored.Links) != 1 || restored.Links[0].Href != "https://example.com/about" {
		t.Errorf("链接不匹配: %+v", restored.Links)
	}
}
