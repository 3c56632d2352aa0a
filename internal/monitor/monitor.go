// Package monitor 是巡检任务的编排层:加载配置、解析网站首页、
// 并发检测链接、聚合404结果并写入存储。
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/haiyousec/linkwatch/internal/checker"
	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/parser"
	"github.com/haiyousec/linkwatch/internal/storage"
	"github.com/haiyousec/linkwatch/internal/utils"
)

// Monitor 执行完整的网站404链接巡检
type Monitor struct {
	config  *Config
	headers *HeaderManager
	status  *StatusTracker

	fileStore *storage.FileStore
	history   *storage.HistoryDB
}

// New 创建巡检器,初始化结果目录与历史库
func New(config *Config, headers *HeaderManager) (*Monitor, error) {
	if config == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	fileStore, err := storage.NewFileStore(config.Monitor.OutputDir)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		config:    config,
		headers:   headers,
		status:    NewStatusTracker(),
		fileStore: fileStore,
	}

	if config.History.Enabled {
		history, err := storage.OpenHistory(config.History.DBPath)
		if err != nil {
			// 历史库不可用不阻塞巡检,只是没有历史查询
			utils.Warnf("历史库初始化失败, 本轮结果不会入库: %v", err)
		} else {
			m.history = history
		}
	}

	return m, nil
}

// Close 释放底层资源
func (m *Monitor) Close() {
	if m.history != nil {
		_ = m.history.Close()
	}
}

// Status 返回当前运行状态快照
func (m *Monitor) Status() models.MonitorStatus {
	return m.status.Snapshot()
}

// IsRunning 返回是否有扫描正在进行
func (m *Monitor) IsRunning() bool {
	return m.status.IsRunning()
}

// FileStore 返回结果文件存储
func (m *Monitor) FileStore() *storage.FileStore {
	return m.fileStore
}

// History 返回历史库,未启用时为nil
func (m *Monitor) History() *storage.HistoryDB {
	return m.history
}

// Run 执行一轮完整巡检。同一时刻只允许一轮扫描,
// 已有扫描进行中时直接返回错误。
func (m *Monitor) Run(ctx context.Context) (*models.ScanTask, error) {
	task, err := models.NewScanTask(m.config.Sites, m.config.Monitor)
	if err != nil {
		return nil, err
	}

	if !m.status.Begin(len(task.Sites)) {
		return nil, fmt.Errorf("已有扫描任务正在进行中")
	}

	startedAt := time.Now()
	task.StartedAt = &startedAt
	task.Status = models.ScanStatusRunning

	utils.Infof("🚀 开始巡检任务 %s, 共%d个网站, 模式: %s", task.ID, len(task.Sites), task.Config.Mode)

	// 未配置头部管理器时不注入HeaderProvider,避免接口包装nil指针
	var headerProvider models.HeaderProvider
	if m.headers != nil {
		headerProvider = m.headers
	}

	pageParser, closeParser, err := parser.NewParser(task.Config, headerProvider)
	if err != nil {
		m.finishTask(task, startedAt, fmt.Errorf("初始化页面解析器失败: %w", err))
		return task, err
	}
	defer closeParser()

	linkChecker := checker.NewLinkChecker(task.Config, headerProvider)
	task.Stats.TotalSites = len(task.Sites)

	var (
		results []models.SiteResult
		broken  []models.BrokenLink
	)

	for i, site := range task.Sites {
		select {
		case <-ctx.Done():
			task.Status = models.ScanStatusCancelled
			m.status.Finish(ctx.Err())
			utils.Warnf("巡检任务 %s 被取消", task.ID)
			return task, ctx.Err()
		default:
		}

		result := m.scanSite(ctx, pageParser, linkChecker, site)
		results = append(results, result)
		broken = append(broken, result.Broken...)

		task.Stats.CheckedLinks += result.CheckedLinks
		if result.Elements != nil {
			task.Stats.TotalLinks += len(result.Elements.Links)
		}
		if result.ErrorMessage != "" {
			task.Stats.FailedSites++
			if !task.Config.ContinueOnError {
				err := fmt.Errorf("网站 %s 巡检失败: %s", site.Name, result.ErrorMessage)
				m.finishTask(task, startedAt, err)
				return task, err
			}
		} else {
			task.Stats.CompletedSites++
		}
		m.status.Advance()

		// 网站之间留出间隔,避免对目标造成压力
		if task.Config.SiteDelay > 0 && i < len(task.Sites)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(task.Config.SiteDelay) * time.Second):
			}
		}
	}

	task.Stats.BrokenLinks = len(broken)
	task.Stats.Duration = time.Since(startedAt).Seconds()

	if _, err := m.fileStore.SaveBrokenLinks(broken, startedAt); err != nil {
		utils.Errorf("保存404链接文件失败: %v", err)
	}
	if _, err := m.fileStore.SaveSummary(results, task.Stats, startedAt); err != nil {
		utils.Errorf("保存巡检摘要失败: %v", err)
	}
	if m.history != nil {
		if _, err := m.history.RecordScan(ctx, startedAt, task.Stats, broken); err != nil {
			utils.Errorf("写入扫描历史失败: %v", err)
		}
	}

	m.finishTask(task, startedAt, nil)
	utils.Infof("✅ 巡检任务 %s 完成: %d个网站, %d条链接, 发现%d条404链接, 耗时%.2f秒",
		task.ID, task.Stats.TotalSites, task.Stats.CheckedLinks, task.Stats.BrokenLinks, task.Stats.Duration)
	return task, nil
}

// scanSite 巡检单个网站:解析首页、检测链接、汇总不可访问与404条目
func (m *Monitor) scanSite(ctx context.Context, p parser.PageParser, lc *checker.LinkChecker, site models.Site) models.SiteResult {
	m.status.SetCurrent(site.Name)
	utils.Infof("🌐 开始巡检网站: %s (%s)", site.Name, site.URL)

	start := time.Now()
	result := models.SiteResult{
		Site:         site,
		Inaccessible: []models.InaccessibleLink{},
		Broken:       []models.BrokenLink{},
	}

	elements, err := p.ParsePage(ctx, site.URL)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.Duration = time.Since(start).Seconds()
		utils.Errorf("网站 %s 解析失败: %v", site.Name, err)
		return result
	}
	result.Elements = elements

	checked, skipped := lc.CheckLinks(ctx, elements.Links, true)
	result.CheckedLinks = len(checked)
	result.Skipped = skipped

	for _, c := range checked {
		if c.Result.Accessible {
			result.Accessible++
			continue
		}
		result.Inaccessible = append(result.Inaccessible, models.InaccessibleLink{
			URL:    c.Link.Href,
			Text:   c.Link.Text,
			Status: c.Result.Status,
		})
		// 最终报告只收录确认的404
		if c.Result.StatusCode == 404 {
			result.Broken = append(result.Broken, models.BrokenLink{
				URL:    c.Link.Href,
				Source: site.Name,
				Text:   c.Link.Text,
			})
		}
	}

	result.Duration = time.Since(start).Seconds()
	utils.Infof("📊 网站 %s 巡检完成: 链接%d条, 可访问%d条, 跳过%d条, 不可访问%d条, 404共%d条",
		site.Name, result.CheckedLinks, result.Accessible, result.Skipped, len(result.Inaccessible), len(result.Broken))
	return result
}

// finishTask 收尾:补齐任务状态与统计并更新运行状态
func (m *Monitor) finishTask(task *models.ScanTask, startedAt time.Time, err error) {
	completedAt := time.Now()
	task.CompletedAt = &completedAt
	if task.Stats.Duration == 0 {
		task.Stats.Duration = completedAt.Sub(startedAt).Seconds()
	}
	if err != nil {
		if task.Status != models.ScanStatusCancelled {
			task.Status = models.ScanStatusFailed
		}
		task.ErrorMessage = err.Error()
	} else {
		task.Status = models.ScanStatusCompleted
	}
	m.status.Finish(err)
}
