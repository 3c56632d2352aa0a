package parser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// 页面视口尺寸
const (
	viewportWidth  = 1920
	viewportHeight = 1080
)

// PageHealthStatus 标签页健康状态
// 跟踪每个标签页的清理情况,用于重试和销毁决策
type PageHealthStatus struct {
	CleanFailureCount int       // 清理失败次数
	LastSuccessTime   time.Time // 最后一次成功使用时间
	IsDirty           bool      // 是否标记为"脏"状态(清理失败2次)
}

// PagePool 标签页池管理器
// 职责: 管理浏览器标签页的生命周期,跨网站复用标签页,协调并发访问
type PagePool struct {
	// 浏览器实例
	browser *rod.Browser

	// 所有活跃的标签页
	pages []*rod.Page

	// 可用标签页channel
	availablePages chan *rod.Page

	// 资源监控器
	resourceMonitor *ResourceMonitor

	// 保护pages切片的锁
	mu sync.Mutex

	// 是否已关闭
	closed bool

	// 标签页健康状态跟踪
	pageHealth map[*rod.Page]*PageHealthStatus
	healthMu   sync.RWMutex // 保护pageHealth的锁
}

// NewPagePool 创建标签页池实例
func NewPagePool(browser *rod.Browser, resourceMonitor *ResourceMonitor) *PagePool {
	return &PagePool{
		browser:         browser,
		pages:           make([]*rod.Page, 0),
		availablePages:  make(chan *rod.Page, 32), // buffered channel, 最多缓存32个
		resourceMonitor: resourceMonitor,
		closed:          false,
		pageHealth:      make(map[*rod.Page]*PageHealthStatus),
	}
}

// AcquirePage 获取一个可用的标签页
func (pp *PagePool) AcquirePage(ctx context.Context) (*rod.Page, error) {
	// 检查是否已关闭
	pp.mu.Lock()
	if pp.closed {
		pp.mu.Unlock()
		return nil, fmt.Errorf("标签页池已关闭")
	}
	pp.mu.Unlock()

	// 尝试从可用池获取
	select {
	case page := <-pp.availablePages:
		return page, nil
	default:
		// 没有可用标签页,尝试创建新的
	}

	// 检查是否可以创建新标签页
	pp.mu.Lock()
	currentSize := len(pp.pages)
	pp.mu.Unlock()
	maxSize := pp.resourceMonitor.CalculateMaxTabs()

	if currentSize >= maxSize {
		// 已达上限,阻塞等待可用标签页
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case page := <-pp.availablePages:
			return page, nil
		}
	}

	// 检查资源可用性
	canCreate, reason := pp.resourceMonitor.CheckResourceAvailability()
	if !canCreate {
		log.Warn().Msgf("资源不足,无法创建新标签页: %s", reason)
		// 等待可用标签页
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case page := <-pp.availablePages:
			return page, nil
		}
	}

	return pp.createPage()
}

// createPage 创建新标签页并注册健康状态
func (pp *PagePool) createPage() (*rod.Page, error) {
	page, err := pp.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		// 浏览器可能已崩溃或连接断开
		log.Error().Err(err).Msg("创建标签页失败,浏览器可能已崩溃")
		return nil, fmt.Errorf("创建标签页失败(浏览器可能已崩溃): %w", err)
	}

	// 统一视口,保证各网站渲染行为一致
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		log.Warn().Err(err).Msg("设置视口失败")
	}

	pp.mu.Lock()
	pp.pages = append(pp.pages, page)
	currentSize := len(pp.pages)
	pp.mu.Unlock()

	pp.healthMu.Lock()
	pp.pageHealth[page] = &PageHealthStatus{
		CleanFailureCount: 0,
		LastSuccessTime:   time.Now(),
		IsDirty:           false,
	}
	pp.healthMu.Unlock()

	log.Debug().Msgf("创建新标签页,当前标签页数: %d", currentSize)

	return page, nil
}

// ReleasePage 归还标签页到池中
// 清理失败时执行重试策略: 重试一次 → 标记为脏 → 销毁
func (pp *PagePool) ReleasePage(page *rod.Page) {
	if page == nil {
		return
	}

	pp.healthMu.RLock()
	health, exists := pp.pageHealth[page]
	pp.healthMu.RUnlock()

	if !exists {
		// 页面不存在健康记录(可能是旧页面),直接销毁
		log.Warn().Msg("标签页没有健康记录,直接销毁")
		pp.destroyPage(page)
		return
	}

	// 清理标签页状态
	err := pp.cleanPage(page)
	if err != nil {
		pp.healthMu.Lock()
		health.CleanFailureCount++
		failureCount := health.CleanFailureCount
		pp.healthMu.Unlock()

		log.Warn().Err(err).Msgf("清理标签页状态失败 (第%d次失败)", failureCount)

		if failureCount == 1 {
			// 第一次失败: 重试一次
			err = pp.cleanPage(page)
			if err == nil {
				pp.healthMu.Lock()
				health.CleanFailureCount = 0
				health.LastSuccessTime = time.Now()
				health.IsDirty = false
				pp.healthMu.Unlock()
			} else {
				pp.healthMu.Lock()
				health.CleanFailureCount++
				pp.healthMu.Unlock()
				log.Warn().Err(err).Msg("重试清理失败")
			}
		} else if failureCount == 2 {
			// 第二次失败: 标记为"脏"状态,但仍然保留
			pp.healthMu.Lock()
			health.IsDirty = true
			pp.healthMu.Unlock()
			log.Warn().Msg("标签页标记为'脏'状态(清理失败2次),下次失败将销毁")
		} else {
			// 第三次失败: 销毁该标签页
			log.Warn().Msg("清理失败超过3次,销毁该标签页")
			pp.destroyPage(page)
			return
		}
	} else {
		// 清理成功,重置健康状态
		pp.healthMu.Lock()
		health.CleanFailureCount = 0
		health.LastSuccessTime = time.Now()
		health.IsDirty = false
		pp.healthMu.Unlock()
	}

	// 归还到可用池
	select {
	case pp.availablePages <- page:
		// 成功归还
	default:
		// channel已满,销毁该标签页
		pp.destroyPage(page)
	}
}

// cleanPage 清理标签页状态
// 跨网站复用标签页前必须清空存储和cookie,避免状态污染
func (pp *PagePool) cleanPage(page *rod.Page) error {
	_, err := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			// 清理localStorage
			if (typeof localStorage !== 'undefined' && localStorage !== null) {
				try {
					localStorage.clear();
				} catch (e) {
					// ignore
				}
			}

			// 清理sessionStorage
			if (typeof sessionStorage !== 'undefined' && sessionStorage !== null) {
				try {
					sessionStorage.clear();
				} catch (e) {
					// ignore
				}
			}

			// 清理cookies
			if (typeof document !== 'undefined' && document !== null && document.cookie) {
				try {
					var cookies = document.cookie.split(";");
					for (var i = 0; i < cookies.length; i++) {
						var c = cookies[i];
						var eqPos = c.indexOf("=");
						var name = eqPos > -1 ? c.substr(0, eqPos) : c;
						document.cookie = name.replace(/^ +/, "") + "=;expires=Thu, 01 Jan 1970 00:00:00 UTC;path=/";
					}
				} catch (e) {
					// ignore
				}
			}

			return true;
		}`,
	})
	if err != nil {
		return fmt.Errorf("清理标签页状态失败: %w", err)
	}

	return nil
}

// destroyPage 销毁标签页
func (pp *PagePool) destroyPage(page *rod.Page) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	// 从pages列表中移除
	for i, p := range pp.pages {
		if p == page {
			pp.pages = append(pp.pages[:i], pp.pages[i+1:]...)
			break
		}
	}

	pp.healthMu.Lock()
	delete(pp.pageHealth, page)
	pp.healthMu.Unlock()

	if err := page.Close(); err != nil {
		log.Warn().Err(err).Msg("关闭标签页失败")
	}

	log.Debug().Msgf("销毁标签页,当前标签页数: %d", len(pp.pages))
}

// AdjustSize 根据待解析网站数量和资源限制调整标签页池大小
func (pp *PagePool) AdjustSize(pendingCount int) {
	pp.mu.Lock()
	currentSize := len(pp.pages)
	pp.mu.Unlock()

	maxSize := pp.resourceMonitor.CalculateMaxTabs()

	// 如果待解析数量大于当前标签页数,且未达上限,创建新标签页
	if pendingCount > currentSize && currentSize < maxSize {
		targetSize := pendingCount
		if targetSize > maxSize {
			targetSize = maxSize
		}

		toCreate := targetSize - currentSize
		for i := 0; i < toCreate; i++ {
			canCreate, reason := pp.resourceMonitor.CheckResourceAvailability()
			if !canCreate {
				log.Warn().Msgf("资源不足,无法创建更多标签页: %s", reason)
				break
			}

			page, err := pp.createPage()
			if err != nil {
				break
			}

			// 添加到可用池
			pp.availablePages <- page
		}
	}

	// 如果待解析数量为0且当前标签页数>1,缩减到1个
	if pendingCount == 0 && currentSize > 1 {
		pp.mu.Lock()
		toDestroy := pp.pages[1:] // 保留第一个
		pp.pages = pp.pages[:1]
		pp.mu.Unlock()

		for _, page := range toDestroy {
			pp.healthMu.Lock()
			delete(pp.pageHealth, page)
			pp.healthMu.Unlock()

			if err := page.Close(); err != nil {
				log.Warn().Err(err).Msg("关闭标签页失败")
			}
		}

		log.Info().Msgf("解析完成,缩减标签页至1个")
	}
}

// CurrentSize 返回当前标签页池的大小
func (pp *PagePool) CurrentSize() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.pages)
}

// MaxSize 返回当前允许的最大标签页数
func (pp *PagePool) MaxSize() int {
	return pp.resourceMonitor.CalculateMaxTabs()
}

// Close 关闭标签页池,释放所有资源
func (pp *PagePool) Close() error {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if pp.closed {
		return nil
	}

	for _, page := range pp.pages {
		if err := page.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭标签页失败")
		}
	}

	pp.pages = nil
	close(pp.availablePages)
	pp.closed = true

	log.Debug().Msg("标签页池已关闭")
	return nil
}
