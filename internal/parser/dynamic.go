package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"golang.org/x/net/html"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/utils"
)

// 错误类型定义
var (
	ErrBrowserCrashed    = errors.New("浏览器崩溃")
	ErrMaxRetriesReached = errors.New("已达最大重试次数")
)

// settleDelay 页面load事件后等待异步渲染内容的时间
const settleDelay = 1 * time.Second

// DynamicParser 动态页面解析器(使用Rod无头浏览器)
// 渲染JavaScript后提取页面元素,适用于动态站点
type DynamicParser struct {
	browser *rod.Browser
	config  models.MonitorConfig

	// HTTP头部提供者
	headerProvider models.HeaderProvider

	// 自适应标签页池
	pagePool        *PagePool
	resourceMonitor *ResourceMonitor

	// 浏览器会话管理
	browserPath       string
	browserKind       BrowserKind
	browserRetryCount int // 当前浏览器重启次数
	maxBrowserRetries int // 最大浏览器重启次数(默认3)

	mu      sync.Mutex
	started bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDynamicParser 创建动态解析器
func NewDynamicParser(config models.MonitorConfig, headerProvider models.HeaderProvider) *DynamicParser {
	ctx, cancel := context.WithCancel(context.Background())

	return &DynamicParser{
		config:            config,
		headerProvider:    headerProvider,
		browserRetryCount: 0,
		maxBrowserRetries: 3,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start 启动浏览器和标签页池
func (dp *DynamicParser) Start() error {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	if dp.started {
		return nil
	}

	// 按优先级查找浏览器
	dp.browserPath, dp.browserKind = FindBrowser()

	// 初始化资源监控器
	maxTabs := dp.config.MaxTabs
	if maxTabs < 1 {
		maxTabs = 4
	}
	dp.resourceMonitor = NewResourceMonitor(ResourceMonitorConfig{
		SafetyReserveMemory: 1024 * 1024 * 1024, // 1GB
		SafetyThreshold:     500 * 1024 * 1024,  // 500MB
		CPULoadThreshold:    80,                 // 80%
		MaxTabsLimit:        maxTabs,
		TabMemoryUsage:      100 * 1024 * 1024, // 100MB per tab
	})
	dp.resourceMonitor.StartMonitoring(1 * time.Second)

	if err := dp.launchBrowser(); err != nil {
		dp.resourceMonitor.StopMonitoring()
		return err
	}

	dp.pagePool = NewPagePool(dp.browser, dp.resourceMonitor)
	dp.started = true

	utils.Warnf("浏览器已配置为跳过HTTPS证书验证,适用于内网/自签名证书站点")
	return nil
}

// Stop 关闭浏览器,释放资源
func (dp *DynamicParser) Stop() {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	if !dp.started {
		return
	}

	if dp.pagePool != nil {
		_ = dp.pagePool.Close()
	}
	dp.closeBrowser()
	if dp.resourceMonitor != nil {
		dp.resourceMonitor.StopMonitoring()
	}
	dp.started = false
}

// launchBrowser 启动浏览器
func (dp *DynamicParser) launchBrowser() error {
	l := launcher.New()

	if dp.browserPath != "" {
		l = l.Bin(dp.browserPath)
	}

	l = l.Headless(dp.config.Headless)

	// 添加证书忽略参数,允许访问自签名、过期或主机名不匹配的HTTPS站点
	l = l.Set("ignore-certificate-errors")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}

	dp.browser = rod.New().ControlURL(controlURL)
	if err := dp.browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s (类型=%s)", controlURL, dp.browserKind)
	return nil
}

// closeBrowser 关闭浏览器
func (dp *DynamicParser) closeBrowser() {
	if dp.browser != nil {
		dp.browser.MustClose()
		dp.browser = nil
		utils.Debugf("浏览器已关闭")
	}
}

// restartBrowser 崩溃后重启浏览器并重建标签页池
func (dp *DynamicParser) restartBrowser() error {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	dp.browserRetryCount++
	if dp.browserRetryCount > dp.maxBrowserRetries {
		return fmt.Errorf("浏览器崩溃: %w", ErrMaxRetriesReached)
	}

	utils.Warnf("浏览器崩溃,准备重启(重试%d/%d)", dp.browserRetryCount, dp.maxBrowserRetries)

	if dp.pagePool != nil {
		_ = dp.pagePool.Close()
	}
	dp.closeBrowser()

	time.Sleep(2 * time.Second) // 等待2秒后重启

	if err := dp.launchBrowser(); err != nil {
		return err
	}
	dp.pagePool = NewPagePool(dp.browser, dp.resourceMonitor)
	return nil
}

// ParsePage 解析单个页面,提取全部元素
// 浏览器崩溃时自动重启,最多重试3次
func (dp *DynamicParser) ParsePage(ctx context.Context, pageURL string) (*models.PageElements, error) {
	if !dp.started {
		return nil, fmt.Errorf("解析器未启动")
	}

	for {
		elements, err := dp.parseOnce(ctx, pageURL)
		if errors.Is(err, ErrBrowserCrashed) {
			if restartErr := dp.restartBrowser(); restartErr != nil {
				return nil, restartErr
			}
			continue
		}

		if err == nil {
			// 站点之间释放多余标签页,长时间巡检保持低内存占用
			dp.pagePool.AdjustSize(0)
			mem := dp.resourceMonitor.GetMemoryStatus()
			utils.Debugf("标签页池: %d/%d, 内存压力: %s",
				dp.pagePool.CurrentSize(), dp.pagePool.MaxSize(), mem.MemoryPressure)
		}
		return elements, err
	}
}

// parseOnce 在当前浏览器实例中解析一次
// panic(浏览器断连等)被转换为ErrBrowserCrashed
func (dp *DynamicParser) parseOnce(ctx context.Context, pageURL string) (elements *models.PageElements, err error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic: URL=%s, 错误=%v", pageURL, r)
			err = ErrBrowserCrashed
		}
	}()

	page, err := dp.pagePool.AcquirePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取标签页失败: %w", err)
	}
	defer dp.pagePool.ReleasePage(page)

	// 应用自定义HTTP头部
	if dp.headerProvider != nil {
		if headers, herr := dp.headerProvider.GetHeaders(); herr != nil {
			utils.Warnf("获取HTTP头部失败: %v", herr)
		} else {
			pairs := make([]string, 0, len(headers)*2)
			for name, values := range headers {
				if len(values) > 0 {
					pairs = append(pairs, name, values[0])
				}
			}
			if len(pairs) > 0 {
				if _, herr := page.SetExtraHeaders(pairs); herr != nil {
					utils.Warnf("设置请求头部失败: %v", herr)
				}
			}
		}
	}

	loadTimeout := time.Duration(dp.config.PageLoadTimeout) * time.Millisecond
	timed := page.Timeout(loadTimeout)

	// 导航并等待加载完成
	if navErr := timed.Navigate(pageURL); navErr != nil {
		return nil, fmt.Errorf("导航失败: %w", navErr)
	}
	if loadErr := timed.WaitLoad(); loadErr != nil {
		utils.Warnf("等待页面加载超时 [%s]: %v, 使用已渲染内容", pageURL, loadErr)
	}

	// 给异步渲染的内容留一点时间
	time.Sleep(settleDelay)

	utils.Debugf("页面加载完成: %s", pageURL)

	elements = models.NewPageElements(pageURL)
	elements.ParseMethod = "dynamic"

	// 一次Evaluate提取标题/meta/headings/链接/图片原始数据
	result, evalErr := page.Evaluate(&rod.EvalOptions{
		JS: `() => {
			var out = {
				title: document.title || '',
				meta_description: '',
				headings: {},
				links: [],
				images: []
			};

			var meta = document.querySelector('meta[name="description"]');
			if (meta) {
				out.meta_description = meta.getAttribute('content') || '';
			}

			for (var level = 1; level <= 6; level++) {
				var tag = 'h' + level;
				var nodes = document.querySelectorAll(tag);
				var texts = [];
				for (var i = 0; i < nodes.length && texts.length < 10; i++) {
					var t = (nodes[i].innerText || '').trim();
					if (t) {
						texts.push(t);
					}
				}
				out.headings[tag] = texts;
			}

			var anchors = document.querySelectorAll('a[href]');
			for (var j = 0; j < anchors.length && j < 300; j++) {
				out.links.push({
					text: (anchors[j].innerText || '').trim(),
					href: anchors[j].getAttribute('href') || ''
				});
			}

			var imgs = document.querySelectorAll('img[src]');
			for (var k = 0; k < imgs.length && k < 150; k++) {
				out.images.push({
					src: imgs[k].getAttribute('src') || '',
					alt: imgs[k].getAttribute('alt') || ''
				});
			}

			return out;
		}`,
	})
	if evalErr != nil {
		return nil, fmt.Errorf("执行JavaScript提取元素失败: %w", evalErr)
	}

	value := result.Value
	elements.Title = value.Get("title").Str()
	elements.MetaDescription = truncateText(value.Get("meta_description").Str(), maxAttrTextLength)

	// h1-h6标题
	for level := 1; level <= 6; level++ {
		tag := fmt.Sprintf("h%d", level)
		texts := make([]string, 0)
		for _, item := range value.Get("headings").Get(tag).Arr() {
			if len(texts) >= models.MaxHeadingsPerLevel {
				break
			}
			if text := strings.TrimSpace(item.Str()); text != "" {
				texts = append(texts, text)
			}
		}
		elements.Headings[tag] = texts
	}

	// 链接和图片: 原始提取后统一规范化
	rawLinks := make([]models.LinkInfo, 0)
	for _, item := range value.Get("links").Arr() {
		rawLinks = append(rawLinks, models.LinkInfo{
			Text: item.Get("text").Str(),
			Href: item.Get("href").Str(),
		})
	}
	elements.Links = NormalizeLinks(pageURL, rawLinks)

	rawImages := make([]models.ImageInfo, 0)
	for _, item := range value.Get("images").Arr() {
		rawImages = append(rawImages, models.ImageInfo{
			Src: item.Get("src").Str(),
			Alt: item.Get("alt").Str(),
		})
	}
	elements.Images = NormalizeImages(pageURL, rawImages)

	// 正文预览: 取渲染后HTML,跳过script/style提取可见文本
	if pageHTML, htmlErr := page.HTML(); htmlErr != nil {
		utils.Warnf("获取页面HTML失败 [%s]: %v", pageURL, htmlErr)
	} else if doc, parseErr := html.Parse(strings.NewReader(pageHTML)); parseErr == nil {
		elements.TextPreview = ExtractVisibleText(doc)
	}

	utils.Infof("📄 动态解析完成: %s (链接%d个, 图片%d个)", pageURL, len(elements.Links), len(elements.Images))

	return elements, nil
}
