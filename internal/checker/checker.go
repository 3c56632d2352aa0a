package checker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/utils"
)

const (
	// StatusTimeout 请求超时的状态描述
	StatusTimeout = "请求超时"

	// StatusRequestFailed 请求失败(连接/DNS等)的状态描述
	StatusRequestFailed = "请求失败"

	// StatusSoft404 返回2xx但内容疑似404页面
	StatusSoft404 = "疑似404页面"

	// sniffLimit GET响应内容嗅探上限(字节)
	sniffLimit = 4096
)

// DownloadableExtensions 跳过检测的可下载资源扩展名
// 这类资源体积大且基本不会以404页面形式失效
var DownloadableExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".zip", ".rar",
	".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".mp4", ".mp3", ".avi", ".mov", ".exe", ".dmg",
}

// soft404Markers 2xx响应中疑似404页面的内容特征
var soft404Markers = []string{
	"404 not found",
	"page not found",
	"页面不存在",
	"页面未找到",
	"您访问的页面不存在",
}

// IsDownloadableResource 判断链接是否指向可下载资源
// 按URL路径扩展名判断,忽略查询参数
func IsDownloadableResource(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := strings.ToLower(parsed.Path)
	for _, ext := range DownloadableExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// CheckedLink 链接及其检测结果
type CheckedLink struct {
	Link   models.LinkInfo        `json:"link"`   // 链接信息
	Result models.LinkCheckResult `json:"result"` // 检测结果
}

// LinkChecker 链接可用性检测器
// 先发HEAD请求,失败或被拒绝时回退GET
type LinkChecker struct {
	client     *http.Client
	timeout    time.Duration
	maxWorkers int

	// HTTP头部提供者
	headerProvider models.HeaderProvider

	// 同一链接的并发检测合并为一次请求
	sf singleflight.Group

	// 本轮扫描内的检测结果缓存 (多个网站共享同一链接时只探测一次)
	cacheMu sync.RWMutex
	cache   map[string]models.LinkCheckResult

	// 当前活跃worker数
	activeWorkers int32
}

// NewLinkChecker 创建链接检测器
func NewLinkChecker(config models.MonitorConfig, headerProvider models.HeaderProvider) *LinkChecker {
	timeout := time.Duration(config.LinkTestTimeout) * time.Millisecond

	// 禁用TLS证书验证,允许访问自签名、过期或主机名不匹配的HTTPS站点
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
			MaxIdleConnsPerHost: config.MaxWorkers,
		},
		Timeout: timeout,
	}

	maxWorkers := config.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	utils.Debugf("链接检测器: 超时=%v, 并发=%d", timeout, maxWorkers)

	return &LinkChecker{
		client:         client,
		timeout:        timeout,
		maxWorkers:     maxWorkers,
		headerProvider: headerProvider,
		cache:          make(map[string]models.LinkCheckResult),
	}
}

// CheckLink 检测单个链接的可用性
// 检测器生命周期内同一URL只探测一次: 已有结果直接复用,
// 并发的首次调用由singleflight合并为一次请求
func (lc *LinkChecker) CheckLink(ctx context.Context, rawURL string) models.LinkCheckResult {
	lc.cacheMu.RLock()
	cached, ok := lc.cache[rawURL]
	lc.cacheMu.RUnlock()
	if ok {
		return cached
	}

	v, _, _ := lc.sf.Do(rawURL, func() (interface{}, error) {
		result := lc.doCheck(ctx, rawURL)
		lc.cacheMu.Lock()
		lc.cache[rawURL] = result
		lc.cacheMu.Unlock()
		return result, nil
	})
	return v.(models.LinkCheckResult)
}

// doCheck 执行实际检测: HEAD优先,失败回退GET
func (lc *LinkChecker) doCheck(ctx context.Context, rawURL string) models.LinkCheckResult {
	resp, err := lc.request(ctx, http.MethodHead, rawURL)
	if err == nil {
		// 部分服务器不支持HEAD,回退GET
		if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
			resp.Body.Close()
			return lc.checkWithGet(ctx, rawURL)
		}
		resp.Body.Close()
		return resultFromStatus(rawURL, resp.StatusCode)
	}

	if isTimeoutError(err) {
		return models.LinkCheckResult{
			URL:        rawURL,
			Accessible: false,
			Status:     StatusTimeout,
		}
	}

	// HEAD失败(连接被重置等),回退GET再试一次
	return lc.checkWithGet(ctx, rawURL)
}

// checkWithGet 用GET请求检测链接
// 读取响应体前几KB做内容嗅探,识别返回2xx的假404页面
func (lc *LinkChecker) checkWithGet(ctx context.Context, rawURL string) models.LinkCheckResult {
	resp, err := lc.request(ctx, http.MethodGet, rawURL)
	if err != nil {
		if isTimeoutError(err) {
			return models.LinkCheckResult{
				URL:        rawURL,
				Accessible: false,
				Status:     StatusTimeout,
			}
		}
		utils.Debugf("链接请求失败 [%s]: %v", rawURL, err)
		return models.LinkCheckResult{
			URL:        rawURL,
			Accessible: false,
			Status:     StatusRequestFailed,
		}
	}
	defer resp.Body.Close()

	result := resultFromStatus(rawURL, resp.StatusCode)
	if !result.Accessible {
		return result
	}

	// 响应本身是文件下载,不做内容嗅探
	if isDownloadResponse(resp) {
		return result
	}

	// 2xx响应的内容嗅探: 识别返回200的"页面不存在"提示页
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if lc.looksLikeSoft404(resp) {
			utils.Debugf("检测到疑似404页面 [%s]: 状态码%d但内容为404提示", rawURL, resp.StatusCode)
			result.Accessible = false
			result.Status = StatusSoft404
		}
	}

	return result
}

// isDownloadResponse 判断响应是否为文件下载
// Content-Disposition为attachment或Content-Type为PDF等二进制类型时视为下载
func isDownloadResponse(resp *http.Response) bool {
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Disposition")), "attachment") {
		return true
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.Contains(contentType, "application/pdf") ||
		strings.Contains(contentType, "application/octet-stream")
}

// looksLikeSoft404 嗅探响应内容是否为404提示页
func (lc *LinkChecker) looksLikeSoft404(resp *http.Response) bool {
	// 只嗅探HTML响应
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return false
	}

	sample, err := io.ReadAll(io.LimitReader(resp.Body, sniffLimit))
	if err != nil {
		return false
	}

	// 解压响应体(如果有压缩)
	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" {
		decompressed, err := utils.DecompressResponse(encoding, sample)
		if err != nil {
			utils.Debugf("解压响应失败 [%s] (编码=%s): %v", resp.Request.URL, encoding, err)
		} else {
			sample = decompressed
		}
	}

	content := strings.ToLower(string(sample))
	for _, marker := range soft404Markers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// request 构造并发出带自定义头部的请求
func (lc *LinkChecker) request(ctx context.Context, method, rawURL string) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, lc.timeout)
	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	// 应用自定义HTTP头部
	if lc.headerProvider != nil {
		headers, err := lc.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
		} else {
			for name, values := range headers {
				if len(values) > 0 {
					req.Header.Set(name, values[0])
				}
			}
		}
	}

	resp, err := lc.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	// 响应体关闭后再释放context
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelReadCloser 在Body关闭时取消请求context
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// resultFromStatus 根据HTTP状态码生成检测结果
// 200-399视为可访问
func resultFromStatus(rawURL string, statusCode int) models.LinkCheckResult {
	accessible := statusCode >= 200 && statusCode < 400
	status := "正常"
	if !accessible {
		status = fmt.Sprintf("HTTP %d", statusCode)
	}
	return models.LinkCheckResult{
		URL:        rawURL,
		Accessible: accessible,
		Status:     status,
		StatusCode: statusCode,
	}
}

// isTimeoutError 判断错误是否为超时
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// CheckLinks 并发检测一组链接
// worker池从队列消费,结果顺序不保证与输入一致
// 第二个返回值是因属于可下载资源而被跳过的链接数
func (lc *LinkChecker) CheckLinks(ctx context.Context, links []models.LinkInfo, showProgress bool) ([]CheckedLink, int) {
	queue := NewLinkQueue()

	// 入队(去重+过滤可下载资源)
	for _, link := range links {
		if err := queue.Push(link); err != nil {
			utils.Debugf("跳过链接 [%s]: %v", link.Href, err)
		}
	}

	skipped := queue.SkippedCount()
	total := queue.PendingCount()
	if total == 0 {
		queue.Close()
		return nil, skipped
	}

	utils.Infof("🔗 开始检测 %d 个链接 (并发=%d)", total, lc.maxWorkers)

	var bar interface{ Add(int) error }
	if showProgress {
		bar = utils.NewProgressBar(total, "检测链接")
	}

	results := make([]CheckedLink, 0, total)
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	workers := lc.maxWorkers
	if workers > total {
		workers = total
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt32(&lc.activeWorkers, 1)
			defer atomic.AddInt32(&lc.activeWorkers, -1)

			for {
				link, ok := queue.Pop(ctx)
				if !ok {
					return
				}

				result := lc.CheckLink(ctx, link.Href)

				resultsMu.Lock()
				results = append(results, CheckedLink{Link: link, Result: result})
				resultsMu.Unlock()

				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

	// 全部入队完成后关闭队列,worker消费完即退出
	queue.Close()
	wg.Wait()

	inaccessible := 0
	for _, r := range results {
		if !r.Result.Accessible {
			inaccessible++
		}
	}
	utils.Infof("✅ 链接检测完成: 共%d个, 不可访问%d个, 跳过下载资源%d个", len(results), inaccessible, skipped)

	return results, skipped
}

// ActiveWorkers 返回当前活跃worker数
func (lc *LinkChecker) ActiveWorkers() int {
	return int(atomic.LoadInt32(&lc.activeWorkers))
}
