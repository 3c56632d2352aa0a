package checker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/haiyousec/linkwatch/internal/models"
)

// LinkQueue 链接检测队列
// 职责: 管理待检测和已入队的链接,支持并发安全的Push/Pop操作
type LinkQueue struct {
	// 待检测链接队列
	pendingLinks chan models.LinkInfo

	// 已入队链接标记集合 (按URL去重)
	enqueuedURLs map[string]bool

	// 跳过的可下载资源数
	skippedCount int

	// 保护enqueuedURLs和skippedCount的读写锁
	mu sync.RWMutex

	// 队列是否已关闭
	closed bool
}

// NewLinkQueue 创建链接队列实例
func NewLinkQueue() *LinkQueue {
	return &LinkQueue{
		pendingLinks: make(chan models.LinkInfo, 1000), // buffered channel,容量1000
		enqueuedURLs: make(map[string]bool),
		closed:       false,
	}
}

// Push 添加链接到待检测队列
// 检查URL有效性、可下载资源过滤、重复检查
func (q *LinkQueue) Push(link models.LinkInfo) error {
	// 检查队列是否已关闭
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("队列已关闭")
	}
	q.mu.RUnlock()

	// 检查URL有效性
	parsedURL, err := url.Parse(link.Href)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}

	// 检查协议
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("不支持的协议: %s", parsedURL.Scheme)
	}

	// 跳过可下载资源 (PDF/图片/压缩包等不做可用性检测), 但计入统计
	if IsDownloadableResource(link.Href) {
		q.mu.Lock()
		q.skippedCount++
		q.mu.Unlock()
		return fmt.Errorf("可下载资源已跳过: %s", link.Href)
	}

	// 检查是否已入队
	q.mu.Lock()
	if q.enqueuedURLs[link.Href] {
		q.mu.Unlock()
		return fmt.Errorf("链接已入队: %s", link.Href)
	}
	q.enqueuedURLs[link.Href] = true
	q.mu.Unlock()

	// 添加到队列
	q.pendingLinks <- link

	return nil
}

// Pop 从队列中取出下一个待检测链接
// 从channel读取,支持context取消,阻塞等待
func (q *LinkQueue) Pop(ctx context.Context) (models.LinkInfo, bool) {
	select {
	case <-ctx.Done():
		// Context取消
		return models.LinkInfo{}, false
	case item, ok := <-q.pendingLinks:
		if !ok {
			// Channel已关闭
			return models.LinkInfo{}, false
		}
		return item, true
	}
}

// EnqueuedCount 返回已入队链接总数
func (q *LinkQueue) EnqueuedCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.enqueuedURLs)
}

// SkippedCount 返回因属于可下载资源而被跳过的链接数
func (q *LinkQueue) SkippedCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.skippedCount
}

// PendingCount 返回当前待检测链接数量
// 返回len(channel),O(1)时间复杂度
func (q *LinkQueue) PendingCount() int {
	return len(q.pendingLinks)
}

// Reset 清空队列,重置所有状态
// 为下一个网站准备全新状态
func (q *LinkQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	// 清空pending队列 (drain channel)
	for len(q.pendingLinks) > 0 {
		<-q.pendingLinks
	}

	// 清空enqueued集合与跳过计数
	q.enqueuedURLs = make(map[string]bool)
	q.skippedCount = 0
}

// Close 关闭队列,释放资源
// 关闭channel,后续Push调用应该返回错误
func (q *LinkQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.pendingLinks)
		q.closed = true
	}
}
