package monitor

import (
	"sync"
	"time"

	"github.com/haiyousec/linkwatch/internal/models"
)

// StatusTracker 巡检状态跟踪器
// 并发安全,供Web接口查询当前扫描进度
type StatusTracker struct {
	mu     sync.RWMutex
	status models.MonitorStatus
}

// NewStatusTracker 创建状态跟踪器
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{}
}

// Begin 标记一轮扫描开始
// 如果已有扫描在运行,返回false
func (st *StatusTracker) Begin(total int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.status.IsRunning {
		return false
	}

	now := time.Now()
	st.status = models.MonitorStatus{
		IsRunning: true,
		Progress:  0,
		Total:     total,
		StartedAt: &now,
	}
	return true
}

// SetCurrent 更新当前处理的网站
func (st *StatusTracker) SetCurrent(name string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.status.CurrentWebsite = name
}

// Advance 完成一个网站,进度+1
func (st *StatusTracker) Advance() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.status.Progress++
}

// Finish 标记扫描结束
// err非空时记录错误信息
func (st *StatusTracker) Finish(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.status.IsRunning = false
	st.status.Completed = err == nil
	st.status.CurrentWebsite = ""
	if err != nil {
		st.status.Error = err.Error()
	}
}

// Snapshot 返回当前状态的副本
func (st *StatusTracker) Snapshot() models.MonitorStatus {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.status
}

// IsRunning 返回是否正在扫描
func (st *StatusTracker) IsRunning() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.status.IsRunning
}
