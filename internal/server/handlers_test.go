package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/monitor"
)

func newTestServer(t *testing.T) (*Server, *monitor.Monitor) {
	t.Helper()

	tempDir := t.TempDir()
	config, err := monitor.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() 失败: %v", err)
	}
	config.Monitor.OutputDir = tempDir
	config.History.DBPath = filepath.Join(tempDir, "history.db")
	config.Server.OpenBrowser = false

	m, err := monitor.New(config, nil)
	if err != nil {
		t.Fatalf("monitor.New() 失败: %v", err)
	}
	t.Cleanup(m.Close)

	s, err := New(m, config.Server)
	if err != nil {
		t.Fatalf("server.New() 失败: %v", err)
	}
	return s, m
}

func TestHandleIndex(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "网站404链接监测") {
		t.Error("页面缺少标题")
	}

	// 未知路径返回404
	req = httptest.NewRequest(http.MethodGet, "/unknown", nil)
	rec = httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("未知路径状态码 = %d, 期望 404", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", rec.Code)
	}

	var resp struct {
		Success bool                 `json:"success"`
		Data    models.MonitorStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !resp.Success {
		t.Error("状态接口应返回success=true")
	}
	if resp.Data.IsRunning {
		t.Error("初始状态不应为运行中")
	}
}

func TestHandleBrokenLinks(t *testing.T) {
	s, m := newTestServer(t)

	// 无数据时返回提示
	req := httptest.NewRequest(http.MethodGet, "/api/404links", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Success {
		t.Error("无数据时应返回success=false")
	}

	// 写入一份结果文件后可查询
	broken := []models.BrokenLink{
		{URL: "https://example.com/dead", Source: "测试站", Text: "失效链接"},
	}
	if _, err := m.FileStore().SaveBrokenLinks(broken, time.Now()); err != nil {
		t.Fatalf("保存404链接失败: %v", err)
	}

	rec = httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/404links", nil))

	var resp2 struct {
		Success bool                `json:"success"`
		Data    []models.BrokenLink `json:"data"`
		Count   int                 `json:"count"`
		File    string              `json:"file"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp2); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !resp2.Success || resp2.Count != 1 {
		t.Errorf("响应不匹配: %+v", resp2)
	}
	if len(resp2.Data) != 1 || resp2.Data[0].URL != "https://example.com/dead" {
		t.Errorf("404链接数据不匹配: %+v", resp2.Data)
	}
}

func TestHandleStart_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/start", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/start 状态码 = %d, 期望 405", rec.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	s, m := newTestServer(t)

	if m.History() == nil {
		t.Skip("历史库未启用")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, 期望 200", rec.Code)
	}

	var resp apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !resp.Success {
		t.Errorf("历史接口应返回success=true: %+v", resp)
	}
}
