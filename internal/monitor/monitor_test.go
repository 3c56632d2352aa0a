package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/haiyousec/linkwatch/internal/models"
)

// 完整巡检流程: 静态解析 + 链接检测 + 404聚合 + 结果落盘
func TestMonitor_Run_Static(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>测试首页</title></head><body>
			<a href="/ok">正常页面</a>
			<a href="/dead">失效页面</a>
		</body></html>`))
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tempDir := t.TempDir()
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() 失败: %v", err)
	}
	config.Monitor.Mode = models.ModeStatic
	config.Monitor.OutputDir = tempDir
	config.Monitor.SiteDelay = 0
	config.History.DBPath = filepath.Join(tempDir, "history.db")
	config.Sites = []models.Site{{Name: "测试站", URL: server.URL + "/"}}

	m, err := New(config, nil)
	if err != nil {
		t.Fatalf("New() 失败: %v", err)
	}
	defer m.Close()

	task, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() 失败: %v", err)
	}

	if task.Status != models.ScanStatusCompleted {
		t.Errorf("任务状态 = %s, 期望 completed", task.Status)
	}
	if task.Stats.TotalSites != 1 || task.Stats.CompletedSites != 1 {
		t.Errorf("网站统计不匹配: %+v", task.Stats)
	}
	if task.Stats.CheckedLinks != 2 {
		t.Errorf("检测链接数 = %d, 期望 2", task.Stats.CheckedLinks)
	}
	if task.Stats.BrokenLinks != 1 {
		t.Errorf("404链接数 = %d, 期望 1", task.Stats.BrokenLinks)
	}

	// 结果文件已落盘
	path, err := m.FileStore().LatestBrokenFile()
	if err != nil {
		t.Fatalf("LatestBrokenFile() 失败: %v", err)
	}
	if path == "" {
		t.Error("404链接文件未生成")
	}

	// 历史库已记录
	if m.History() != nil {
		records, err := m.History().RecentScans(context.Background(), 5)
		if err != nil {
			t.Fatalf("RecentScans() 失败: %v", err)
		}
		if len(records) != 1 || records[0].BrokenCount != 1 {
			t.Errorf("历史记录不匹配: %+v", records)
		}
	}

	// 扫描结束后状态应为空闲
	if m.IsRunning() {
		t.Error("扫描结束后不应处于运行状态")
	}
}

func TestMonitor_Run_SiteFailure(t *testing.T) {
	tempDir := t.TempDir()
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() 失败: %v", err)
	}
	config.Monitor.Mode = models.ModeStatic
	config.Monitor.OutputDir = tempDir
	config.Monitor.SiteDelay = 0
	config.Monitor.ContinueOnError = true
	config.History.Enabled = false
	// 端口未监听, 网站级解析失败
	config.Sites = []models.Site{{Name: "无法访问的站", URL: "http://127.0.0.1:1/"}}

	m, err := New(config, nil)
	if err != nil {
		t.Fatalf("New() 失败: %v", err)
	}
	defer m.Close()

	task, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("ContinueOnError模式下Run()不应失败: %v", err)
	}
	if task.Stats.FailedSites != 1 {
		t.Errorf("失败网站数 = %d, 期望 1", task.Stats.FailedSites)
	}
	if task.Status != models.ScanStatusCompleted {
		t.Errorf("任务状态 = %s, 期望 completed", task.Status)
	}
}
