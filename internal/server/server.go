// Package server 提供本地Web界面,用于查看404链接结果、
// 扫描历史以及手动触发新一轮巡检。
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/haiyousec/linkwatch/internal/monitor"
	"github.com/haiyousec/linkwatch/internal/utils"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server 本地Web服务
type Server struct {
	monitor *monitor.Monitor
	host    string
	port    int
	open    bool

	tmpl *template.Template
	http *http.Server
}

// New 创建Web服务
func New(m *monitor.Monitor, cfg monitor.ServerConfig) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("解析页面模板失败: %w", err)
	}

	s := &Server{
		monitor: m,
		host:    cfg.Host,
		port:    cfg.Port,
		open:    cfg.OpenBrowser,
		tmpl:    tmpl,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/404links", s.handleBrokenLinks)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/history", s.handleHistory)

	s.http = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Addr 返回服务监听地址
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run 启动Web服务并阻塞到 ctx 取消,随后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		utils.Infof("🌐 Web服务已启动: http://%s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if s.open {
		// 稍等服务就绪再打开浏览器
		go func() {
			time.Sleep(1500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://%s", s.http.Addr))
		}()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("Web服务启动失败: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Web服务关闭失败: %w", err)
	}
	utils.Infof("Web服务已停止")
	return nil
}
