package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/haiyousec/linkwatch/internal/storage"
	"github.com/haiyousec/linkwatch/internal/utils"
)

// apiResponse 统一的API响应结构
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	File    string      `json:"file,omitempty"`
	Count   int         `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		utils.Errorf("写入API响应失败: %v", err)
	}
}

// handleIndex 渲染主页面
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, nil); err != nil {
		utils.Errorf("渲染页面失败: %v", err)
	}
}

// handleStatus 返回当前扫描状态
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: s.monitor.Status()})
}

// handleBrokenLinks 返回最新一轮扫描的404链接
func (s *Server) handleBrokenLinks(w http.ResponseWriter, r *http.Request) {
	path, err := s.monitor.FileStore().LatestBrokenFile()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: err.Error()})
		return
	}
	if path == "" {
		writeJSON(w, http.StatusOK, apiResponse{Success: false, Message: "暂无404链接数据, 请先执行扫描"})
		return
	}

	links, err := storage.ReadBrokenLinks(path)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    links,
		File:    filepath.Base(path),
		Count:   len(links),
	})
}

// handleStart 触发新一轮巡检,已有扫描进行中时拒绝
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Success: false, Message: "请使用POST请求"})
		return
	}
	if s.monitor.IsRunning() {
		writeJSON(w, http.StatusConflict, apiResponse{Success: false, Message: "已有扫描任务正在进行中"})
		return
	}

	go func() {
		if _, err := s.monitor.Run(context.Background()); err != nil {
			utils.Errorf("后台巡检任务失败: %v", err)
		}
	}()
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "扫描任务已启动"})
}

// handleHistory 返回最近的扫描历史记录
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.monitor.History()
	if history == nil {
		writeJSON(w, http.StatusOK, apiResponse{Success: false, Message: "历史记录功能未启用"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	records, err := history.RecentScans(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: records, Count: len(records)})
}
