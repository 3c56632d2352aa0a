// Package storage 负责扫描结果的持久化:JSON 结果文件、文本摘要以及 SQLite 历史记录
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/utils"
)

// timestampLayout 用于结果文件名,与摘要文件保持一致
const timestampLayout = "20060102_150405"

// FileStore 把每轮扫描的结果写入输出目录
type FileStore struct {
	outputDir string
}

// NewFileStore 创建结果文件存储,目录不存在时自动创建
func NewFileStore(outputDir string) (*FileStore, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("输出目录不能为空")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	return &FileStore{outputDir: outputDir}, nil
}

// OutputDir 返回结果目录路径
func (fs *FileStore) OutputDir() string {
	return fs.outputDir
}

// SaveBrokenLinks 写出 404 链接列表,返回生成的文件路径
func (fs *FileStore) SaveBrokenLinks(broken []models.BrokenLink, at time.Time) (string, error) {
	if broken == nil {
		broken = []models.BrokenLink{}
	}
	path := filepath.Join(fs.outputDir, fmt.Sprintf("404_links_%s.json", at.Format(timestampLayout)))
	if err := utils.SaveJSON(path, broken); err != nil {
		return "", err
	}
	utils.Infof("💾 已保存404链接文件: %s (共%d条)", path, len(broken))
	return path, nil
}

// SaveSummary 写出本轮扫描的文本摘要,返回生成的文件路径
func (fs *FileStore) SaveSummary(results []models.SiteResult, stats models.ScanStats, at time.Time) (string, error) {
	path := filepath.Join(fs.outputDir, fmt.Sprintf("websites_summary_%s.txt", at.Format(timestampLayout)))

	var b strings.Builder
	b.WriteString("网站404链接检测摘要\n")
	b.WriteString(fmt.Sprintf("检测时间: %s\n", at.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("网站总数: %d  成功: %d  失败: %d\n", stats.TotalSites, stats.CompletedSites, stats.FailedSites))
	b.WriteString(fmt.Sprintf("链接总数: %d  已检测: %d  404链接: %d\n", stats.TotalLinks, stats.CheckedLinks, stats.BrokenLinks))
	b.WriteString(fmt.Sprintf("总耗时: %.2f秒\n", stats.Duration))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, r := range results {
		b.WriteString(fmt.Sprintf("[%s] %s\n", r.Site.Name, r.Site.URL))
		if r.ErrorMessage != "" {
			b.WriteString(fmt.Sprintf("  解析失败: %s\n\n", r.ErrorMessage))
			continue
		}
		if r.Elements != nil {
			b.WriteString(fmt.Sprintf("  标题: %s\n", r.Elements.Title))
			b.WriteString(fmt.Sprintf("  解析方式: %s  链接数: %d  图片数: %d\n",
				r.Elements.ParseMethod, len(r.Elements.Links), len(r.Elements.Images)))
		}
		b.WriteString(fmt.Sprintf("  已检测链接: %d  可访问: %d  跳过下载资源: %d  不可访问: %d  404: %d  耗时: %.2f秒\n",
			r.CheckedLinks, r.Accessible, r.Skipped, len(r.Inaccessible), len(r.Broken), r.Duration))
		for _, link := range r.Inaccessible {
			b.WriteString(fmt.Sprintf("    [%s] %s (%s)\n", link.Status, link.URL, link.Text))
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("写入摘要文件失败: %w", err)
	}
	utils.Infof("💾 已保存检测摘要: %s", path)
	return path, nil
}

// LatestBrokenFile 返回输出目录中最新的 404 链接文件,没有时返回空串
func (fs *FileStore) LatestBrokenFile() (string, error) {
	matches, err := filepath.Glob(filepath.Join(fs.outputDir, "404_links_*.json"))
	if err != nil {
		return "", fmt.Errorf("查找404链接文件失败: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	// 文件名中的时间戳保证了字典序即时间序
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ReadBrokenLinks 读取指定的 404 链接文件
func ReadBrokenLinks(path string) ([]models.BrokenLink, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取404链接文件失败: %w", err)
	}
	var broken []models.BrokenLink
	if err := json.Unmarshal(data, &broken); err != nil {
		return nil, fmt.Errorf("解析404链接文件失败: %w", err)
	}
	return broken, nil
}
