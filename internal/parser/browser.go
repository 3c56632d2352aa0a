package parser

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/haiyousec/linkwatch/internal/utils"
)

// BrowserKind 浏览器类型
type BrowserKind string

const (
	BrowserEdge     BrowserKind = "edge"     // Microsoft Edge
	BrowserCNOOC    BrowserKind = "cnooc"    // 中国海油企业安全浏览器
	BrowserChromium BrowserKind = "chromium" // rod自动下载的Chromium
)

// FindBrowser 按优先级查找可用浏览器
// 优先级: Edge > 企业安全浏览器 > Chromium(rod自动下载)
// 返回浏览器可执行文件路径和类型, Chromium时路径为空
func FindBrowser() (string, BrowserKind) {
	if path := findEdge(); path != "" {
		utils.Infof("🌐 使用 Microsoft Edge: %s", path)
		return path, BrowserEdge
	}

	if path := findCNOOCBrowser(); path != "" {
		utils.Infof("🌐 使用中国海油企业安全浏览器: %s", path)
		return path, BrowserCNOOC
	}

	utils.Info("🌐 未检测到本地浏览器, 使用Chromium")
	return "", BrowserChromium
}

// findEdge 查找Microsoft Edge浏览器路径
func findEdge() string {
	// 首先检查环境变量
	if envPath := os.Getenv("EDGE_BROWSER_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// 常见安装路径
	var paths []string
	if runtime.GOOS == "windows" {
		paths = []string{
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,
		}
		if home, err := os.UserHomeDir(); err == nil {
			paths = append(paths, filepath.Join(home, `AppData\Local\Microsoft\Edge\Application\msedge.exe`))
		}
	} else {
		paths = []string{
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
			"/usr/bin/microsoft-edge",
			"/usr/bin/msedge",
			"/usr/local/bin/microsoft-edge",
		}
	}

	return firstExisting(paths)
}

// findCNOOCBrowser 查找中国海油企业安全浏览器路径
func findCNOOCBrowser() string {
	// 首先检查环境变量
	if envPath := os.Getenv("CNOOC_BROWSER_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if runtime.GOOS != "windows" {
		return ""
	}

	paths := []string{
		`C:\Program Files\中国海油企业安全浏览器\chrome.exe`,
		`C:\Program Files (x86)\中国海油企业安全浏览器\chrome.exe`,
		`C:\Program Files\中国海油企业安全浏览器\中国海油企业安全浏览器.exe`,
		`C:\Program Files (x86)\中国海油企业安全浏览器\中国海油企业安全浏览器.exe`,
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, `AppData\Local\中国海油企业安全浏览器\Application\chrome.exe`))
	}

	return firstExisting(paths)
}

// firstExisting 返回第一个存在的路径
func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
