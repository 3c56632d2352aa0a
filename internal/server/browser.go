package server

import (
	"os/exec"
	"runtime"

	"github.com/haiyousec/linkwatch/internal/utils"
)

// openBrowser 尝试用系统默认浏览器打开指定地址,失败只记日志
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		utils.Warnf("自动打开浏览器失败: %v, 请手动访问 %s", err, url)
		return
	}
	utils.Infof("🔗 已在浏览器中打开 %s", url)
}
