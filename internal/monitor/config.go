package monitor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/haiyousec/linkwatch/internal/models"
)

// defaultSiteHosts 默认监测的网站列表
var defaultSiteHosts = []string{
	"cnooccapital.cnooc.com.cn",
	"www.cnooc.com.cn",
	"www.cnoocltd.com",
	"ltd.cnooc.com.cn",
	"gaspower.cnooc.com.cn",
	"www.cosl.com.cn",
	"www.chinabluechem.com.cn",
	"cenertech.cnooc.com.cn",
	"www.cenertech.com",
	"www.cnoocengineering.com",
	"cnoocsafety.cnooc.com.cn",
	"www.trici.com.cn",
	"www.trici.cn",
	"www.zhtrust.com",
	"eei.cnooc.com.cn",
	"cneei.cnooc.com.cn",
}

// Config 应用程序配置
type Config struct {
	Monitor models.MonitorConfig `mapstructure:"monitor"`
	Sites   []models.Site        `mapstructure:"sites"`
	Logging LoggingConfig        `mapstructure:"logging"`
	Server  ServerConfig         `mapstructure:"server"`
	History HistoryConfig        `mapstructure:"history"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ServerConfig Web服务配置
type ServerConfig struct {
	Host        string `mapstructure:"host"`         // 监听地址
	Port        int    `mapstructure:"port"`         // 监听端口
	OpenBrowser bool   `mapstructure:"open_browser"` // 启动后自动打开浏览器
}

// HistoryConfig 历史记录配置
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"` // 是否写入SQLite历史库
	DBPath  string `mapstructure:"db_path"` // 数据库文件路径
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".linkwatch"))
		}
	}

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在,使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 配置文件未提供网站列表时,使用默认列表
	if len(config.Sites) == 0 {
		config.Sites = DefaultSites()
	}

	return &config, nil
}

// DefaultSites 返回默认监测网站列表
func DefaultSites() []models.Site {
	sites := make([]models.Site, 0, len(defaultSiteHosts))
	for _, host := range defaultSiteHosts {
		sites = append(sites, models.Site{
			Name: host,
			URL:  "https://" + host,
		})
	}
	return sites
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 监测配置默认值
	v.SetDefault("monitor.mode", "all")
	v.SetDefault("monitor.page_load_timeout", 20000)
	v.SetDefault("monitor.link_test_timeout", 5000)
	v.SetDefault("monitor.max_workers", 5)
	v.SetDefault("monitor.max_tabs", 4)
	v.SetDefault("monitor.headless", true)
	v.SetDefault("monitor.site_delay", 1)
	v.SetDefault("monitor.continue_on_error", true)
	v.SetDefault("monitor.output_dir", "results")

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// Web服务默认值
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.open_browser", true)

	// 历史记录默认值
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "results/history.db")
}

// GetMonitorConfig 从配置中提取监测配置
func (c *Config) GetMonitorConfig() models.MonitorConfig {
	return c.Monitor
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(
	mode string,
	pageLoadTimeout int,
	linkTestTimeout int,
	maxWorkers int,
	maxTabs int,
	headless bool,
	outputDir string,
) {
	if mode != "" {
		c.Monitor.Mode = models.ParseMode(mode)
	}
	if pageLoadTimeout > 0 {
		c.Monitor.PageLoadTimeout = pageLoadTimeout
	}
	if linkTestTimeout > 0 {
		c.Monitor.LinkTestTimeout = linkTestTimeout
	}
	if maxWorkers > 0 {
		c.Monitor.MaxWorkers = maxWorkers
	}
	if maxTabs > 0 {
		c.Monitor.MaxTabs = maxTabs
	}
	c.Monitor.Headless = headless
	if outputDir != "" {
		c.Monitor.OutputDir = outputDir
	}
}
