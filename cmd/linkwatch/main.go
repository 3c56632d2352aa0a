package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haiyousec/linkwatch/internal/models"
	"github.com/haiyousec/linkwatch/internal/monitor"
	"github.com/haiyousec/linkwatch/internal/server"
	"github.com/haiyousec/linkwatch/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证配置文件

	// 巡检参数
	siteURLs        []string
	sitesFile       string
	mode            string
	pageLoadTimeout int
	linkTestTimeout int
	maxWorkers      int
	maxTabs         int
	headless        bool
	outputDir       string

	// Web服务参数
	serveHost string
	servePort int
	noOpen    bool
)

var rootCmd = &cobra.Command{
	Use:   "linkwatch",
	Short: "网站404链接监测工具",
	Long: `LinkWatch - 网站404链接自动化监测工具 (Go版本)

定期巡检指定网站首页,提取页面链接并并发检测可用性,
汇总404链接生成报告,支持通过本地Web界面查看结果:
  • 动态(无头浏览器)和静态两种页面解析模式
  • HEAD优先、GET回退的链接检测,识别疑似404页面
  • 404链接聚合与历史记录
  • 本地Web界面展示与手动触发扫描
  • 自定义HTTP请求头

HTTP头部配置示例:
  # 通过配置文件 (configs/headers.yaml)
  linkwatch

  # 通过命令行参数
  linkwatch -H "User-Agent: MyBot/1.0" -H "Authorization: Bearer token"

  # 验证配置文件
  linkwatch --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 加载配置
		config, err := monitor.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		// 初始化日志系统
		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, headerManager, err := prepare()
		if err != nil {
			return err
		}

		// 如果用户请求验证配置
		if validateConfig {
			utils.Info("🔍 验证HTTP头部配置...")
			if err := headerManager.LoadConfig(); err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if err := headerManager.Validate(); err != nil {
				return fmt.Errorf("配置验证失败: %w", err)
			}

			// 显示合并后的头部(脱敏)
			safeHeaders := headerManager.GetSafeHeaders()
			utils.Info("✅ 配置验证通过!")
			utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
			for name, value := range safeHeaders {
				utils.Infof("  %s: %s", name, value)
			}
			return nil
		}

		m, err := monitor.New(appConfig, headerManager)
		if err != nil {
			return fmt.Errorf("创建巡检器失败: %w", err)
		}
		defer m.Close()

		task, err := m.Run(signalContext())
		if err != nil {
			return fmt.Errorf("巡检失败: %w", err)
		}

		// 显示统计结果
		fmt.Println("\n==================================================")
		fmt.Println("📊 巡检统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 网站总数: %d\n", task.Stats.TotalSites)
		fmt.Printf("✅ 成功网站: %d\n", task.Stats.CompletedSites)
		fmt.Printf("❌ 失败网站: %d\n", task.Stats.FailedSites)
		fmt.Printf("✅ 检测链接: %d\n", task.Stats.CheckedLinks)
		fmt.Printf("❌ 404链接: %d\n", task.Stats.BrokenLinks)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", task.Stats.Duration)
		fmt.Println("==================================================")

		utils.Info("✨ 巡检任务完成!")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动本地Web界面",
	Long:  "启动本地Web服务,展示404链接结果与扫描历史,支持在页面上手动触发新一轮扫描",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, headerManager, err := prepare()
		if err != nil {
			return err
		}

		// 命令行覆盖Web服务配置
		if serveHost != "" {
			appConfig.Server.Host = serveHost
		}
		if servePort > 0 {
			appConfig.Server.Port = servePort
		}
		if noOpen {
			appConfig.Server.OpenBrowser = false
		}

		m, err := monitor.New(appConfig, headerManager)
		if err != nil {
			return fmt.Errorf("创建巡检器失败: %w", err)
		}
		defer m.Close()

		srv, err := server.New(m, appConfig.Server)
		if err != nil {
			return fmt.Errorf("创建Web服务失败: %w", err)
		}
		return srv.Run(signalContext())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("LinkWatch %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 网站404链接监测工具")
	},
}

// prepare 加载配置、合并命令行参数并创建头部管理器
func prepare() (*monitor.Config, *monitor.HeaderManager, error) {
	appConfig, err := monitor.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	appConfig.MergeCLIFlags(mode, pageLoadTimeout, linkTestTimeout, maxWorkers, maxTabs, headless, outputDir)

	// 指定网站文件时覆盖配置中的网站列表
	if sitesFile != "" {
		sites, err := utils.ReadSitesFromFile(sitesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("读取网站列表文件失败: %w", err)
		}
		appConfig.Sites = sites
	}

	// -u 指定的单个网站优先级最高
	if len(siteURLs) > 0 {
		sites := make([]models.Site, 0, len(siteURLs))
		for _, raw := range siteURLs {
			u, err := NormalizeURL(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("无效的网站地址 %s: %w", raw, err)
			}
			if err := ValidateURL(u); err != nil {
				return nil, nil, fmt.Errorf("无效的网站地址 %s: %w", raw, err)
			}
			parsed, _ := url.Parse(u)
			sites = append(sites, models.Site{Name: parsed.Host, URL: u})
		}
		appConfig.Sites = sites
	}

	if err := ValidateFlags(mode, pageLoadTimeout, linkTestTimeout, maxWorkers, maxTabs); err != nil {
		return nil, nil, err
	}

	headerManager, err := monitor.NewHeaderManager(configFile, headers)
	if err != nil {
		return nil, nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	return appConfig, headerManager, nil
}

// signalContext 返回收到 Ctrl+C/SIGTERM 时取消的上下文
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		utils.Warnf("\n收到中断信号: %v, 正在优雅关闭...", sig)
		cancel()
	}()
	return ctx
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 巡检参数
	rootCmd.PersistentFlags().StringSliceVarP(&siteURLs, "site", "u", []string{}, "指定待巡检网站URL,可多次指定,覆盖配置中的列表")
	rootCmd.PersistentFlags().StringVarP(&sitesFile, "sites-file", "f", "", "网站列表文件路径,每行 '名称|URL' 或 URL")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "页面解析模式 (all|static|dynamic)")
	rootCmd.PersistentFlags().IntVar(&pageLoadTimeout, "page-timeout", 0, "页面加载超时(毫秒)")
	rootCmd.PersistentFlags().IntVar(&linkTestTimeout, "link-timeout", 0, "链接检测超时(毫秒)")
	rootCmd.PersistentFlags().IntVar(&maxWorkers, "workers", 0, "链接检测并发数")
	rootCmd.PersistentFlags().IntVar(&maxTabs, "tabs", 0, "浏览器标签页上限")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "结果输出目录")

	// Web服务参数
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Web服务监听地址")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Web服务监听端口")
	serveCmd.Flags().BoolVar(&noOpen, "no-open", false, "不自动打开浏览器")

	// 添加子命令
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
