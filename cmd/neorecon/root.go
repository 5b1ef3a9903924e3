/*
 * @author: Sun977
 * @date: 2026.02.10
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"neorecon/internal/config"
	"neorecon/internal/pkg/logger"
)

var (
	cfgFile   string
	appConfig = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "neorecon",
	Short: "NeoRecon TCP 端口扫描与服务指纹识别工具",
	Long: `NeoRecon 对目标执行全连接 TCP 端口扫描, 并通过探针与指纹库识别开放端口上的服务。

示例:
  neorecon scan -t 192.168.1.1 -p 1-1000 -s
  neorecon scan -t 10.0.0.0/24 --subnet -p 22-443 -s -o table --oj result.json
  neorecon probes --probes rules/neorecon-probes.txt
`,
	SilenceUsage: true,
	// PersistentPreRunE: 全局初始化逻辑, 确保所有子命令都能使用配置和日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func Execute() {
	// 全局 Panic Recovery
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] neorecon crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		os.Exit(1)
	}
}

func init() {
	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./configs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (debug, info, warn, error)")

	// 注册子命令
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newProbesCmd())
	rootCmd.AddCommand(versionCmd)
}

// initConfig 读取配置文件和环境变量, 并初始化日志
func initConfig(cmd *cobra.Command) error {
	loader := config.NewConfigLoader(cfgFile, "NEORECON")
	if err := loader.BindFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}

	cfg, err := loader.LoadConfig()
	if err != nil {
		return err
	}
	appConfig = cfg

	initCLILogger(cfg.Log)
	if path := loader.GetConfigPath(); path != "" {
		logger.Debugf("using config file: %s", path)
	}
	return nil
}

// initCLILogger 初始化 CLI 模式下的日志, pterm 提示信息与日志级别保持一致
// 提示信息一律走 stderr, stdout 只留给扫描结果
func initCLILogger(cfg *config.LogConfig) {
	switch cfg.Level {
	case "debug":
		pterm.EnableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(os.Stderr)
	case "info":
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(os.Stderr)
	default:
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}

	if _, err := logger.InitLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}
