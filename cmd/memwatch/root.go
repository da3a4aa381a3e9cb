package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configimpl "github.com/weisyn/memwatch/internal/config"
	"github.com/weisyn/memwatch/pkg/types"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigFile string // 配置文件路径（JSON 或 YAML）
	JSON       bool   // 以 JSON 输出
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "memwatch",
	Short: "内存压力管理",
	Long: `memwatch - 内存压力管理子系统

- watch     监控进程内存，超限或持续增长时发送重载信号
- classify  离线分析内存样本序列的泄漏模式
- pressure  显示当前系统内存压力
- export    写出一次诊断文件`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "配置文件路径 (.json/.yaml)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "以 JSON 输出")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(pressureCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 读取 --config，未指定时返回空配置
func loadConfig() (*types.AppConfig, error) {
	if globalFlags.ConfigFile == "" {
		return &types.AppConfig{}, nil
	}
	cfg, err := configimpl.Load(globalFlags.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置: %w", err)
	}
	return cfg, nil
}
