package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/memwatch/configs"
	configimpl "github.com/weisyn/memwatch/internal/config"
	"github.com/weisyn/memwatch/internal/core/diagnostics"
	"github.com/weisyn/memwatch/internal/core/remediation"
	"github.com/weisyn/memwatch/internal/core/telemetry"
)

var featureNames = []string{
	telemetry.FeatureName,
	remediation.CrashPreventionName,
	remediation.IdleCleanupName,
	diagnostics.PerformanceMonitorName,
}

// configCmd 配置相关命令
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置文件工具",
}

// configExampleCmd 输出示例配置
var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "输出包含全部字段与默认值的示例配置",
	RunE: func(_ *cobra.Command, _ []string) error {
		_, err := os.Stdout.Write(configs.ExampleConfig())
		return err
	},
}

// configCheckCmd 校验配置文件
var configCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "校验配置文件",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := configimpl.Load(args[0])
		if err != nil {
			return err
		}
		if err := configimpl.Validate(cfg, featureNames...); err != nil {
			return fmt.Errorf("配置无效:\n%w", err)
		}
		pterm.Success.Printfln("%s 有效", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configExampleCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
