package main

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/memwatch/internal/app"
)

// ExportFlags export 子命令标志
type ExportFlags struct {
	Out  string
	Wait time.Duration
}

var exportFlags ExportFlags

// exportCmd 一次性诊断导出
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "写出一次诊断文件",
	Long:  "启动子系统，等待 --wait 后写出诊断文件。--out 以 .sz 结尾时使用 snappy 压缩。",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.Start(app.WithAppConfig(cfg))
		if err != nil {
			return err
		}
		if exportFlags.Wait > 0 {
			time.Sleep(exportFlags.Wait)
		}
		path, exportErr := a.Service().ExportDiagnostics(exportFlags.Out)
		if err := a.Stop(); err != nil && exportErr == nil {
			return err
		}
		if exportErr != nil {
			return exportErr
		}
		pterm.Success.Printfln("诊断文件: %s", path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.Out, "out", "o", "", "输出文件或目录，默认写入配置的导出目录")
	exportCmd.Flags().DurationVar(&exportFlags.Wait, "wait", 0, "导出前的采样时间")
}
